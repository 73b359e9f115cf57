// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package slog2 is a small leveled logger in the teacher's dot-imported
// style (syzkaller's pkg/log: Logf/Fatalf gated on a verbosity flag,
// timestamp-prefixed stderr output). Named slog2 to avoid colliding with
// the standard library's log/slog.
package slog2

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	cloudlogging "cloud.google.com/go/logging"
)

var (
	verbosity int32
	mu        sync.Mutex
	std       = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	cloud     *cloudlogging.Logger
)

// SetVerbosity sets the global level threshold Logf compares against,
// mirroring syzkaller's -v flag.
func SetVerbosity(v int) {
	atomic.StoreInt32(&verbosity, int32(v))
}

// EnableCloudLogging attaches an optional Cloud Logging sink (spec §5
// domain stack #10), written to in addition to stderr. Config-gated: a
// deployment with no cloud.log_id configured never calls this and logs
// to stderr alone.
func EnableCloudLogging(logger *cloudlogging.Logger) {
	mu.Lock()
	defer mu.Unlock()
	cloud = logger
}

// Logf logs msg if level is at or below the current verbosity, exactly
// like syzkaller's pkg/log.Logf.
func Logf(level int, msg string, args ...interface{}) {
	if int32(level) > atomic.LoadInt32(&verbosity) {
		return
	}
	line := fmt.Sprintf(msg, args...)
	std.Output(2, line)
	mu.Lock()
	l := cloud
	mu.Unlock()
	if l != nil {
		l.Log(cloudlogging.Entry{Payload: line, Severity: cloudSeverity(level)})
	}
}

// Errorf always logs, regardless of verbosity, for conditions the
// operator should always see but that are not fatal.
func Errorf(msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)
	std.Output(2, "ERROR: "+line)
	mu.Lock()
	l := cloud
	mu.Unlock()
	if l != nil {
		l.Log(cloudlogging.Entry{Payload: line, Severity: cloudlogging.Error})
	}
}

// Fatalf logs and exits with a non-zero status, for startup failures a
// worker or the main process cannot recover from (corrupt schema,
// unwritable work_dir).
func Fatalf(msg string, args ...interface{}) {
	Errorf(msg, args...)
	mu.Lock()
	l := cloud
	mu.Unlock()
	if l != nil {
		l.Flush()
	}
	os.Exit(1)
}

func cloudSeverity(level int) cloudlogging.Severity {
	if level <= 0 {
		return cloudlogging.Info
	}
	return cloudlogging.Debug
}
