// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report holds the guest crash details an Executor reports, plus
// the backtrace demangling and console-log xz compression applied to them
// before pkg/store persists a crashed case under work_dir/crashes.
package report

import (
	"bytes"
	"fmt"

	"github.com/ianlancetaylor/demangle"
	"github.com/ulikunitz/xz"
)

// CrashDetails is the guest crash information an Executor surfaces (spec
// §4.5/§6's Crashed(crash_details, reproduces?)).
type CrashDetails struct {
	Description string   `json:"description"`
	Backtrace   []string `json:"backtrace"`
	Console     string   `json:"console"`
}

// Demangled returns a copy of d with every C++/Rust-mangled backtrace
// frame demangled, leaving frames demangle can't parse untouched. Kernel
// crash backtraces frequently mix plain C symbols with mangled ones from
// any C++ subsystems linked into the guest, so best-effort per-frame
// demangling beats an all-or-nothing attempt.
func Demangled(d CrashDetails) CrashDetails {
	out := d
	out.Backtrace = make([]string, len(d.Backtrace))
	for i, frame := range d.Backtrace {
		if sym, err := demangle.ToString(frame, demangle.NoParams); err == nil {
			out.Backtrace[i] = sym
		} else {
			out.Backtrace[i] = frame
		}
	}
	return out
}

// CompressConsole xz-compresses the crash's console log, which is
// usually the bulk of a crash case's size, before it is embedded next to
// the pretty-printed crash JSON.
func CompressConsole(console string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("report: xz writer: %w", err)
	}
	if _, err := w.Write([]byte(console)); err != nil {
		return nil, fmt.Errorf("report: xz write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("report: xz close: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressConsole reverses CompressConsole, for tooling that needs to
// read an archived crash's console log back out.
func DecompressConsole(data []byte) (string, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("report: xz reader: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", fmt.Errorf("report: xz read: %w", err)
	}
	return buf.String(), nil
}
