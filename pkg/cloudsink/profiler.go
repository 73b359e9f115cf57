// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package cloudsink

import (
	"fmt"

	"cloud.google.com/go/profiler"
)

// StartProfiler starts the continuous profiling agent for a long-running
// healer-fuzz daemon (spec §5 domain stack #11). Call once from
// cmd/healer-fuzz/main.go when cloud.profiler_service is configured.
func StartProfiler(service, version string) error {
	if err := profiler.Start(profiler.Config{Service: service, ServiceVersion: version}); err != nil {
		return fmt.Errorf("cloudsink: start profiler: %w", err)
	}
	return nil
}
