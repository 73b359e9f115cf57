// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package slog2

import (
	"context"
	"fmt"

	cloudlogging "cloud.google.com/go/logging"
)

// DialCloudLogging opens a Cloud Logging client for projectID and
// returns the logger named logID, ready to hand to EnableCloudLogging.
// Called from cmd/healer-fuzz/main.go only when cloud.log_id is set.
func DialCloudLogging(ctx context.Context, projectID, logID string) (*cloudlogging.Client, *cloudlogging.Logger, error) {
	client, err := cloudlogging.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("slog2: cloud logging client: %w", err)
	}
	return client, client.Logger(logID), nil
}
