// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package cloudsink provides the optional Google Cloud integrations of
// spec §5's domain stack: a GCS mirror of newly-added corpus programs
// and crash cases, a Pub/Sub-backed store.Queue for multi-host fuzzing
// farms, and continuous profiler bootstrap. Everything here is
// config-gated; a deployment with no cloud: block never imports a
// network call path at runtime.
package cloudsink

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// Backup mirrors corpus programs and crash cases to a GCS bucket as they
// are produced, so a fleet of ephemeral fuzzing hosts does not lose
// progress when a VM is recycled.
type Backup struct {
	bucket *storage.BucketHandle
}

// NewBackup opens a handle to bucketName. It does not verify the bucket
// exists; the first Put call surfaces any access error.
func NewBackup(ctx context.Context, bucketName string) (*Backup, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloudsink: storage client: %w", err)
	}
	return &Backup{bucket: client.Bucket(bucketName)}, nil
}

// PutProg uploads a corpus program's rendered bytes under corpus/<hash>.
func (b *Backup) PutProg(ctx context.Context, hash string, data []byte) error {
	return b.put(ctx, "corpus/"+hash, data)
}

// PutCrash uploads a crash case's JSON under crashes/<title>.json.
func (b *Backup) PutCrash(ctx context.Context, title string, data []byte) error {
	return b.put(ctx, "crashes/"+title+".json", data)
}

func (b *Backup) put(ctx context.Context, object string, data []byte) error {
	w := b.bucket.Object(object).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("cloudsink: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("cloudsink: close %s: %w", object, err)
	}
	return nil
}
