// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads the manager configuration (spec §6): program
// generation bounds, VM count, paths, and the opaque per-backend vm/
// executor blocks passed through untouched to the external VM driver.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"gopkg.in/yaml.v3"
)

// Config mirrors spec.md §6's manager config fields exactly.
type Config struct {
	ProgMaxLen   int    `yaml:"prog_max_len"`
	ProgMinLen   int    `yaml:"prog_min_len"`
	StrMinLen    int    `yaml:"str_min_len"`
	StrMaxLen    int    `yaml:"str_max_len"`
	PathMaxDepth int    `yaml:"path_max_depth"`
	VMNum        int    `yaml:"vm_num"`
	FotsBin      string `yaml:"fots_bin"`
	Corpus       string `yaml:"corpus"`

	VM       map[string]interface{} `yaml:"vm"`
	Executor map[string]interface{} `yaml:"executor"`
	Cloud    *CloudConfig           `yaml:"cloud"`
}

// CloudConfig is the optional §5 domain-stack block; a nil Cloud field
// after Load means fully local operation, no Google Cloud calls made
// anywhere in the process.
type CloudConfig struct {
	Bucket          string `yaml:"bucket"`
	LogID           string `yaml:"log_id"`
	ProfilerService string `yaml:"profiler_service"`
	PubsubTopic     string `yaml:"pubsub_topic"`
	PubsubProject   string `yaml:"pubsub_project"`
}

// defaults matches spec.md §6's stated defaults for fields a config file
// may omit.
func defaults() Config {
	return Config{
		ProgMaxLen:   15,
		ProgMinLen:   3,
		StrMinLen:    4,
		StrMaxLen:    128,
		PathMaxDepth: 4,
	}
}

// Load reads and parses a YAML config file at path, then resolves any
// string value of the form "secret://<name>" inside VM/Executor through
// Secret Manager (spec §5 domain stack #13).
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := resolveSecrets(ctx, cfg.VM); err != nil {
		return nil, fmt.Errorf("config: resolve vm secrets: %w", err)
	}
	if err := resolveSecrets(ctx, cfg.Executor); err != nil {
		return nil, fmt.Errorf("config: resolve executor secrets: %w", err)
	}
	return &cfg, nil
}

const secretPrefix = "secret://"

// resolveSecrets walks m in place, replacing every "secret://name" string
// value with the latest version of that Secret Manager secret. m may be
// nested (maps, and lists of strings or maps) since vm:/executor: blocks
// are user-defined; a list nested directly inside another list is not
// walked.
func resolveSecrets(ctx context.Context, m map[string]interface{}) error {
	if !containsSecretRef(m) {
		return nil
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("secretmanager client: %w", err)
	}
	defer client.Close()
	return walkResolve(ctx, client, m)
}

func containsSecretRef(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return strings.HasPrefix(t, secretPrefix)
	case map[string]interface{}:
		for _, vv := range t {
			if containsSecretRef(vv) {
				return true
			}
		}
	case []interface{}:
		for _, vv := range t {
			if containsSecretRef(vv) {
				return true
			}
		}
	}
	return false
}

func walkResolve(ctx context.Context, client *secretmanager.Client, m map[string]interface{}) error {
	for k, v := range m {
		switch t := v.(type) {
		case string:
			if strings.HasPrefix(t, secretPrefix) {
				resolved, err := fetchSecret(ctx, client, strings.TrimPrefix(t, secretPrefix))
				if err != nil {
					return err
				}
				m[k] = resolved
			}
		case map[string]interface{}:
			if err := walkResolve(ctx, client, t); err != nil {
				return err
			}
		case []interface{}:
			for idx, vv := range t {
				switch sv := vv.(type) {
				case string:
					if strings.HasPrefix(sv, secretPrefix) {
						resolved, err := fetchSecret(ctx, client, strings.TrimPrefix(sv, secretPrefix))
						if err != nil {
							return err
						}
						t[idx] = resolved
					}
				case map[string]interface{}:
					if err := walkResolve(ctx, client, sv); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func fetchSecret(ctx context.Context, client *secretmanager.Client, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{Name: name + "/versions/latest"}
	resp, err := client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.Payload.Data), nil
}

// WorkDir returns HEALER_WORK_DIR if set, else the current directory
// ("."), per spec §2.3.
func WorkDir() string {
	if d := os.Getenv("HEALER_WORK_DIR"); d != "" {
		return d
	}
	return "."
}
