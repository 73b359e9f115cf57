// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package httpstatus serves the sampler's latest JSON snapshot and the
// Prometheus handler over HTTP (spec §5 domain stack #6), wrapped with
// the same gorilla/handlers middleware shape syzkaller's own dashboard
// uses: access logging and panic recovery.
package httpstatus

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/killvxk/healer/pkg/sampler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the status mux: GET /stats returns the sampler's latest
// snapshot as JSON, GET /metrics is the Prometheus exposition endpoint.
func New(s *sampler.Sampler, reg *prometheus.Registry, accessLog io.Writer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Latest())
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return handlers.RecoveryHandler()(handlers.LoggingHandler(accessLog, mux))
}
