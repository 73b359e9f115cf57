// Copyright 2024 healer project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package httpstatus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/killvxk/healer/pkg/sampler"
	"github.com/killvxk/healer/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestStatusServer_StatsAndMetrics(t *testing.T) {
	s := &sampler.Sampler{
		Corpus:   store.NewCorpus(),
		Coverage: store.NewCoverage(),
		Cases:    nil,
	}
	reg := prometheus.NewRegistry()
	require.NoError(t, sampler.Register(reg))

	h := New(s, reg, io.Discard)
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}
