// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangtaoking1/watchwah-agent/server/middleware"
)

func testOptions() *Options {
	opts := NewOptions()
	opts.Enabled = true
	opts.Metrics = false
	opts.HTTP.BindPort = 0
	return opts
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Healthz(t *testing.T) {
	s := New(testOptions())

	w := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.XRequestIDKey))
}

func TestServer_Status(t *testing.T) {
	type status struct {
		Connected bool  `json:"connected"`
		Frames    int64 `json:"frames"`
	}
	s := New(testOptions(), WithStatus(func() interface{} {
		return status{Connected: true, Frames: 3}
	}))

	w := get(t, s.Handler(), "/status", http.Header{middleware.XRequestIDKey: {"abc"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connected":true,"frames":3}`, w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(middleware.XRequestIDKey))

	w = get(t, New(testOptions()).Handler(), "/status", nil)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestServer_Cors(t *testing.T) {
	s := New(testOptions())

	w := get(t, s.Handler(), "/healthz", http.Header{"Origin": {"chrome-extension://watchwah"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Setup(t *testing.T) {
	s := New(testOptions())
	require.NoError(t, s.Setup(func(g *gin.Engine) error {
		g.GET("/custom", func(c *gin.Context) { c.String(http.StatusOK, "custom") })
		return nil
	}))
	assert.Error(t, s.Setup(func(*gin.Engine) error { return fmt.Errorf("setup failed") }))
	assert.NoError(t, s.Setup(nil))

	w := get(t, s.Handler(), "/custom", nil)
	assert.Equal(t, "custom", w.Body.String())
}

func TestServer_Profiling(t *testing.T) {
	opts := testOptions()
	opts.Profiling = true
	s := New(opts)

	w := get(t, s.Handler(), "/debug/pprof/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, New(testOptions()).Handler(), "/debug/pprof/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	opts := testOptions()
	opts.Metrics = true
	s := New(opts)

	_ = get(t, s.Handler(), "/healthz", nil)
	w := get(t, s.Handler(), "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gin_requests_total")
}

func TestServer_Run(t *testing.T) {
	s := New(testOptions(), WithStatus(func() interface{} { return map[string]int{"opens": 1} }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, time.Second, 10*time.Millisecond)

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = http.Get("http://" + s.Addr() + "/status")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	var got map[string]int
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 1, got["opens"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server stop")
	}
}

func TestOptions_Validate(t *testing.T) {
	opts := NewOptions()
	opts.HTTP.BindPort = 70000
	assert.Empty(t, opts.Validate())

	opts.Enabled = true
	assert.Len(t, opts.Validate(), 1)

	opts.HTTP.BindPort = 63087
	assert.Empty(t, opts.Validate())
	assert.Equal(t, "127.0.0.1:63087", opts.HTTP.Address())
}
