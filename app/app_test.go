// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangtaoking1/watchwah-agent/flag"
)

type testOptions struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

func (o *testOptions) Flags() (fss flag.NamedFlagSets) {
	fs := fss.FlagSet("generic")
	fs.DurationVar(&o.Interval, "interval", o.Interval, "sync interval")

	return fss
}

func (o *testOptions) Validate() []error {
	var errs []error
	if o.Interval > 30*time.Second {
		errs = append(errs, errors.New("interval must not bigger than 30s"))
	}
	if o.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}

	return errs
}

type ctxKey struct{}

func TestApp_Execute(t *testing.T) {
	opts := &testOptions{Interval: 5 * time.Second}
	var got time.Duration
	var value interface{}
	a := NewApp("test-app", "test app",
		WithOptions(opts),
		WithNoConfig(),
		WithSilence(),
		WithDefaultValidArgs(),
		WithRunFunc(func(ctx context.Context, name string) error {
			assert.Equal(t, "test-app", name)
			got = opts.Interval
			value = ctx.Value(ctxKey{})
			return nil
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	require.NoError(t, a.Execute(ctx, "--interval=10s"))
	assert.Equal(t, 10*time.Second, got)
	assert.Equal(t, "v", value)
}

func TestApp_ValidateAggregatesErrors(t *testing.T) {
	opts := &testOptions{Interval: 5 * time.Second}
	called := false
	a := NewApp("test-app", "test app",
		WithOptions(opts),
		WithNoConfig(),
		WithSilence(),
		WithRunFunc(func(context.Context, string) error {
			called = true
			return nil
		}),
	)

	err := a.Execute(context.Background(), "--interval=1m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval must not bigger than 30s")
	assert.False(t, called)
}

func TestApp_RejectsArgs(t *testing.T) {
	a := NewApp("test-app", "test app",
		WithNoConfig(),
		WithSilence(),
		WithDefaultValidArgs(),
		WithRunFunc(func(context.Context, string) error { return nil }),
	)

	assert.Error(t, a.Execute(context.Background(), "extra"))
}

func TestApp_SubCommand(t *testing.T) {
	opts := &testOptions{Interval: time.Second}
	var ran string
	sub := NewCommand("decode", "decode frames",
		WithCmdOptions(opts),
		WithCmdRunFunc(func(_ context.Context, name string) error {
			ran = name
			return nil
		}),
	)
	a := NewApp("test-app", "test app", WithNoConfig(), WithSilence(), WithCommands(sub))

	require.NoError(t, a.Execute(context.Background(), "decode", "--interval=2s"))
	assert.Equal(t, "decode", ran)
	assert.Equal(t, 2*time.Second, opts.Interval)

	assert.Error(t, a.Execute(context.Background(), "decode", "--interval=0s"))
}

func TestLoadConfig(t *testing.T) {
	defer viper.Reset()

	dir := t.TempDir()
	file := filepath.Join(dir, "agent.yaml")
	require.NoError(t, os.WriteFile(file, []byte("websocket:\n  url: ws://localhost:9999/ws\n"), 0o600))

	require.NoError(t, loadConfig("test-app", file))
	assert.Equal(t, "ws://localhost:9999/ws", viper.GetString("websocket.url"))

	assert.Error(t, loadConfig("test-app", filepath.Join(dir, "missing.yaml")))

	viper.Reset()
	assert.NoError(t, loadConfig("test-app-without-config", ""))
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "WATCHWAH_AGENT", EnvPrefix("watchwah-agent"))
}
