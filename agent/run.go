// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package agent

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wangtaoking1/watchwah-agent/app"
	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/message"
	"github.com/wangtaoking1/watchwah-agent/shutdown"
	"github.com/wangtaoking1/watchwah-agent/shutdown/trigger/posixsignal"
)

// RunFunc returns the run func of the agent command. It runs until SIGINT or
// SIGTERM.
func RunFunc(opts *Options) app.RunFunc {
	return func(ctx context.Context, name string) error {
		log.Init(opts.Log)
		defer log.Flush()

		a, err := New(opts, message.LoggingHandler{}, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}

		gs := shutdown.New([]shutdown.Trigger{posixsignal.New()}, shutdown.WithTimeout(opts.ShutdownTimeout))
		gs.AddCallback(a)
		if err := gs.Start(); err != nil {
			return err
		}

		return a.Run(ctx)
	}
}
