// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package agent assembles the watchwah agent: the websocket client, the
// message dispatcher, metrics and the status server.
package agent

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/message"
	"github.com/wangtaoking1/watchwah-agent/metrics"
	"github.com/wangtaoking1/watchwah-agent/server"
	"github.com/wangtaoking1/watchwah-agent/shutdown"
	"github.com/wangtaoking1/watchwah-agent/version"
	"github.com/wangtaoking1/watchwah-agent/websocket"
)

// ErrAlreadyStarted is returned by Run when it was called before.
var ErrAlreadyStarted = errors.New("agent already started")

// Status is served on /status.
type Status struct {
	Version   string          `json:"version"`
	Websocket websocket.Stats `json:"websocket"`
}

// Agent keeps the daemon connection and routes its messages to a handler.
type Agent struct {
	client    *websocket.Client
	server    *server.Server
	collector *metrics.Collector

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ shutdown.Callback = (*Agent)(nil)

// New creates an agent routing messages to handler. The metrics are
// registered on reg when it is not nil.
func New(opts *Options, handler message.Handler, reg prometheus.Registerer) (*Agent, error) {
	a := &Agent{done: make(chan struct{})}

	a.collector = metrics.New(metrics.StatsFunc(func() websocket.Stats {
		return a.client.Stats()
	}))
	dispatcher := message.NewFrameDispatcher(
		message.NewDispatcher(handler, message.WithObserver(a.collector.ObserveMessage)),
		message.WithDecodeError(a.collector.ObserveDropped),
	)

	client, err := websocket.NewClient(opts.Websocket.URL, dispatcher, websocket.WithOptions(opts.Websocket))
	if err != nil {
		return nil, err
	}
	a.client = client

	if reg != nil {
		if err := reg.Register(a.collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, errors.Wrap(err, "register metrics")
			}
		}
	}

	if opts.Server.Enabled {
		a.server = server.New(opts.Server, server.WithStatus(func() interface{} {
			return a.Status()
		}))
	}

	return a, nil
}

// Status returns a snapshot of the agent state.
func (a *Agent) Status() Status {
	return Status{
		Version:   version.Get().String(),
		Websocket: a.client.Stats(),
	}
}

// Server returns the status server, nil when disabled.
func (a *Agent) Server() *server.Server {
	return a.server
}

// Run runs the client and the status server until ctx is done or the agent
// is shut down.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	defer close(a.done)
	defer cancel()

	log.Infow("Agent started", "url", a.client.URL())
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.client.Run(ctx)
	})
	if a.server != nil {
		eg.Go(func() error {
			return errors.WithMessage(a.server.Run(ctx), "status server")
		})
	}

	err := eg.Wait()
	log.Infow("Agent stopped")

	return err
}

// OnShutdown stops a running agent and waits for Run to return.
func (a *Agent) OnShutdown(trigger string) error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel == nil {
		return nil
	}

	log.Infow("Stopping agent", "trigger", trigger)
	cancel()
	<-a.done

	return nil
}
