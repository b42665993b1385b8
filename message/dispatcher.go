// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package message

import (
	"context"

	"github.com/wangtaoking1/watchwah-agent/container/set"
	"github.com/wangtaoking1/watchwah-agent/log"
)

// Handler receives the leaf messages found by a Dispatcher.
type Handler interface {
	// UpdateTimer is called with the new active timer, nil when it was cleared.
	UpdateTimer(ctx context.Context, timer *Timer)
	UpdateTimerState(ctx context.Context, state TimerState)
	UpdateProfiles(ctx context.Context, profiles []ProfileInfo)
	RefreshedConfig(ctx context.Context)
}

// NopHandler ignores every message. Embed it to implement only some branches.
type NopHandler struct{}

var _ Handler = NopHandler{}

func (NopHandler) UpdateTimer(context.Context, *Timer)           {}
func (NopHandler) UpdateTimerState(context.Context, TimerState)  {}
func (NopHandler) UpdateProfiles(context.Context, []ProfileInfo) {}
func (NopHandler) RefreshedConfig(context.Context)               {}

// LoggingHandler writes a debug line for every message.
type LoggingHandler struct{}

var _ Handler = LoggingHandler{}

func (LoggingHandler) UpdateTimer(ctx context.Context, timer *Timer) {
	if timer == nil {
		log.From(ctx).Debugw("Timer cleared")
		return
	}
	log.From(ctx).Debugw("Timer updated",
		"websites", set.Sorted(timer.Profile.Blocking.Websites),
		"hide_web_video", timer.Profile.Blocking.HideWebVideo,
		"state", string(timer.State.Raw()),
	)
}

func (LoggingHandler) UpdateTimerState(ctx context.Context, state TimerState) {
	log.From(ctx).Debugw("Timer state updated", "state", string(state.Raw()))
}

func (LoggingHandler) UpdateProfiles(ctx context.Context, profiles []ProfileInfo) {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	log.From(ctx).Debugw("Profiles updated", "profiles", names)
}

func (LoggingHandler) RefreshedConfig(ctx context.Context) {
	log.From(ctx).Debugw("Daemon config refreshed")
}

// Dispatcher routes a message to a Handler. Multiple is walked depth first in
// order, on the caller's goroutine, with an explicit stack instead of
// recursion.
type Dispatcher struct {
	handler  Handler
	observer func(Kind)
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver registers f to be called with the kind of every visited
// message, containers included.
func WithObserver(f func(Kind)) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = f
	}
}

// NewDispatcher creates a dispatcher. A nil handler behaves as NopHandler.
func NewDispatcher(handler Handler, opts ...DispatcherOption) *Dispatcher {
	if handler == nil {
		handler = NopHandler{}
	}
	d := &Dispatcher{handler: handler}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch handles msg and everything nested in it before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	stack := []Message{msg}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if m == nil {
			continue
		}
		if d.observer != nil {
			d.observer(m.Kind())
		}

		switch v := m.(type) {
		case Multiple:
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, v[i])
			}
		case UpdateTimer:
			d.handler.UpdateTimer(ctx, v.Timer)
		case UpdateTimerState:
			d.handler.UpdateTimerState(ctx, v.State)
		case UpdateProfiles:
			d.handler.UpdateProfiles(ctx, v)
		case RefreshedConfig:
			d.handler.RefreshedConfig(ctx)
		}
	}
}
