// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package message

import (
	"context"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/websocket"
)

// FrameDispatcher decodes websocket frames and hands the messages to a
// Dispatcher. Frames that do not decode are logged and dropped.
type FrameDispatcher struct {
	dispatcher *Dispatcher
	onError    func(frame *websocket.Frame, err error)
}

var _ websocket.Dispatcher = (*FrameDispatcher)(nil)

// FrameOption configures a FrameDispatcher.
type FrameOption func(*FrameDispatcher)

// WithDecodeError registers f to be called for every dropped frame.
func WithDecodeError(f func(frame *websocket.Frame, err error)) FrameOption {
	return func(fd *FrameDispatcher) {
		fd.onError = f
	}
}

// NewFrameDispatcher creates a FrameDispatcher on top of d.
func NewFrameDispatcher(d *Dispatcher, opts ...FrameOption) *FrameDispatcher {
	if d == nil {
		d = NewDispatcher(nil)
	}
	fd := &FrameDispatcher{dispatcher: d}
	for _, o := range opts {
		o(fd)
	}
	return fd
}

func (fd *FrameDispatcher) Dispatch(ctx context.Context, frame *websocket.Frame) {
	msg, err := Unmarshal(frame.Data)
	if err != nil {
		log.From(ctx).Warnw("Drop undecodable frame", "size", len(frame.Data), "error", err)
		if fd.onError != nil {
			fd.onError(frame, err)
		}
		return
	}
	fd.dispatcher.Dispatch(ctx, msg)
}
