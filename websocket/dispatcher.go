// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"time"
)

// Frame is one text frame received from the server.
type Frame struct {
	ConnID     string
	Data       []byte
	ReceivedAt time.Time
}

// Dispatcher handles the frames read by a Client. Dispatch runs on the read
// goroutine, so the next frame is not read before it returns.
type Dispatcher interface {
	Dispatch(ctx context.Context, frame *Frame)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, frame *Frame)

func (f DispatcherFunc) Dispatch(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}
