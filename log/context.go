// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package log

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// With returns the global logger with the given fields.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return SugarLogger().With(keysAndValues...)
}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// WithContext returns a copy of ctx whose logger has the given fields added,
// such as the connection or request id.
func WithContext(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return NewContext(ctx, From(ctx).With(keysAndValues...))
}

// From returns the logger carried by ctx, or the global logger.
func From(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	return SugarLogger()
}
