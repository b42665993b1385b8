// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wangtaoking1/watchwah-agent/log"
)

// XRequestIDKey is the header and context key of the request id.
const XRequestIDKey = "X-Request-ID"

// RequestID reuses the X-Request-ID header or generates a new id, and puts a
// logger carrying it into the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(XRequestIDKey)
		if rid == "" {
			rid = uuid.NewString()
			c.Request.Header.Set(XRequestIDKey, rid)
		}
		c.Set(XRequestIDKey, rid)
		c.Writer.Header().Set(XRequestIDKey, rid)
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context(), "request_id", rid))

		c.Next()
	}
}

// Cors allows GET requests from local pages, such as the browser extension.
func Cors() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", XRequestIDKey},
		ExposeHeaders:    []string{XRequestIDKey},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})
}

// Logger writes a debug line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.From(c.Request.Context()).Debugw("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
