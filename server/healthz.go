// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/utils/retry"
)

const (
	healthzPath = "/healthz"
	statusPath  = "/status"
)

func (s *Server) addHealthzRouter() {
	s.engine.GET(healthzPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (s *Server) addStatusRouter() {
	s.engine.GET(statusPath, func(c *gin.Context) {
		if s.status == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, s.status())
	})
}

func (s *Server) healthCheck(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Ping the server to make sure the router is working.
	if err := s.ping(ctx, addr); err != nil {
		return errors.WithMessage(err, "healthz check failed")
	}

	return nil
}

// ping pings the http server to make sure the router is working.
func (s *Server) ping(ctx context.Context, addr string) error {
	if host, port, err := net.SplitHostPort(addr); err == nil && (host == "0.0.0.0" || host == "::") {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	url := fmt.Sprintf("http://%s%s", addr, healthzPath)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				log.Debug("The router has been deployed successfully.")
				return nil
			}
		}

		log.Debug("Waiting for the router deploy, retry in 1 second.")
		if err := retry.Sleep(ctx, retry.RealClock(), time.Second); err != nil {
			return errors.Wrap(err, "can not ping http server within the specified time interval")
		}
	}
}
