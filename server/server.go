// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/server/middleware"
)

// SetupFunc is the func used to set up the engine.
type SetupFunc func(g *gin.Engine) error

// StatusFunc returns the value served on /status.
type StatusFunc func() interface{}

// Option configures a Server.
type Option func(*Server)

// WithStatus sets the source of /status.
func WithStatus(f StatusFunc) Option {
	return func(s *Server) {
		s.status = f
	}
}

// Server is the local status server of the agent.
type Server struct {
	engine  *gin.Engine
	options *Options
	status  StatusFunc

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// New returns a new status server.
func New(options *Options, opts ...Option) *Server {
	if options == nil {
		options = NewOptions()
	}

	// use release mode derectly
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		options: options,
		engine:  gin.New(),
	}
	for _, o := range opts {
		o(s)
	}

	s.initServer()

	return s
}

func (s *Server) initServer() {
	s.engine.Use(gin.Recovery())
	s.setupGlobalMiddlewares()
	s.setupGlobalRouters()
}

func (s *Server) setupGlobalMiddlewares() {
	installed := make([]string, 0, len(s.options.Middlewares))
	for _, m := range s.options.Middlewares {
		mw := middleware.Get(m)
		if mw == nil {
			log.Warnf("Middleware %s can not found", m)

			continue
		}
		installed = append(installed, m)
		s.engine.Use(mw)
	}
	if len(installed) != 0 {
		log.Infof("Installed middlewares: %s", strings.Join(installed, ","))
	}
}

func (s *Server) setupGlobalRouters() {
	// installed first so the routers below are measured
	if s.options.Metrics {
		prometheus := ginprometheus.NewPrometheus("gin")
		prometheus.Use(s.engine)
	}

	if s.options.Healthz {
		s.addHealthzRouter()
	}
	s.addStatusRouter()

	if s.options.Profiling {
		pprof.Register(s.engine)
	}
}

// Setup adds custom routers or middlewares. It should be called before Run.
func (s *Server) Setup(setupFunc SetupFunc) error {
	if setupFunc == nil {
		return nil
	}

	return setupFunc(s.engine)
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the listening address once Run started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Run serves until ctx is done or Close is called.
//
//nolint:gosec
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.options.HTTP.Address())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.addr = ln.Addr().String()
	httpServer := s.httpServer
	s.mu.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Infof("Start to listening on http server: %s", ln.Addr())

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Infof("Server on %s stopped", ln.Addr())

		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		s.Close()

		return nil
	})

	// Do health check
	if s.options.Healthz {
		if err := s.healthCheck(ctx, ln.Addr().String()); err != nil && ctx.Err() == nil {
			log.Warnw("Status server is not healthy", "error", err)
		}
	}

	return eg.Wait()
}

// Close shutdowns the http server.
func (s *Server) Close() {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return
	}

	// The context is used to conform the server it has 10 seconds to finish
	// the requests handling currently
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warnf("Failed to shutdown http server: %s", err.Error())
	}
}
