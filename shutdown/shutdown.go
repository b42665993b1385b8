// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package shutdown

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/wangtaoking1/watchwah-agent/log"
)

// ErrTimeout is reported when callbacks do not return in time.
var ErrTimeout = errors.New("shutdown callbacks timed out")

// Callback is an interface you have to implement for callbacks.
type Callback interface {
	// OnShutdown will be called when shutdown is triggered. The parameter
	// is the name of the shutdown trigger that trigger shutdown.
	OnShutdown(string) error
}

// CallbackFunc is a helper type, so you can easily provide anonymous functions
// as shutdown Callbacks.
type CallbackFunc func(string) error

func (f CallbackFunc) OnShutdown(trigger string) error {
	return f(trigger)
}

// ErrorHandler is an interface you can pass to SetErrorHandler to
// handle asynchronous errors.
type ErrorHandler interface {
	OnError(error)
}

// ErrorFunc is a helper type, so you can easily provide anonymous functions
// as ErrorHandlers.
type ErrorFunc func(err error)

// OnError defines the action needed to run when error occurred.
func (f ErrorFunc) OnError(err error) {
	f(err)
}

// Executor is the interface of execute func after triggering shutdown.
type Executor interface {
	Execute(Trigger)
}

// ExecuteFunc defines the execute func.
type ExecuteFunc func(Trigger)

func (f ExecuteFunc) Execute(trigger Trigger) {
	f(trigger)
}

// Trigger is an interface implemented by shutdown triggers.
type Trigger interface {
	// Name returns the name of the trigger.
	Name() string
	// Start starts the trigger to listen some shutdown requests.
	Start(Executor) error
	// After is called once all callbacks returned.
	After()
}

// Shutdown runs the registered callbacks the first time one of its triggers
// fires.
type Shutdown interface {
	// Start starts the triggers.
	Start() error
	// AddCallback adds callback func to the shutdown controller.
	AddCallback(Callback)
	// SetErrorHandler set errorHandler for the shutdown controller.
	SetErrorHandler(ErrorHandler)
	// Done is closed when the shutdown finished.
	Done() <-chan struct{}
	// Err returns the combined callback errors once Done is closed.
	Err() error
}

// Option configures the shutdown controller.
type Option func(*shutdownController)

// WithTimeout bounds the time callbacks may take. Zero waits forever.
func WithTimeout(d time.Duration) Option {
	return func(g *shutdownController) {
		g.timeout = d
	}
}

type shutdownController struct {
	triggers     []Trigger
	timeout      time.Duration
	mu           sync.Mutex
	callbacks    []Callback
	errorHandler ErrorHandler
	once         sync.Once
	done         chan struct{}
	err          error
}

// New returns a new graceful shutdown instance with the specified triggers.
func New(triggers []Trigger, opts ...Option) Shutdown {
	g := &shutdownController{
		triggers:  triggers,
		callbacks: make([]Callback, 0, 1),
		done:      make(chan struct{}),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *shutdownController) AddCallback(cb Callback) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.callbacks = append(g.callbacks, cb)
}

func (g *shutdownController) SetErrorHandler(h ErrorHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.errorHandler = h
}

func (g *shutdownController) Start() error {
	for _, t := range g.triggers {
		if err := t.Start(ExecuteFunc(g.execute)); err != nil {
			return errors.WithMessagef(err, "start shutdown trigger %s error", t.Name())
		}
	}

	return nil
}

func (g *shutdownController) Done() <-chan struct{} {
	return g.done
}

func (g *shutdownController) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

func (g *shutdownController) execute(trigger Trigger) {
	g.once.Do(func() {
		log.Infow("Shutdown triggered", "trigger", trigger.Name())

		g.mu.Lock()
		callbacks := append([]Callback(nil), g.callbacks...)
		g.mu.Unlock()

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			errs error
		)
		for _, cb := range callbacks {
			wg.Add(1)
			go func(callback Callback) {
				defer wg.Done()

				if err := callback.OnShutdown(trigger.Name()); err != nil {
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
					g.handleError(err)
				}
			}(cb)
		}

		if !g.wait(&wg) {
			mu.Lock()
			errs = multierr.Append(errs, ErrTimeout)
			mu.Unlock()
			g.handleError(ErrTimeout)
		}

		mu.Lock()
		g.err = errs
		mu.Unlock()

		trigger.After()
		close(g.done)
	})
}

// wait reports whether wg finished before the timeout.
func (g *shutdownController) wait(wg *sync.WaitGroup) bool {
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	if g.timeout <= 0 {
		<-finished
		return true
	}
	select {
	case <-finished:
		return true
	case <-time.After(g.timeout):
		return false
	}
}

func (g *shutdownController) handleError(err error) {
	g.mu.Lock()
	h := g.errorHandler
	g.mu.Unlock()

	if h == nil {
		log.Warnw("Shutdown callback failed", "error", err)
		return
	}
	h.OnError(err)
}
