// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/utils/retry"
)

// Time allowed to write a ping to the server.
const writeWait = 10 * time.Second

// ErrAlreadyRunning is returned by Run when the client is already running.
var ErrAlreadyRunning = errors.New("websocket client is already running")

// OpenEvent describes an accepted connection.
type OpenEvent struct {
	ConnID   string
	Attempt  int64
	OpenedAt time.Time
}

// CloseEvent describes the end of an accepted connection. Err is nil when
// the client was stopped.
type CloseEvent struct {
	ConnID   string
	Err      error
	Duration time.Duration
}

// Stats is a snapshot of the client counters.
type Stats struct {
	URL          string     `json:"url"`
	Connected    bool       `json:"connected"`
	ConnID       string     `json:"conn_id,omitempty"`
	Attempts     int64      `json:"attempts"`
	Opens        int64      `json:"opens"`
	Closes       int64      `json:"closes"`
	Frames       int64      `json:"frames"`
	LastOpenedAt *time.Time `json:"last_opened_at,omitempty"`
}

// Client keeps a connection to a websocket server, reconnecting after every
// failed dial or disconnect until it is stopped. Frames are read and
// dispatched one at a time.
type Client struct {
	url        string
	opts       *Options
	dispatcher Dispatcher
	dialer     Dialer
	clock      retry.Clock
	backoff    retry.Backoff

	onOpen    func(c *Client, ev *OpenEvent)
	onMessage func(c *Client, frame *Frame)
	onClose   func(c *Client, ev *CloseEvent)

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	stats   Stats
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOptions sets dial, keepalive and reconnect settings.
func WithOptions(opts *Options) ClientOption {
	return func(c *Client) {
		c.opts = opts
	}
}

// WithBackoff overrides the reconnect backoff built from the options.
func WithBackoff(b retry.Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = b
	}
}

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithClock replaces the clock used to wait between attempts.
func WithClock(clock retry.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithOnOpen is called once for every accepted connection.
func WithOnOpen(f func(c *Client, ev *OpenEvent)) ClientOption {
	return func(c *Client) {
		c.onOpen = f
	}
}

// WithOnMessage is called for every text frame, before the dispatcher.
func WithOnMessage(f func(c *Client, frame *Frame)) ClientOption {
	return func(c *Client) {
		c.onMessage = f
	}
}

// WithOnClose is called once when an accepted connection ends. It does not
// stop the reconnect.
func WithOnClose(f func(c *Client, ev *CloseEvent)) ClientOption {
	return func(c *Client) {
		c.onClose = f
	}
}

// NewClient creates a client for rawURL. Nothing is dialed before Run.
func NewClient(rawURL string, dispatcher Dispatcher, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse websocket url %q", rawURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Errorf("websocket url %q must use ws or wss scheme", rawURL)
	}

	c := &Client{
		url:        rawURL,
		dispatcher: dispatcher,
		clock:      retry.RealClock(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.opts == nil {
		c.opts = NewOptions()
	}
	if c.dialer == nil {
		c.dialer = NewDialer(c.opts)
	}
	if c.backoff == nil {
		if c.backoff, err = c.opts.NewBackoff(); err != nil {
			return nil, err
		}
	}
	c.stats.URL = rawURL

	return c, nil
}

// URL returns the endpoint of the client.
func (c *Client) URL() string {
	return c.url
}

// Run connects and keeps the client connected until ctx is done or Stop is
// called. Connection failures are logged and retried without limit.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	for {
		attempt := c.addAttempt()
		conn, err := c.dialer.Dial(ctx, c.url)
		if ctx.Err() != nil {
			if conn != nil {
				_ = conn.Close()
			}
			return nil
		}
		if err != nil {
			log.Warnw("Connect websocket failed", "url", c.url, "attempt", attempt, "error", err)
		} else {
			c.backoff.Reset()
			c.serve(ctx, conn, attempt)
		}

		delay := c.backoff.Next()
		log.Debug("Reconnect websocket later", "url", c.url, "delay", delay)
		if err := retry.Sleep(ctx, c.clock, delay); err != nil {
			return nil
		}
	}
}

// Stop stops the client and closes its connection. A Run that has not yet
// started returns immediately.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	if s.LastOpenedAt != nil {
		t := *s.LastOpenedAt
		s.LastOpenedAt = &t
	}
	return s
}

func (c *Client) serve(ctx context.Context, conn Conn, attempt int64) {
	id := uuid.NewString()
	openedAt := time.Now()
	c.opened(id, openedAt)

	log.Infow("Websocket connected", "url", c.url, "conn_id", id, "attempt", attempt)
	if c.onOpen != nil {
		c.onOpen(c, &OpenEvent{ConnID: id, Attempt: attempt, OpenedAt: openedAt})
	}

	connCtx, cancel := context.WithCancel(ctx)
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		// unblocks ReadMessage
		<-connCtx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer wg.Done()
		c.pingLoop(connCtx, conn)
	}()

	err := c.readLoop(log.WithContext(connCtx, "conn_id", id), conn, id)
	cancel()
	wg.Wait()
	c.closed()

	if ctx.Err() != nil {
		err = nil
	}
	duration := time.Since(openedAt)
	if err != nil {
		log.Infow("Websocket closed", "url", c.url, "conn_id", id, "duration", duration, "error", err)
	} else {
		log.Infow("Websocket closed", "url", c.url, "conn_id", id, "duration", duration)
	}
	if c.onClose != nil {
		c.onClose(c, &CloseEvent{ConnID: id, Err: err, Duration: duration})
	}
}

func (c *Client) readLoop(ctx context.Context, conn Conn, id string) error {
	conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		frame := &Frame{ConnID: id, Data: data, ReceivedAt: time.Now()}
		c.addFrame()
		if c.onMessage != nil {
			c.onMessage(c, frame)
		}
		c.dispatch(ctx, frame)
	}
}

func (c *Client) dispatch(ctx context.Context, frame *Frame) {
	if c.dispatcher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.From(ctx).Errorw("Dispatch frame panic", "error", r)
		}
	}()

	c.dispatcher.Dispatch(ctx, frame)
}

func (c *Client) pingLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				log.Warnw("Write ping message failed", "url", c.url, "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Client) addAttempt() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Attempts++
	return c.stats.Attempts
}

func (c *Client) addFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Frames++
}

func (c *Client) opened(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Connected = true
	c.stats.ConnID = id
	c.stats.Opens++
	c.stats.LastOpenedAt = &at
}

func (c *Client) closed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Connected = false
	c.stats.ConnID = ""
	c.stats.Closes++
}
