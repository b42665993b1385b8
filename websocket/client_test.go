// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

type fakeFrame struct {
	messageType int
	data        string
}

// fakeConn serves its frames, then fails the next read unless held open.
// Pings fail with pingErr when it is set.
type fakeConn struct {
	frames  []fakeFrame
	hold    bool
	pingErr error
	pings   int32
	closeCh chan struct{}
	once    sync.Once
}

func newFakeConn(hold bool, frames ...fakeFrame) *fakeConn {
	return &fakeConn{frames: frames, hold: hold, closeCh: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	if len(c.frames) > 0 {
		f := c.frames[0]
		c.frames = c.frames[1:]
		return f.messageType, []byte(f.data), nil
	}
	if c.hold {
		<-c.closeCh
		return 0, nil, errors.New("use of closed connection")
	}
	return 0, nil, &websocket.CloseError{Code: websocket.CloseGoingAway}
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	if messageType == websocket.PingMessage {
		atomic.AddInt32(&c.pings, 1)
	}
	return c.pingErr
}

func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closeCh) })
	return nil
}

// fakeDialer plays the scripted results in order, then refuses.
type fakeDialer struct {
	mu      sync.Mutex
	results []Conn
	dials   int
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.results) == 0 {
		return nil, errRefused
	}
	conn := d.results[0]
	d.results = d.results[1:]
	if conn == nil {
		return nil, errRefused
	}
	return conn, nil
}

// fakeClock fires immediately and cancels the client after limit waits.
type fakeClock struct {
	mu     sync.Mutex
	waits  []time.Duration
	limit  int
	cancel context.CancelFunc
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	if len(c.waits) >= c.limit {
		c.cancel()
		return nil
	}
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type recorder struct {
	mu     sync.Mutex
	frames []string
}

func (r *recorder) Dispatch(_ context.Context, frame *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(frame.Data))
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:63086/ws", nil)
	assert.Error(t, err)

	_, err = NewClient("://bad", nil)
	assert.Error(t, err)

	c, err := NewClient(DefaultURL, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, c.URL())
}

func TestClient_RetriesRefusedConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{limit: 5, cancel: cancel}
	dialer := &fakeDialer{}
	opens := 0
	c, err := NewClient(DefaultURL, nil,
		WithDialer(dialer),
		WithClock(clock),
		WithOnOpen(func(*Client, *OpenEvent) { opens++ }),
	)
	require.NoError(t, err)

	assert.NoError(t, c.Run(ctx))

	assert.Equal(t, 5, dialer.dials)
	assert.Len(t, clock.waits, 5)
	for _, d := range clock.waits {
		assert.Equal(t, 3000*time.Millisecond, d)
	}
	assert.Equal(t, 0, opens)

	stats := c.Stats()
	assert.Equal(t, int64(5), stats.Attempts)
	assert.False(t, stats.Connected)
}

func TestClient_OpenAfterFailedAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn(false,
		fakeFrame{websocket.TextMessage, `{"Multiple":[]}`},
		fakeFrame{websocket.BinaryMessage, `ignored`},
		fakeFrame{websocket.TextMessage, `"RefreshedConfig"`},
	)
	dialer := &fakeDialer{results: []Conn{nil, nil, nil, conn}}
	clock := &fakeClock{limit: 6, cancel: cancel}
	rec := &recorder{}

	var (
		opens, closes, messages int
		openEvent               *OpenEvent
		closeEvent              *CloseEvent
	)
	c, err := NewClient(DefaultURL, rec,
		WithDialer(dialer),
		WithClock(clock),
		WithOnOpen(func(c *Client, ev *OpenEvent) {
			opens++
			openEvent = ev
			assert.True(t, c.Stats().Connected)
		}),
		WithOnMessage(func(*Client, *Frame) { messages++ }),
		WithOnClose(func(c *Client, ev *CloseEvent) {
			closes++
			closeEvent = ev
			assert.False(t, c.Stats().Connected)
		}),
	)
	require.NoError(t, err)

	assert.NoError(t, c.Run(ctx))

	// three refusals, one accepted connection, two more refusals
	assert.Equal(t, 6, dialer.dials)
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
	assert.Equal(t, 2, messages)
	assert.Equal(t, []string{`{"Multiple":[]}`, `"RefreshedConfig"`}, rec.got())

	require.NotNil(t, openEvent)
	assert.Equal(t, int64(4), openEvent.Attempt)
	require.NotNil(t, closeEvent)
	assert.Equal(t, openEvent.ConnID, closeEvent.ConnID)
	assert.Error(t, closeEvent.Err)

	for _, d := range clock.waits {
		assert.Equal(t, 3*time.Second, d)
	}

	stats := c.Stats()
	assert.Equal(t, int64(6), stats.Attempts)
	assert.Equal(t, int64(1), stats.Opens)
	assert.Equal(t, int64(1), stats.Closes)
	assert.Equal(t, int64(2), stats.Frames)
	assert.NotNil(t, stats.LastOpenedAt)
}

func TestClient_OneOpenPerHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialer := &fakeDialer{results: []Conn{newFakeConn(false), nil, newFakeConn(false), newFakeConn(false)}}
	clock := &fakeClock{limit: 4, cancel: cancel}
	var ids []string
	c, err := NewClient(DefaultURL, nil,
		WithDialer(dialer),
		WithClock(clock),
		WithOnOpen(func(_ *Client, ev *OpenEvent) { ids = append(ids, ev.ConnID) }),
	)
	require.NoError(t, err)

	assert.NoError(t, c.Run(ctx))

	assert.Len(t, ids, 3)
	assert.NotEqual(t, ids[0], ids[1])
	assert.Equal(t, int64(3), c.Stats().Opens)
}

func TestClient_StopClosesLiveConnection(t *testing.T) {
	conn := newFakeConn(true)
	dialer := &fakeDialer{results: []Conn{conn}}

	opened := make(chan struct{})
	var closeEvent *CloseEvent
	c, err := NewClient(DefaultURL, nil,
		WithDialer(dialer),
		WithOnOpen(func(*Client, *OpenEvent) { close(opened) }),
		WithOnClose(func(_ *Client, ev *CloseEvent) { closeEvent = ev }),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for open")
	}
	assert.ErrorIs(t, c.Run(context.Background()), ErrAlreadyRunning)

	c.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for stop")
	}
	require.NotNil(t, closeEvent)
	assert.NoError(t, closeEvent.Err)
	assert.Equal(t, 1, dialer.dials)
}

func TestClient_StopBeforeRun(t *testing.T) {
	dialer := &fakeDialer{}
	c, err := NewClient(DefaultURL, nil, WithDialer(dialer))
	require.NoError(t, err)

	c.Stop()
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, 0, dialer.dials)
}

func TestClient_FailedPingReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn(true)
	conn.pingErr = errors.New("broken pipe")
	dialer := &fakeDialer{results: []Conn{conn}}
	clock := &fakeClock{limit: 2, cancel: cancel}

	opts := NewOptions()
	opts.PingInterval = 10 * time.Millisecond
	opts.PongWait = 50 * time.Millisecond

	var closes []*CloseEvent
	c, err := NewClient(DefaultURL, nil,
		WithOptions(opts),
		WithDialer(dialer),
		WithClock(clock),
		WithOnClose(func(_ *Client, ev *CloseEvent) { closes = append(closes, ev) }),
	)
	require.NoError(t, err)

	assert.NoError(t, c.Run(ctx))

	assert.Equal(t, int32(1), atomic.LoadInt32(&conn.pings))
	require.Len(t, closes, 1)
	assert.Error(t, closes[0].Err)
	// the failed ping closed the connection, then one more dial was made
	assert.Equal(t, 2, dialer.dials)
}

func TestClient_MissingPongReconnects(t *testing.T) {
	var handshakes int32
	release := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		atomic.AddInt32(&handshakes, 1)
		// never reads, so pings are never answered
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	})
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := NewOptions()
	opts.PingInterval = 20 * time.Millisecond
	opts.PongWait = 100 * time.Millisecond
	opts.ReconnectInterval = 10 * time.Millisecond

	opens := 0
	var closes []*CloseEvent
	c, err := NewClient(wsURL(server), nil,
		WithOptions(opts),
		WithOnOpen(func(*Client, *OpenEvent) {
			opens++
			if opens == 2 {
				cancel()
			}
		}),
		WithOnClose(func(_ *Client, ev *CloseEvent) { closes = append(closes, ev) }),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reconnect")
	}

	assert.Equal(t, 2, opens)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&handshakes) == 2 }, time.Second, 10*time.Millisecond)
	require.Len(t, closes, 2)
	assert.Error(t, closes[0].Err)
	assert.GreaterOrEqual(t, closes[0].Duration, opts.PongWait)
	assert.NoError(t, closes[1].Err)
}

func TestClient_RecoversDispatchPanic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newFakeConn(false,
		fakeFrame{websocket.TextMessage, "boom"},
		fakeFrame{websocket.TextMessage, "after"},
	)
	var got []string
	dispatcher := DispatcherFunc(func(_ context.Context, frame *Frame) {
		if string(frame.Data) == "boom" {
			panic("boom")
		}
		got = append(got, string(frame.Data))
	})
	c, err := NewClient(DefaultURL, dispatcher,
		WithDialer(&fakeDialer{results: []Conn{conn}}),
		WithClock(&fakeClock{limit: 1, cancel: cancel}),
	)
	require.NoError(t, err)

	assert.NoError(t, c.Run(ctx))
	assert.Equal(t, []string{"after"}, got)
}

// mockWSServer creates a test websocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestClient_GorillaServer(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range []string{`{"UpdateTimer":null}`, `{"UpdateTimerState":{}}`} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	closed := make(chan *CloseEvent, 1)
	opts := NewOptions()
	c, err := NewClient(wsURL(server), rec,
		WithOptions(opts),
		WithOnClose(func(_ *Client, ev *CloseEvent) {
			closed <- ev
			cancel()
		}),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case ev := <-closed:
		assert.True(t, websocket.IsCloseError(ev.Err, websocket.CloseNormalClosure) || ev.Err == nil)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for close")
	}
	<-done

	assert.Equal(t, []string{`{"UpdateTimer":null}`, `{"UpdateTimerState":{}}`}, rec.got())
	assert.Equal(t, int64(1), c.Stats().Opens)
}
