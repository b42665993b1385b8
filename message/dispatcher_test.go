// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package message

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *recordingHandler) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, s)
}

func (h *recordingHandler) got() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *recordingHandler) UpdateTimer(_ context.Context, timer *Timer) {
	h.record(fmt.Sprintf("UpdateTimer(%t)", timer != nil))
}

func (h *recordingHandler) UpdateTimerState(_ context.Context, state TimerState) {
	h.record("UpdateTimerState(" + string(state.Raw()) + ")")
}

func (h *recordingHandler) UpdateProfiles(_ context.Context, profiles []ProfileInfo) {
	h.record(fmt.Sprintf("UpdateProfiles(%d)", len(profiles)))
}

func (h *recordingHandler) RefreshedConfig(context.Context) {
	h.record("RefreshedConfig")
}

// trace returns the handler calls msg produces.
func trace(msg Message) []string {
	h := &recordingHandler{}
	NewDispatcher(h).Dispatch(context.Background(), msg)
	return h.got()
}

func TestDispatch_Order(t *testing.T) {
	msg, err := Unmarshal([]byte(`{"Multiple":[{"UpdateTimer":null},{"UpdateTimerState":{}}]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"UpdateTimer(false)", "UpdateTimerState({})"}, trace(msg))
}

func TestDispatch_Nested(t *testing.T) {
	msg := Multiple{
		RefreshedConfig{},
		Multiple{
			UpdateTimer{Timer: &Timer{}},
			Multiple{},
			Multiple{UpdateProfiles{{Name: "a"}, {Name: "b"}}},
		},
		nil,
		UpdateTimerState{},
	}

	assert.Equal(t, []string{
		"RefreshedConfig",
		"UpdateTimer(true)",
		"UpdateProfiles(2)",
		"UpdateTimerState({})",
	}, trace(msg))
}

func TestDispatch_EmptyMultiple(t *testing.T) {
	assert.Empty(t, trace(Multiple{}))
	assert.Empty(t, trace(Multiple(nil)))
	assert.Empty(t, trace(Multiple{Multiple{}, Multiple{Multiple{}}}))
	assert.Empty(t, trace(nil))
}

func TestDispatch_Flattening(t *testing.T) {
	leaves := []Message{UpdateTimer{}, RefreshedConfig{}, UpdateTimerState{}}
	flat := trace(Multiple(leaves))

	// grouping does not change the order of the leaves
	assert.Equal(t, flat, trace(Multiple{Multiple{leaves[0]}, Multiple{leaves[1], Multiple{leaves[2]}}}))
	assert.Equal(t, flat, trace(Multiple{Multiple(leaves)}))

	// dispatching twice repeats the calls
	h := &recordingHandler{}
	d := NewDispatcher(h)
	d.Dispatch(context.Background(), Multiple(leaves))
	d.Dispatch(context.Background(), Multiple(leaves))
	assert.Equal(t, append(flat, flat...), h.got())
}

func TestDispatch_DeepNesting(t *testing.T) {
	var msg Message = RefreshedConfig{}
	for i := 0; i < 100000; i++ {
		msg = Multiple{msg}
	}
	assert.Equal(t, []string{"RefreshedConfig"}, trace(msg))
}

func TestDispatch_Observer(t *testing.T) {
	var kinds []Kind
	d := NewDispatcher(nil, WithObserver(func(k Kind) { kinds = append(kinds, k) }))

	d.Dispatch(context.Background(), Multiple{UpdateTimer{}, Multiple{RefreshedConfig{}}})
	assert.Equal(t, []Kind{KindMultiple, KindUpdateTimer, KindMultiple, KindRefreshedConfig}, kinds)
}

type timerOnly struct {
	NopHandler
	timers int
}

func (h *timerOnly) UpdateTimer(context.Context, *Timer) { h.timers++ }

func TestDispatch_PartialHandler(t *testing.T) {
	h := &timerOnly{}
	d := NewDispatcher(h)
	d.Dispatch(context.Background(), Multiple{UpdateTimer{}, UpdateProfiles{}, RefreshedConfig{}, UpdateTimer{}})
	assert.Equal(t, 2, h.timers)
}

func TestLoggingHandler(t *testing.T) {
	msg, err := Unmarshal([]byte(`{"Multiple":[
		{"UpdateTimer":{"profile":{"blocking":{"websites":["a.com"]}},"state":{}}},
		{"UpdateTimer":null},
		{"UpdateTimerState":{"x":1}},
		{"UpdateProfiles":["work"]},
		"RefreshedConfig"
	]}`))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		NewDispatcher(LoggingHandler{}).Dispatch(context.Background(), msg)
	})
}
