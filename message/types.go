// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package message

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/wangtaoking1/watchwah-agent/container/set"
)

// Kind is the variant tag of a Message, as it appears on the wire.
type Kind string

const (
	KindMultiple         Kind = "Multiple"
	KindUpdateTimer      Kind = "UpdateTimer"
	KindUpdateTimerState Kind = "UpdateTimerState"
	KindUpdateProfiles   Kind = "UpdateProfiles"
	KindRefreshedConfig  Kind = "RefreshedConfig"
)

// Message is a message pushed by the daemon. The set of implementations is
// closed: Multiple, UpdateTimer, UpdateTimerState, UpdateProfiles and
// RefreshedConfig.
type Message interface {
	Kind() Kind
	isMessage()
}

// Multiple carries messages that are handled in order.
type Multiple []Message

// UpdateTimer replaces the active timer. A nil Timer clears it.
type UpdateTimer struct {
	Timer *Timer
}

// UpdateTimerState replaces the state of the active timer.
type UpdateTimerState struct {
	State TimerState
}

// UpdateProfiles lists the profiles known to the daemon.
type UpdateProfiles []ProfileInfo

// RefreshedConfig tells that the daemon reloaded its configuration.
type RefreshedConfig struct{}

func (Multiple) Kind() Kind         { return KindMultiple }
func (UpdateTimer) Kind() Kind      { return KindUpdateTimer }
func (UpdateTimerState) Kind() Kind { return KindUpdateTimerState }
func (UpdateProfiles) Kind() Kind   { return KindUpdateProfiles }
func (RefreshedConfig) Kind() Kind  { return KindRefreshedConfig }

func (Multiple) isMessage()         {}
func (UpdateTimer) isMessage()      {}
func (UpdateTimerState) isMessage() {}
func (UpdateProfiles) isMessage()   {}
func (RefreshedConfig) isMessage()  {}

// Timer is a running focus session.
type Timer struct {
	Profile Profile `json:"profile"`
	// Goal is owned by the daemon and passed through untouched.
	Goal  json.RawMessage `json:"goal,omitempty"`
	State TimerState      `json:"state"`
}

// Profile is the set of rules a timer runs with.
type Profile struct {
	Pomodoro                     *PomodoroSettings `json:"pomodoro,omitempty"`
	Blocking                     Blocking          `json:"blocking"`
	CanStopBeforeGoalIsFulfilled bool              `json:"can_stop_before_goal_is_fulfilled"`
	CanPause                     bool              `json:"can_pause"`
	CanSkipWork                  bool              `json:"can_skip_work"`
}

// UnmarshalJSON applies the daemon defaults for absent fields.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	v := plain{
		CanStopBeforeGoalIsFulfilled: true,
		CanPause:                     true,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Profile(v)
	return nil
}

// PomodoroSettings splits work into periods separated by breaks.
type PomodoroSettings struct {
	WorkDur                 Seconds `json:"work_dur"`
	ShortBreakDur           Seconds `json:"short_break_dur"`
	LongBreakDur            Seconds `json:"long_break_dur"`
	SmallBreaksBeforeBigOne uint32  `json:"small_breaks_before_big_one"`
}

// UnmarshalJSON applies the daemon defaults for absent fields.
func (s *PomodoroSettings) UnmarshalJSON(data []byte) error {
	type plain PomodoroSettings
	v := plain{
		WorkDur:                 Seconds(25 * time.Minute),
		ShortBreakDur:           Seconds(5 * time.Minute),
		LongBreakDur:            Seconds(15 * time.Minute),
		SmallBreaksBeforeBigOne: 4,
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = PomodoroSettings(v)
	return nil
}

// Blocking describes what is blocked while working.
type Blocking struct {
	WindowNames  []string        `json:"window_names,omitempty"`
	ProcessPath  []string        `json:"process_path,omitempty"`
	Websites     set.Set[string] `json:"websites,omitempty"`
	HideWebVideo bool            `json:"hide_web_video"`
}

// MarshalJSON writes websites in ascending order so equal blockings encode
// to the same bytes.
func (b Blocking) MarshalJSON() ([]byte, error) {
	type plain Blocking
	v := struct {
		plain
		Websites []string `json:"websites,omitempty"`
	}{plain: plain(b)}
	if len(b.Websites) > 0 {
		v.Websites = set.Sorted(b.Websites)
	}
	return json.Marshal(v)
}

// TimerState is the progress record of a timer. Its layout belongs to the
// daemon and differs between daemon releases: newer ones send an object,
// older ones send a tagged enum whose unit variants are bare strings such as
// "NotCreated". Any JSON value is kept compact and never interpreted here.
type TimerState struct {
	raw json.RawMessage
}

// NewTimerState wraps a JSON value.
func NewTimerState(raw []byte) (TimerState, error) {
	var s TimerState
	if err := s.UnmarshalJSON(raw); err != nil {
		return TimerState{}, err
	}
	return s, nil
}

// Raw returns a copy of the compact JSON value, "{}" for an empty state.
func (s TimerState) Raw() json.RawMessage {
	if len(s.raw) == 0 {
		return json.RawMessage("{}")
	}
	return append(json.RawMessage(nil), s.raw...)
}

// IsEmpty reports whether the state is {} or null.
func (s TimerState) IsEmpty() bool {
	return len(s.raw) == 0
}

func (s TimerState) MarshalJSON() ([]byte, error) {
	return s.Raw(), nil
}

func (s *TimerState) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, bytes.TrimSpace(data)); err != nil {
		return errors.Wrap(ErrInvalidPayload, err.Error())
	}
	switch buf.String() {
	case "{}", "null":
		s.raw = nil
	default:
		s.raw = buf.Bytes()
	}
	return nil
}

// ProfileInfo names a profile the daemon can start a timer with.
type ProfileInfo struct {
	Name        string   `json:"name"`
	PomoWorkDur *Seconds `json:"pomo_work_dur"`
}

// UnmarshalJSON accepts the object form and the bare name sent by older
// daemons.
func (p *ProfileInfo) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		*p = ProfileInfo{}
		return json.Unmarshal(trimmed, &p.Name)
	}
	type plain ProfileInfo
	var v plain
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*p = ProfileInfo(v)
	return nil
}

// Seconds is a duration encoded as whole seconds.
type Seconds time.Duration

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(time.Duration(s)/time.Second), 10), nil
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = Seconds(time.Duration(n) * time.Second)
	return nil
}
