// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/wangtaoking1/watchwah-agent/utils/retry"
)

// DefaultURL is the endpoint served by the local watchwah daemon.
const DefaultURL = "ws://127.0.0.1:63086/ws"

// Options contains configuration options of the websocket client.
type Options struct {
	URL               string        `json:"url"                mapstructure:"url"`
	Backoff           string        `json:"backoff"            mapstructure:"backoff"`
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
	ReconnectMax      time.Duration `json:"reconnect-max"      mapstructure:"reconnect-max"`
	HandshakeTimeout  time.Duration `json:"handshake-timeout"  mapstructure:"handshake-timeout"`
	ReadBufferSize    int           `json:"read-buffer-size"   mapstructure:"read-buffer-size"`
	WriteBufferSize   int           `json:"write-buffer-size"  mapstructure:"write-buffer-size"`
	Compression       bool          `json:"compression"        mapstructure:"compression"`
	MaxMessageSize    int64         `json:"max-message-size"   mapstructure:"max-message-size"`
	PingInterval      time.Duration `json:"ping-interval"      mapstructure:"ping-interval"`
	PongWait          time.Duration `json:"pong-wait"          mapstructure:"pong-wait"`
}

// NewOptions return the default options, a constant 3s reconnect to the
// local daemon.
func NewOptions() *Options {
	return &Options{
		URL:               DefaultURL,
		Backoff:           string(retry.KindConstant),
		ReconnectInterval: 3 * time.Second,
		ReconnectMax:      time.Minute,
		HandshakeTimeout:  10 * time.Second,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		Compression:       false,
		MaxMessageSize:    1 << 20,
		PingInterval:      10 * time.Second,
		PongWait:          30 * time.Second,
	}
}

func (o *Options) Validate() []error {
	var errs []error
	u, err := url.Parse(o.URL)
	if err != nil {
		errs = append(errs, fmt.Errorf("--websocket.url %q is invalid: %v", o.URL, err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("--websocket.url %q must use ws or wss scheme", o.URL))
	}
	if _, err := retry.NewBackoff(retry.Kind(o.Backoff), o.ReconnectInterval, o.ReconnectMax); err != nil {
		errs = append(errs, fmt.Errorf("--websocket.backoff: %v", err))
	}
	if o.ReconnectInterval <= 0 {
		errs = append(errs, fmt.Errorf("--websocket.reconnect-interval %v must be positive", o.ReconnectInterval))
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		errs = append(errs, fmt.Errorf("--websocket.ping-interval %v must be positive and less than --websocket.pong-wait %v",
			o.PingInterval, o.PongWait))
	}
	return errs
}

// NewBackoff builds the reconnect backoff described by the options.
func (o *Options) NewBackoff() (retry.Backoff, error) {
	return retry.NewBackoff(retry.Kind(o.Backoff), o.ReconnectInterval, o.ReconnectMax)
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.URL, "websocket.url", o.URL, "The websocket endpoint of the watchwah daemon.")
	fs.StringVar(&o.Backoff, "websocket.backoff", o.Backoff, "Reconnect backoff policy, one of constant, linear, exponential.")
	fs.DurationVar(&o.ReconnectInterval, "websocket.reconnect-interval", o.ReconnectInterval, ""+
		"Delay before reconnecting. It is the initial delay of the linear and exponential policies.")
	fs.DurationVar(&o.ReconnectMax, "websocket.reconnect-max", o.ReconnectMax, "Upper bound of linear and exponential reconnect delays.")
	fs.DurationVar(&o.HandshakeTimeout, "websocket.handshake-timeout", o.HandshakeTimeout, "Timeout of the websocket handshake.")
	fs.IntVar(&o.ReadBufferSize, "websocket.read-buffer-size", o.ReadBufferSize, "The byte size of websocket read buffer")
	fs.IntVar(&o.WriteBufferSize, "websocket.write-buffer-size", o.WriteBufferSize, "The byte size of websocket write buffer")
	fs.BoolVar(&o.Compression, "websocket.compression", o.Compression, "Enable compression for websocket message")
	fs.Int64Var(&o.MaxMessageSize, "websocket.max-message-size", o.MaxMessageSize, "Maximum byte size of an inbound frame, 0 for no limit.")
	fs.DurationVar(&o.PingInterval, "websocket.ping-interval", o.PingInterval, "Interval of keepalive pings.")
	fs.DurationVar(&o.PongWait, "websocket.pong-wait", o.PongWait, "Time allowed to read the next pong from the server.")
}
