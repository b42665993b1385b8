// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wangtaoking1/watchwah-agent/app"
	"github.com/wangtaoking1/watchwah-agent/flag"
	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/server"
	"github.com/wangtaoking1/watchwah-agent/websocket"
)

// Options contains all options of the agent.
type Options struct {
	Log             *log.Options       `json:"log"              mapstructure:"log"`
	Websocket       *websocket.Options `json:"websocket"        mapstructure:"websocket"`
	Server          *server.Options    `json:"server"           mapstructure:"server"`
	ShutdownTimeout time.Duration      `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

var (
	_ app.CmdOptions       = (*Options)(nil)
	_ app.PrintableOptions = (*Options)(nil)
)

// NewOptions returns the default agent options.
func NewOptions() *Options {
	return &Options{
		Log:             log.NewOptions(),
		Websocket:       websocket.NewOptions(),
		Server:          server.NewOptions(),
		ShutdownTimeout: 10 * time.Second,
	}
}

func (o *Options) Flags() (fss flag.NamedFlagSets) {
	o.Websocket.AddFlags(fss.FlagSet("websocket"))
	o.Log.AddFlags(fss.FlagSet("log"))
	o.Server.AddFlags(fss.FlagSet("server"))

	fs := fss.FlagSet("generic")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, ""+
		"Time allowed to close the connection and the status server on shutdown, 0 waits forever.")

	return fss
}

func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Websocket.Validate()...)
	errs = append(errs, o.Server.Validate()...)
	if o.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("--shutdown-timeout %v must not be negative", o.ShutdownTimeout))
	}

	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)

	return string(data)
}
