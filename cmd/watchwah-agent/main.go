// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/wangtaoking1/watchwah-agent/agent"
	"github.com/wangtaoking1/watchwah-agent/app"
)

func main() {
	opts := agent.NewOptions()
	application := app.NewApp("watchwah-agent",
		"watchwah agent",
		app.WithDescription("The watchwah agent keeps a websocket connection to the local watchwah "+
			"daemon and handles the timer updates it pushes."),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithCommands(agent.DecodeCommand()),
		app.WithRunFunc(agent.RunFunc(opts)),
	)

	application.Run()
}
