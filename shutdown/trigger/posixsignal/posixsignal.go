// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package posixsignal

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/shutdown"
)

// Name defines shutdown manager name.
const Name = "PosixSignalTrigger"

// trigger fires a shutdown on the first received signal. A second signal
// while callbacks are running exits the process.
type trigger struct {
	signals []os.Signal
	ch      chan os.Signal
	exit    func(code int)
}

var _ shutdown.Trigger = (*trigger)(nil)

func (t *trigger) Name() string {
	return Name
}

// Start starts listening for posix signals.
func (t *trigger) Start(executor shutdown.Executor) error {
	t.ch = make(chan os.Signal, 2)
	signal.Notify(t.ch, t.signals...)

	go func() {
		sig, ok := <-t.ch
		if !ok {
			return
		}
		log.Infow("Received signal", "signal", sig.String())

		go t.forceExit()
		executor.Execute(t)
	}()

	return nil
}

func (t *trigger) forceExit() {
	sig, ok := <-t.ch
	if !ok {
		return
	}
	log.Warnw("Received second signal, exit immediately", "signal", sig.String())
	t.exit(1)
}

// After stops listening for signals.
func (t *trigger) After() {
	signal.Stop(t.ch)
	close(t.ch)
}

// New initializes the PosixSignalTrigger.
// You can provide os.Signal-s as arguments, if none given,
// it will use SIGINT and SIGTERM default.
func New(sig ...os.Signal) shutdown.Trigger {
	if len(sig) == 0 {
		sig = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	return &trigger{
		signals: sig,
		exit:    os.Exit,
	}
}
