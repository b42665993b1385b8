// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/wangtaoking1/watchwah-agent/app"
	"github.com/wangtaoking1/watchwah-agent/flag"
	"github.com/wangtaoking1/watchwah-agent/message"
)

// DecodeOptions contains options of the decode command.
type DecodeOptions struct {
	File           string `json:"file"             mapstructure:"file"`
	MaxMessageSize int    `json:"max-message-size" mapstructure:"max-message-size"`
}

// NewDecodeOptions returns the default decode options.
func NewDecodeOptions() *DecodeOptions {
	return &DecodeOptions{
		File:           "-",
		MaxMessageSize: 1 << 20,
	}
}

func (o *DecodeOptions) Flags() (fss flag.NamedFlagSets) {
	o.AddFlags(fss.FlagSet("decode"))

	return fss
}

func (o *DecodeOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.File, "file", "f", o.File, "Read one message per line from `FILE`, - for stdin.")
	fs.IntVar(&o.MaxMessageSize, "max-message-size", o.MaxMessageSize, "Maximum byte size of a line.")
}

func (o *DecodeOptions) Validate() []error {
	var errs []error
	if o.File == "" {
		errs = append(errs, fmt.Errorf("--file must not be empty"))
	}
	if o.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("--max-message-size %d must be positive", o.MaxMessageSize))
	}

	return errs
}

// DecodeCommand returns the decode sub command, which prints the handler calls
// produced by recorded messages.
func DecodeCommand() app.Command {
	opts := NewDecodeOptions()

	return app.NewCommand("decode",
		"Decode recorded daemon messages",
		app.WithCmdDescription("Decode daemon messages, one JSON message per line, and print the "+
			"leaf messages in dispatch order in their normalized form."),
		app.WithCmdOptions(opts),
		app.WithCmdRunFunc(func(ctx context.Context, _ string) error {
			r := io.Reader(os.Stdin)
			if opts.File != "-" {
				f, err := os.Open(opts.File)
				if err != nil {
					return errors.Wrap(err, "open messages")
				}
				defer f.Close()
				r = f
			}
			_, err := Decode(ctx, r, os.Stdout, opts.MaxMessageSize)

			return err
		}),
	)
}

// Decode reads one message per line from r and writes every leaf message it
// dispatches to w. Lines that do not decode are reported and skipped. It
// returns the number of dropped lines.
func Decode(ctx context.Context, r io.Reader, w io.Writer, maxSize int) (int, error) {
	p := &printer{w: w}
	d := message.NewDispatcher(p)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(4096, maxSize)), maxSize)
	dropped := 0
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return dropped, err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		msg, err := message.Unmarshal(data)
		if err != nil {
			dropped++
			_, _ = fmt.Fprintf(w, "line %d: %v\n", line, err)
			continue
		}
		d.Dispatch(ctx, msg)
		if p.err != nil {
			return dropped, p.err
		}
	}

	return dropped, errors.Wrap(scanner.Err(), "read messages")
}

// printer writes each leaf message in its normalized form.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) print(m message.Message) {
	if p.err != nil {
		return
	}
	data, err := message.Marshal(m)
	if err == nil {
		_, err = fmt.Fprintf(p.w, "%s\n", data)
	}
	p.err = err
}

func (p *printer) UpdateTimer(_ context.Context, timer *message.Timer) {
	p.print(message.UpdateTimer{Timer: timer})
}

func (p *printer) UpdateTimerState(_ context.Context, state message.TimerState) {
	p.print(message.UpdateTimerState{State: state})
}

func (p *printer) UpdateProfiles(_ context.Context, profiles []message.ProfileInfo) {
	p.print(message.UpdateProfiles(profiles))
}

func (p *printer) RefreshedConfig(context.Context) {
	p.print(message.RefreshedConfig{})
}
