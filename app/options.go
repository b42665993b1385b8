// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package app

import (
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/wangtaoking1/watchwah-agent/flag"
)

// CmdOptions are options filled from flags, environment and config file.
type CmdOptions interface {
	// Flags returns the flags of the options, grouped by section.
	Flags() (fss flag.NamedFlagSets)
	// Validate returns every invalid field.
	Validate() []error
}

// CompletableOptions fill derived fields before validation.
type CompletableOptions interface {
	Complete() error
}

// PrintableOptions are logged once they are valid.
type PrintableOptions interface {
	String() string
}

// completeAndValidate completes opts when supported, then validates it.
func completeAndValidate(opts CmdOptions) error {
	if c, ok := opts.(CompletableOptions); ok {
		if err := c.Complete(); err != nil {
			return err
		}
	}

	return multierr.Combine(opts.Validate()...)
}

// addFlagSets adds the flag sets to fs in section order.
func addFlagSets(fs *pflag.FlagSet, fss flag.NamedFlagSets) {
	for _, name := range fss.Order {
		fs.AddFlagSet(fss.FlagSets[name])
	}
}
