// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package app

import (
	"os"

	"github.com/spf13/cobra"
)

// Command is a sub command of an application.
type Command interface {
	// AddCommands add children commands to the Command.
	AddCommands(cmds ...Command)
	// Command returns the cobra command of the Command.
	Command() *cobra.Command
}

type command struct {
	name        string
	short       string
	description string
	options     CmdOptions
	commands    []Command
	runFunc     RunFunc

	cmd *cobra.Command
}

// CommandOption configures a sub command.
type CommandOption func(*command)

// WithCmdOptions binds the command flags to opt. They are validated before
// the run func is called.
func WithCmdOptions(opt CmdOptions) CommandOption {
	return func(c *command) {
		c.options = opt
	}
}

// WithCmdDescription is used to set the description of the command.
func WithCmdDescription(desc string) CommandOption {
	return func(c *command) {
		c.description = desc
	}
}

// WithCmdRunFunc sets the func run by the command.
func WithCmdRunFunc(run RunFunc) CommandOption {
	return func(c *command) {
		c.runFunc = run
	}
}

// NewCommand creates a sub command.
func NewCommand(name string, short string, opts ...CommandOption) Command {
	c := &command{
		name:  name,
		short: short,
	}

	for _, o := range opts {
		o(c)
	}

	return c
}

func (c *command) AddCommands(cmds ...Command) {
	c.commands = append(c.commands, cmds...)
}

// Command builds the cobra command on first use.
func (c *command) Command() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}

	cmd := &cobra.Command{
		Use:           c.name,
		Short:         c.short,
		Long:          c.description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = false

	for _, sub := range c.commands {
		cmd.AddCommand(sub.Command())
	}
	if c.runFunc != nil {
		cmd.RunE = c.runCommand
	}
	if c.options != nil {
		addFlagSets(cmd.Flags(), c.options.Flags())
	}
	addHelpFlag(c.name, cmd.Flags())

	c.cmd = cmd

	return cmd
}

func (c *command) runCommand(cmd *cobra.Command, args []string) error {
	if c.options != nil {
		if err := completeAndValidate(c.options); err != nil {
			return err
		}
	}

	return c.runFunc(cmd.Context(), c.name)
}
