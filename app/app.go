// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wangtaoking1/watchwah-agent/flag"
	"github.com/wangtaoking1/watchwah-agent/log"
	"github.com/wangtaoking1/watchwah-agent/version"
	"github.com/wangtaoking1/watchwah-agent/version/verflag"
)

// App is a command line application.
type App interface {
	// Run runs the application with the process arguments and exits the
	// process on error.
	Run()
	// Execute runs the application with ctx and the given arguments.
	Execute(ctx context.Context, args ...string) error
	// Command returns the root cobra command.
	Command() *cobra.Command
}

// RunFunc is called once the options are loaded and valid. ctx is done when
// the command is cancelled.
type RunFunc func(ctx context.Context, name string) error

type app struct {
	name        string
	short       string
	description string
	options     CmdOptions
	runFunc     RunFunc
	silence     bool
	noVersion   bool
	noConfig    bool
	commands    []Command
	args        cobra.PositionalArgs
	cmd         *cobra.Command
}

var _ App = (*app)(nil)

// Option configures an application.
type Option func(*app)

// WithOptions binds opt to the flags, the environment and the config file.
func WithOptions(opt CmdOptions) Option {
	return func(a *app) {
		a.options = opt
	}
}

// WithRunFunc sets the func run by the root command.
func WithRunFunc(run RunFunc) Option {
	return func(a *app) {
		a.runFunc = run
	}
}

// WithDescription is used to set the description of the application.
func WithDescription(desc string) Option {
	return func(a *app) {
		a.description = desc
	}
}

// WithSilence disables the startup banner.
func WithSilence() Option {
	return func(a *app) {
		a.silence = true
	}
}

// WithNoVersion disables the --version flag.
func WithNoVersion() Option {
	return func(a *app) {
		a.noVersion = true
	}
}

// WithNoConfig disables the --config flag and the environment binding.
func WithNoConfig() Option {
	return func(a *app) {
		a.noConfig = true
	}
}

// WithValidArgs set the validation function to valid non-flag arguments.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *app) {
		a.args = args
	}
}

// WithDefaultValidArgs rejects every non-flag argument.
func WithDefaultValidArgs() Option {
	return func(a *app) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}

			return nil
		}
	}
}

// WithCommands adds sub commands.
func WithCommands(cmds ...Command) Option {
	return func(a *app) {
		a.commands = append(a.commands, cmds...)
	}
}

// NewApp creates an application named name, which is also the binary name
// and the environment prefix.
func NewApp(name string, short string, opts ...Option) App {
	a := &app{
		name:  name,
		short: short,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()

	return a
}

func (a *app) buildCommand() {
	cmd := &cobra.Command{
		Use:   FormatExecName(a.name),
		Short: a.short,
		Long:  a.description,
		// stop printing usage when the command errors
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true
	flag.InitFlags(cmd.Flags())

	for _, c := range a.commands {
		cmd.AddCommand(c.Command())
	}
	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	var fss flag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
	}
	a.addGlobalFlags(fss.FlagSet("global"))
	addFlagSets(cmd.Flags(), fss)

	addCmdTemplate(cmd, fss)
	a.cmd = cmd
}

func (a *app) addGlobalFlags(fs *pflag.FlagSet) {
	if !a.noVersion {
		verflag.AddFlags(fs)
	}
	if !a.noConfig {
		addConfigFlag(a.name, fs)
	}
	addHelpFlag(a.name, fs)
}

func (a *app) Run() {
	if err := a.cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Printf("%v %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func (a *app) Execute(ctx context.Context, args ...string) error {
	a.cmd.SetArgs(args)

	return a.cmd.ExecuteContext(ctx)
}

func (a *app) Command() *cobra.Command {
	return a.cmd
}

func (a *app) runCommand(cmd *cobra.Command, args []string) error {
	if !a.noVersion {
		verflag.PrintAndExitIfRequested()
	}
	if !a.silence {
		printWorkingDir(cmd.OutOrStdout())
	}
	flag.PrintFlags(cmd.Flags())

	if err := a.loadOptions(cmd.Flags()); err != nil {
		return err
	}
	a.printBanner()

	if a.options != nil {
		if err := completeAndValidate(a.options); err != nil {
			return err
		}
		if p, ok := a.options.(PrintableOptions); ok && !a.silence {
			log.Infof("%v Config: `%s`", progressMessage, p.String())
		}
	}

	return a.runFunc(cmd.Context(), a.name)
}

// loadOptions overlays the config file and the environment on the flags.
func (a *app) loadOptions(fs *pflag.FlagSet) error {
	if a.noConfig || a.options == nil {
		return nil
	}
	if err := viper.BindPFlags(fs); err != nil {
		return err
	}

	return viper.Unmarshal(a.options)
}

func (a *app) printBanner() {
	if a.silence {
		return
	}
	log.Infof("%v Starting %s ...", progressMessage, a.short)
	if !a.noVersion {
		log.Infof("%v Version: `%s`", progressMessage, version.Get().ToJSON())
	}
	if !a.noConfig {
		log.Infof("%v Config file used: `%s`", progressMessage, viper.ConfigFileUsed())
	}
}
