
// Package cli wires the scan, resolve, and reconcile stages behind a single
// cobra command.
package cli

import (
	"context"
	goerrors "errors"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"reqsift/internal/inspect"
)

// Version is the semantic version (set via -ldflags).
var Version = "dev"

type options struct {
	verbose       bool
	configPath    string
	contextFile   string
	updateContext bool
	requirements  string
	pipfile       string
	errorOnDiff   bool
	extraModules  []string
	extraPackages []string
	ignoreModules []string
	mappings      []string
	keepPackages  []string
	interaction   bool
	pypiCalls     bool
	apply         bool
	record        bool
	watch         bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "reqsift [path]",
		Short: "Find and validate the list of required packages",
		Long: `reqsift scans a Python codebase for imported modules, maps each one to the
package that provides it, and diffs the outcome against the declared
requirements.

A module is a module in the python context. A package is a python package
installable via pip. Modules and packages don't necessarily have the same
name, and a module can be defined both on the package index and locally.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Also print the debug logs")
	flags.StringVar(&opts.configPath, "config", "", "Path to the TOML config file (default reqsift.toml when present)")
	flags.StringVar(&opts.contextFile, "context-file", inspect.DefaultContextPath, "Path to the TOML context file")
	flags.BoolVar(&opts.updateContext, "update-context", true, "Update the context file based on the current run")
	flags.StringVarP(&opts.requirements, "requirements", "r", "", "Specify a requirements file as a reference")
	flags.StringVar(&opts.pipfile, "pipfile", "", "Specify a Pipfile as a reference")
	flags.BoolVar(&opts.errorOnDiff, "error-on-diff", true, "Exit non-zero when missing or unused packages are found")
	flags.StringArrayVarP(&opts.extraModules, "extra-module", "e", nil, "Extra module to consider")
	flags.StringArrayVar(&opts.extraPackages, "extra-package", nil, "Extra package to add")
	flags.StringArrayVarP(&opts.ignoreModules, "ignore-module", "i", nil, "Module to ignore")
	flags.StringArrayVarP(&opts.mappings, "mapping", "m", nil, "Explicit mapping in the form module:package")
	flags.StringArrayVar(&opts.keepPackages, "keep-package", nil, "Package that is considered required anyhow")
	flags.BoolVar(&opts.interaction, "interaction", true, "Allow or disallow interactions")
	flags.BoolVar(&opts.pypiCalls, "pypi-calls", true, "Enable or disable the calls to the package index")
	flags.BoolVar(&opts.apply, "apply", false, "Apply the changes to the requirements file")
	flags.BoolVar(&opts.record, "record", true, "Journal decisions for crash recovery")
	flags.BoolVar(&opts.watch, "watch", false, "Keep running and re-inspect on source changes")

	return cmd
}

// Execute runs the root command and maps failures to process exit codes.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if goerrors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
