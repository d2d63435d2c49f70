// Package cli implements the filecompare command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/JonMunkholm/filecompare/internal/core"
	"github.com/JonMunkholm/filecompare/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Exit codes of the compare command.
const (
	ExitMatched     = 0
	ExitDifferences = 1
	ExitError       = 2
)

// ExitCodeError carries a process exit code out of a command.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitMatched
	}
	var ec *ExitCodeError
	if errors.As(err, &ec) {
		return ec.Code
	}
	return ExitError
}

// PrintError writes err to w. Errors with a known support code get the
// mapped message and suggested action on a second line.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	if core.IsUserFacing(err) {
		fmt.Fprintln(w, core.FormatUserError(err))
	}
}

type globalFlags struct {
	logLevel  string
	logFormat string
	noColor   bool
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:   "filecompare",
		Short: "Compare two sets of data files line by line",
		Long: `filecompare pairs files from two directories (by sorted name or explicit
pairs), normalizes CSV, Excel, JSON, YAML, TOML and text files into rows and
reports every line that differs.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Log lines go to stderr so stdout stays parseable with --json.
			logger := logging.New(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			slog.SetDefault(logger)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(logging.WithLogger(ctx, logger))
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "log format: text, json")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(NewCompareCommand())
	root.AddCommand(NewVersionCommand())
	return root
}

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
				return
			}
			fmt.Fprintf(out, "filecompare %s\n", Version)
			fmt.Fprintf(out, "  commit:  %s\n", Commit)
			fmt.Fprintf(out, "  built:   %s\n", BuildDate)
			fmt.Fprintf(out, "  go:      %s\n", runtime.Version())
			fmt.Fprintf(out, "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	return cmd
}
