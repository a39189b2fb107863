package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ludo-technologies/qarun/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

// Exit codes
const (
	ExitPassed     = 0
	ExitFailed     = 1
	ExitSetupError = 2
)

// ExitError carries a process exit code out of a command. An empty
// Message exits silently because the report was already printed.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func setupError(format string, args ...any) error {
	return &ExitError{Code: ExitSetupError, Message: fmt.Sprintf(format, args...)}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qarun",
		Short: "qarun - QA tool orchestrator",
		Long: `qarun runs formatters, linters, test runners, security scanners, data
validators and build checks as one quality gate.

Tools are grouped by dimension and run in a fixed order
(format, lint, test, security, data, build). Results are aggregated into
a single report with a CI-friendly exit code.`,
		Version: Version,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err))
}

// exitCode prints err, if any, and maps it to a process exit code
func exitCode(err error) int {
	if err == nil {
		return ExitPassed
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
		}
		return exitErr.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitFailed
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "qarun version %s\n", version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	return cmd
}
