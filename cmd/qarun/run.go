package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ludo-technologies/qarun/app"
	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/logging"
	"github.com/ludo-technologies/qarun/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	planOptions

	format      string
	jsonOutput  bool
	outputPath  string
	reportPath  string
	maxParallel int
	timeout     time.Duration
	noProgress  bool
}

func runCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run the configured QA tools",
		Long: `Run the configured QA tools against a project and print a report.

Tools run grouped by dimension in a fixed order: format, lint, test,
security, data, build. Within a group tools run in parallel batches when
the group allows it.

Exit codes:
  0 - All tools passed (warnings allowed)
  1 - At least one tool failed
  2 - Setup error (bad config, unreadable plan, wrapper could not be loaded)

Examples:
  # Run everything configured in qarun.yaml
  qarun run

  # Quick feedback: parallel groups, only lint and format
  qarun run --mode fast --dimension format,lint

  # Run a subset of tools on frontend files
  qarun run --tools eslint,prettier --scope frontend

  # JSON report for CI
  qarun run --json --report .qarun/reports/qa.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, o, args)
		},
	}

	addPlanFlags(cmd, &o.planOptions)
	cmd.Flags().StringVarP(&o.format, "format", "f", "",
		"Output format: text, json, yaml (default from config)")
	cmd.Flags().BoolVar(&o.jsonOutput, "json", false,
		"Output results as JSON (shorthand for --format json)")
	cmd.Flags().StringVarP(&o.outputPath, "output", "o", "",
		"Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&o.reportPath, "report", "",
		"Also write the JSON CI report to this path (relative to the project)")
	cmd.Flags().IntVar(&o.maxParallel, "max-parallel", 0,
		"Maximum tools running at once within a group")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0,
		"Default per-tool timeout, e.g. 90s or 5m")
	cmd.Flags().BoolVar(&o.noProgress, "no-progress", false,
		"Disable progress bars")

	return cmd
}

func runRun(cmd *cobra.Command, o *runOptions, args []string) error {
	root, cfg, err := loadConfig(&o.planOptions, args)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("max-parallel") {
		cfg.Execution.MaxParallelWrappers = o.maxParallel
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Execution.DefaultTimeout = o.timeout
	}
	if o.reportPath != "" {
		cfg.Output.ReportPath = o.reportPath
	}
	switch {
	case o.jsonOutput:
		cfg.Output.Format = string(domain.OutputFormatJSON)
	case o.format != "":
		cfg.Output.Format = o.format
	}
	format := domain.OutputFormat(cfg.Output.Format)

	pm := service.NewProgressManager(format == domain.OutputFormatText && !o.noProgress)
	defer pm.Close()

	p, err := openProject(&o.planOptions, root, cfg, pm)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(p.logger) }()

	writer := cmd.OutOrStdout()
	if o.outputPath != "" {
		file, err := os.Create(o.outputPath)
		if err != nil {
			return setupError("failed to create output file: %v", err)
		}
		defer file.Close()
		writer = file
	}

	result, err := p.wiring.UseCase.Execute(cmd.Context(), app.RunConfig{
		Plan:         p.plan,
		Scope:        o.scope,
		OutputFormat: format,
		OutputWriter: writer,
		ReportPath:   cfg.Output.ReportPath,
	})
	if err != nil {
		return runError(err, result, p.logger)
	}

	if o.outputPath != "" && format == domain.OutputFormatText {
		printSummaryLine(cmd.ErrOrStderr(), result, o.outputPath)
	}

	if result.ExitCode != ExitPassed {
		return &ExitError{Code: result.ExitCode}
	}
	return nil
}

// runError maps a use case error to an exit code. Critical wrapper
// failures still produced a report, so only the cause is printed.
func runError(err error, result *app.RunResult, logger *zap.Logger) error {
	var agg *service.AggregatedError
	if result != nil && errors.As(err, &agg) {
		logger.Error("critical failures", zap.Int("count", len(agg.Errors)))
		return &ExitError{Code: ExitSetupError, Message: err.Error()}
	}
	var de domain.DomainError
	if errors.As(err, &de) || errors.Is(err, context.Canceled) {
		return &ExitError{Code: ExitSetupError, Message: err.Error()}
	}
	return err
}

func printSummaryLine(w io.Writer, result *app.RunResult, path string) {
	s := result.Report.Summary
	fmt.Fprintf(w, "%s: %d passed, %d failed, %d warning(s); report saved to %s\n",
		s.Status, s.Passed, s.Failed, s.Warnings, path)
}
