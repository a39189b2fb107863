package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/service"
	"go.uber.org/zap"
)

// RunConfig holds the inputs of one run
type RunConfig struct {
	Plan domain.ExecutionPlan

	// Scope is reported in run metadata when a scope override was given
	Scope string

	// Output options
	OutputFormat domain.OutputFormat
	OutputWriter io.Writer

	// ReportPath receives the JSON CI report when set
	ReportPath string
}

// DefaultRunConfig returns default configuration
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Plan:         domain.ExecutionPlan{Tools: []domain.ToolSpec{}, Mode: domain.ModeStandard},
		OutputFormat: domain.OutputFormatText,
	}
}

// RunResult holds the outcome of a run
type RunResult struct {
	Groups   []domain.ExecutionGroup
	Results  []domain.ExecutionResult
	Report   *domain.CIReport
	ExitCode int
	Duration time.Duration
}

// RunUseCase orchestrates plan validation, deduplication, grouped
// execution, aggregation and reporting
type RunUseCase struct {
	planner      *service.ExecutionPlannerImpl
	deduplicator *service.WrapperDeduplicatorImpl
	controller   *service.ExecutionControllerImpl
	wrappers     domain.WrapperProvider
	aggregator   *service.ResultAggregatorImpl
	formatter    *service.OutputFormatterImpl
	fs           domain.FileSystem
	runContext   *RunContextDetector
	logger       *zap.Logger
}

// Plan validates the plan and returns the execution groups it would run
func (uc *RunUseCase) Plan(ctx context.Context, plan domain.ExecutionPlan) ([]domain.ExecutionGroup, error) {
	groups, _, err := uc.plan(ctx, plan)
	return groups, err
}

// plan also returns the tools dropped as covered by a build dimension tool
func (uc *RunUseCase) plan(ctx context.Context, plan domain.ExecutionPlan) ([]domain.ExecutionGroup, []domain.ToolSpec, error) {
	if err := uc.planner.ValidatePlan(plan); err != nil {
		return nil, nil, err
	}
	tools, covered := uc.deduplicator.SplitCoveredTools(ctx, plan.Tools)
	return uc.planner.PlanExecutionStrategy(domain.ExecutionPlan{Tools: tools, Mode: plan.Mode}), covered, nil
}

// Execute runs the plan and writes the report. Tool failures are reported
// through the result; the returned error is non-nil only for invalid plans,
// output errors, cancellation, or critical wrapper acquisition failures.
// In the last case the result is returned as well.
func (uc *RunUseCase) Execute(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	startTime := time.Now()

	groups, covered, err := uc.plan(ctx, cfg.Plan)
	if err != nil {
		return nil, err
	}

	uc.controller.SetMode(cfg.Plan.Mode)
	uc.logger.Info("starting run",
		zap.String("mode", string(cfg.Plan.Mode)),
		zap.Int("tools", len(cfg.Plan.Tools)),
		zap.Int("groups", len(groups)))

	results := uc.controller.ExecuteGroups(ctx, groups, uc.wrappers)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}
	results = append(results, uc.controller.CoveredResults(covered)...)

	runCtx := uc.runContext.Detect(ctx, cfg.Plan.Mode, cfg.Scope)
	runCtx.StartedAt = startTime
	runCtx.Duration = time.Since(startTime)
	if cfg.ReportPath != "" {
		runCtx.Artifacts = append(runCtx.Artifacts, cfg.ReportPath)
	}

	report := uc.aggregator.GenerateJSONReport(results, runCtx)
	result := &RunResult{
		Groups:   groups,
		Results:  results,
		Report:   report,
		ExitCode: uc.aggregator.ExitCode(report.Summary.ReportSummary),
		Duration: runCtx.Duration,
	}

	if cfg.ReportPath != "" {
		if err := uc.writeReport(report, cfg.ReportPath); err != nil {
			return nil, err
		}
	}

	if cfg.OutputWriter != nil {
		format := cfg.OutputFormat
		if format == "" {
			format = domain.OutputFormatText
		}
		if err := uc.formatter.Write(report, results, format, cfg.OutputWriter); err != nil {
			return nil, err
		}
	}

	uc.logger.Info("run finished",
		zap.Int("exit_code", result.ExitCode),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed),
		zap.Duration("duration", result.Duration))

	if err := uc.controller.CheckCriticalFailures(results); err != nil {
		return result, fmt.Errorf("critical failures: %w", err)
	}
	return result, nil
}

func (uc *RunUseCase) writeReport(report *domain.CIReport, path string) error {
	if uc.fs == nil {
		return domain.NewOutputError("no file system configured for report artifacts", nil)
	}
	var buf bytes.Buffer
	if err := service.WriteJSON(&buf, report); err != nil {
		return domain.NewOutputError("failed to encode report", err)
	}
	if err := uc.fs.WriteFile(path, buf.Bytes()); err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write report to %s", path), err)
	}
	uc.logger.Debug("report written", zap.String("path", uc.fs.Resolve(path)))
	return nil
}

// RunUseCaseBuilder builds a RunUseCase
type RunUseCaseBuilder struct {
	planner      *service.ExecutionPlannerImpl
	deduplicator *service.WrapperDeduplicatorImpl
	controller   *service.ExecutionControllerImpl
	wrappers     domain.WrapperProvider
	aggregator   *service.ResultAggregatorImpl
	formatter    *service.OutputFormatterImpl
	fs           domain.FileSystem
	runContext   *RunContextDetector
	logger       *zap.Logger
}

// NewRunUseCaseBuilder creates a new builder
func NewRunUseCaseBuilder() *RunUseCaseBuilder {
	return &RunUseCaseBuilder{}
}

// WithPlanner sets the execution planner
func (b *RunUseCaseBuilder) WithPlanner(p *service.ExecutionPlannerImpl) *RunUseCaseBuilder {
	b.planner = p
	return b
}

// WithDeduplicator sets the wrapper deduplicator
func (b *RunUseCaseBuilder) WithDeduplicator(d *service.WrapperDeduplicatorImpl) *RunUseCaseBuilder {
	b.deduplicator = d
	return b
}

// WithController sets the execution controller
func (b *RunUseCaseBuilder) WithController(c *service.ExecutionControllerImpl) *RunUseCaseBuilder {
	b.controller = c
	return b
}

// WithWrappers sets the wrapper provider, normally the wrapper registry
func (b *RunUseCaseBuilder) WithWrappers(w domain.WrapperProvider) *RunUseCaseBuilder {
	b.wrappers = w
	return b
}

// WithAggregator sets the result aggregator
func (b *RunUseCaseBuilder) WithAggregator(a *service.ResultAggregatorImpl) *RunUseCaseBuilder {
	b.aggregator = a
	return b
}

// WithFormatter sets the output formatter
func (b *RunUseCaseBuilder) WithFormatter(f *service.OutputFormatterImpl) *RunUseCaseBuilder {
	b.formatter = f
	return b
}

// WithFileSystem sets the file system used for report artifacts
func (b *RunUseCaseBuilder) WithFileSystem(fs domain.FileSystem) *RunUseCaseBuilder {
	b.fs = fs
	return b
}

// WithRunContext sets the run metadata detector
func (b *RunUseCaseBuilder) WithRunContext(d *RunContextDetector) *RunUseCaseBuilder {
	b.runContext = d
	return b
}

// WithLogger sets the logger
func (b *RunUseCaseBuilder) WithLogger(l *zap.Logger) *RunUseCaseBuilder {
	b.logger = l
	return b
}

// Build creates the RunUseCase
func (b *RunUseCaseBuilder) Build() (*RunUseCase, error) {
	if b.deduplicator == nil {
		return nil, fmt.Errorf("deduplicator is required")
	}
	if b.controller == nil {
		return nil, fmt.Errorf("execution controller is required")
	}
	if b.wrappers == nil {
		return nil, fmt.Errorf("wrapper provider is required")
	}
	if b.planner == nil {
		b.planner = service.NewExecutionPlanner()
	}
	if b.aggregator == nil {
		b.aggregator = service.NewResultAggregator(0)
	}
	if b.formatter == nil {
		b.formatter = service.NewOutputFormatter()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.runContext == nil {
		b.runContext = NewRunContextDetector(nil, b.logger)
	}

	return &RunUseCase{
		planner:      b.planner,
		deduplicator: b.deduplicator,
		controller:   b.controller,
		wrappers:     b.wrappers,
		aggregator:   b.aggregator,
		formatter:    b.formatter,
		fs:           b.fs,
		runContext:   b.runContext,
		logger:       b.logger,
	}, nil
}
