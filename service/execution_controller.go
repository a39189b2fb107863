package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/ludo-technologies/qarun/domain"
	"go.uber.org/zap"
)

// DefaultToolTimeout applies when neither the tool nor the controller sets one
const DefaultToolTimeout = 5 * time.Minute

// SkipChecker decides at execution time whether a tool is already covered
type SkipChecker interface {
	IsToolSkipped(ctx context.Context, tool domain.ToolSpec) bool
}

// ControllerConfig holds execution controller settings
type ControllerConfig struct {
	MaxParallelWrappers int
	DefaultTimeout      time.Duration
	Mode                domain.ExecutionMode
}

// ExecutionControllerImpl executes planned tools against wrappers. Every
// failure mode of a single tool becomes that tool's ExecutionResult.
type ExecutionControllerImpl struct {
	executor   *ParallelExecutorImpl
	classifier ToolClassifier
	files      FileResolver
	skipper    SkipChecker
	progress   domain.ProgressManager
	logger     *zap.Logger

	mu             sync.RWMutex
	defaultTimeout time.Duration
	mode           domain.ExecutionMode
}

// NewExecutionController creates a controller. Non-positive settings are
// replaced by defaults.
func NewExecutionController(cfg ControllerConfig, classifier ToolClassifier, files FileResolver, logger *zap.Logger) *ExecutionControllerImpl {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxParallel := cfg.MaxParallelWrappers
	if maxParallel <= 0 {
		logger.Debug("invalid max parallel wrappers, using default",
			zap.Int("value", maxParallel),
			zap.Int("default", DefaultMaxConcurrency))
		maxParallel = DefaultMaxConcurrency
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		logger.Debug("invalid default timeout, using default",
			zap.Duration("value", timeout),
			zap.Duration("default", DefaultToolTimeout))
		timeout = DefaultToolTimeout
	}
	mode := cfg.Mode
	if mode == "" {
		mode = domain.ModeStandard
	}

	return &ExecutionControllerImpl{
		executor:       NewParallelExecutor(maxParallel),
		classifier:     classifier,
		files:          files,
		progress:       &NoOpProgressManager{},
		logger:         logger,
		defaultTimeout: timeout,
		mode:           mode,
	}
}

// SetSkipChecker enables execution-time skipping of covered tools
func (c *ExecutionControllerImpl) SetSkipChecker(s SkipChecker) {
	c.skipper = s
}

// SetProgressManager attaches a progress manager
func (c *ExecutionControllerImpl) SetProgressManager(pm domain.ProgressManager) {
	if pm != nil {
		c.progress = pm
	}
}

// SetMaxParallelWrappers sets the batch size for parallel execution
func (c *ExecutionControllerImpl) SetMaxParallelWrappers(n int) {
	c.executor.SetMaxConcurrency(n)
}

// SetDefaultTimeout sets the timeout for tools without their own
func (c *ExecutionControllerImpl) SetDefaultTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		c.defaultTimeout = timeout
	}
}

// SetMode sets the execution mode passed to individual wrappers
func (c *ExecutionControllerImpl) SetMode(mode domain.ExecutionMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode != "" {
		c.mode = mode
	}
}

// ExecuteToolsInParallel runs tools in batches of at most MaxParallelWrappers.
// A batch settles completely before the next one starts.
func (c *ExecutionControllerImpl) ExecuteToolsInParallel(ctx context.Context, tools []domain.ToolSpec, wrappers domain.WrapperProvider) []domain.ExecutionResult {
	return c.executor.Execute(ctx, tools, func(ctx context.Context, tool domain.ToolSpec) domain.ExecutionResult {
		return c.executeTool(ctx, tool, wrappers)
	})
}

// ExecuteToolsSequentially runs tools one at a time in order
func (c *ExecutionControllerImpl) ExecuteToolsSequentially(ctx context.Context, tools []domain.ToolSpec, wrappers domain.WrapperProvider) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, 0, len(tools))
	for _, tool := range tools {
		results = append(results, c.executeTool(ctx, tool, wrappers))
	}
	return results
}

// ExecuteGroups runs planned groups in order. A group never starts before
// the previous one has settled, and failures never stop later groups.
func (c *ExecutionControllerImpl) ExecuteGroups(ctx context.Context, groups []domain.ExecutionGroup, wrappers domain.WrapperProvider) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, 0)

	for _, group := range groups {
		task := c.progress.StartTask(DimensionTaskLabel(group.Dimension, len(group.Tools)), len(group.Tools))

		var runnable []domain.ToolSpec
		for _, tool := range group.Tools {
			if c.skipper != nil && c.skipper.IsToolSkipped(ctx, tool) {
				results = append(results, c.skippedResult(tool))
				task.Increment(1)
				continue
			}
			runnable = append(runnable, tool)
		}

		c.logger.Info("executing dimension",
			zap.String("dimension", string(group.Dimension)),
			zap.Int("tools", len(runnable)),
			zap.Bool("parallel", group.Parallel))

		run := func(ctx context.Context, tool domain.ToolSpec) domain.ExecutionResult {
			task.Describe(tool.Name)
			r := c.executeTool(ctx, tool, wrappers)
			task.Increment(1)
			return r
		}
		if group.Parallel {
			results = append(results, c.executor.Execute(ctx, runnable, run)...)
		} else {
			for _, tool := range runnable {
				results = append(results, run(ctx, tool))
			}
		}
		task.Complete()
	}
	return results
}

// CheckCriticalFailures returns an *AggregatedError naming every failed
// critical result, or nil
func (c *ExecutionControllerImpl) CheckCriticalFailures(results []domain.ExecutionResult) error {
	var errs []TaskError
	for _, r := range results {
		if r.Failed() && r.Critical {
			errs = append(errs, TaskError{TaskName: r.Tool, Err: errors.New(r.Error)})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &AggregatedError{Errors: errs}
}

type wrapperOutcome struct {
	result *domain.WrapperResult
	err    error
}

// executeTool runs one tool with its timeout and normalizes the outcome
func (c *ExecutionControllerImpl) executeTool(ctx context.Context, tool domain.ToolSpec, wrappers domain.WrapperProvider) domain.ExecutionResult {
	start := time.Now()
	logger := c.logger.With(zap.String("tool", tool.Name))

	instance, err := wrappers.Wrapper(ctx, tool)
	if err != nil {
		logger.Error("wrapper acquisition failed", zap.Error(err))
		r := failedResult(tool, err.Error())
		r.Critical = true
		return withElapsed(r, start)
	}
	if instance == nil {
		return withElapsed(c.coveredResult(tool), start)
	}

	timeout := tool.Config.Timeout
	if timeout <= 0 {
		c.mu.RLock()
		timeout = c.defaultTimeout
		c.mu.RUnlock()
	}

	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan wrapperOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- wrapperOutcome{err: fmt.Errorf("wrapper panicked: %v", p)}
			}
		}()
		res, err := c.invoke(toolCtx, instance, tool)
		done <- wrapperOutcome{result: res, err: err}
	}()

	var r domain.ExecutionResult
	select {
	case out := <-done:
		r = c.normalize(tool, out)
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			err = domain.NewTimeoutError(tool.Name, timeout.Milliseconds())
			r = failedResult(tool, fmt.Sprintf("%s timed out after %dms", tool.Name, timeout.Milliseconds()))
		} else {
			err = toolCtx.Err()
			r = failedResult(tool, err.Error())
		}
		logger.Warn("tool abandoned", zap.Error(err))
	}

	r.WrapperType = instance.Type
	r = withElapsed(r, start)
	logger.Debug("tool finished",
		zap.Stringer("outcome", r.Outcome),
		zap.String("status", string(r.Status)),
		zap.Duration("elapsed", r.ExecutionTime))
	return r
}

// invoke calls the wrapper through its declared calling convention
func (c *ExecutionControllerImpl) invoke(ctx context.Context, instance *domain.WrapperInstance, tool domain.ToolSpec) (*domain.WrapperResult, error) {
	switch instance.Kind {
	case domain.WrapperKindOrchestrator:
		return instance.Orchestrator.Execute(ctx, tool)
	default:
		files, err := c.resolveFiles(ctx, tool)
		if err != nil {
			return nil, err
		}
		return instance.Individual.Execute(ctx, files, c.options(tool))
	}
}

func (c *ExecutionControllerImpl) resolveFiles(ctx context.Context, tool domain.ToolSpec) ([]string, error) {
	if c.files == nil {
		return tool.Config.Files, nil
	}
	return c.files.ResolveFiles(ctx, tool)
}

// options copies the tool options and adds the tool name and mode
func (c *ExecutionControllerImpl) options(tool domain.ToolSpec) map[string]any {
	opts := make(map[string]any, len(tool.Config.Options)+2)
	maps.Copy(opts, tool.Config.Options)
	if _, ok := opts[domain.OptionTool]; !ok {
		opts[domain.OptionTool] = tool.Name
	}
	c.mu.RLock()
	opts[domain.OptionMode] = string(c.mode)
	c.mu.RUnlock()
	return opts
}

// normalize turns a wrapper outcome into an ExecutionResult. The wrapper's
// own Success verdict is taken as is.
func (c *ExecutionControllerImpl) normalize(tool domain.ToolSpec, out wrapperOutcome) domain.ExecutionResult {
	if out.err != nil {
		return failedResult(tool, out.err.Error())
	}
	if out.result == nil {
		return failedResult(tool, "wrapper returned no result")
	}

	outcome := domain.OutcomeFailed
	if out.result.Success {
		outcome = domain.OutcomePassed
	}
	return domain.ExecutionResult{
		Tool:           tool.Name,
		Dimension:      tool.Dimension,
		Outcome:        outcome,
		Status:         domain.ClassifyStatus(out.result.Success, out.result),
		Result:         out.result,
		EmptyTestSuite: out.result.EmptyTestSuite,
	}
}

// CoveredResults builds informational results for tools the deduplicator
// dropped because a build dimension tool runs them.
func (c *ExecutionControllerImpl) CoveredResults(tools []domain.ToolSpec) []domain.ExecutionResult {
	results := make([]domain.ExecutionResult, 0, len(tools))
	for _, tool := range tools {
		results = append(results, c.coveredResult(tool))
	}
	return results
}

func (c *ExecutionControllerImpl) coveredResult(tool domain.ToolSpec) domain.ExecutionResult {
	return domain.ExecutionResult{
		Tool:      tool.Name,
		Dimension: tool.Dimension,
		Outcome:   domain.OutcomeInformational,
		Status:    domain.StatusInfo,
		Message:   fmt.Sprintf("%s (%s) is covered by the build dimension tool", tool.Name, c.describe(tool.Name)),
	}
}

func (c *ExecutionControllerImpl) skippedResult(tool domain.ToolSpec) domain.ExecutionResult {
	return domain.ExecutionResult{
		Tool:      tool.Name,
		Dimension: tool.Dimension,
		Outcome:   domain.OutcomeInformational,
		Status:    domain.StatusInfo,
		Skipped:   true,
		Message:   fmt.Sprintf("%s (%s) is covered by an active %s dimension tool", tool.Name, c.describe(tool.Name), tool.Dimension),
	}
}

func (c *ExecutionControllerImpl) describe(name string) string {
	if c.classifier == nil {
		return "tool"
	}
	return c.classifier.Describe(name)
}

func failedResult(tool domain.ToolSpec, msg string) domain.ExecutionResult {
	return domain.ExecutionResult{
		Tool:      tool.Name,
		Dimension: tool.Dimension,
		Outcome:   domain.OutcomeFailed,
		Status:    domain.StatusFailed,
		Error:     msg,
	}
}

func withElapsed(r domain.ExecutionResult, start time.Time) domain.ExecutionResult {
	r.ExecutionTime = time.Since(start)
	r.ExecutionTimeMs = r.ExecutionTime.Milliseconds()
	return r
}
