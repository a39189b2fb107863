package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ludo-technologies/qarun/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is used when the configured batch size is invalid
const DefaultMaxConcurrency = 3

// TaskError represents a single task failure
type TaskError struct {
	TaskName string
	Err      error
}

// Error implements the error interface
func (e TaskError) Error() string {
	return fmt.Sprintf("[%s] %v", e.TaskName, e.Err)
}

// Unwrap returns the underlying error
func (e TaskError) Unwrap() error {
	return e.Err
}

// AggregatedError collects all task failures
type AggregatedError struct {
	Errors []TaskError
}

// Error implements the error interface
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d tasks failed:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Unwrap returns the first error for errors.Is/As compatibility
func (e *AggregatedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0].Err
}

// ToolRunner executes one tool and always produces a result
type ToolRunner func(ctx context.Context, tool domain.ToolSpec) domain.ExecutionResult

// ParallelExecutorImpl runs tools in fixed-size batches. Every tool in a
// batch starts at once and the whole batch settles before the next begins.
type ParallelExecutorImpl struct {
	maxConcurrency int
	mu             sync.RWMutex
}

// NewParallelExecutor creates a batch executor
func NewParallelExecutor(maxConcurrency int) *ParallelExecutorImpl {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &ParallelExecutorImpl{maxConcurrency: maxConcurrency}
}

// Execute runs tools in batches of min(maxConcurrency, len(tools)). Results
// are returned in input order. A failing tool never stops its batch-mates.
func (e *ParallelExecutorImpl) Execute(ctx context.Context, tools []domain.ToolSpec, run ToolRunner) []domain.ExecutionResult {
	if len(tools) == 0 {
		return []domain.ExecutionResult{}
	}

	e.mu.RLock()
	batchSize := min(e.maxConcurrency, len(tools))
	e.mu.RUnlock()

	results := make([]domain.ExecutionResult, len(tools))
	for start := 0; start < len(tools); start += batchSize {
		end := min(start+batchSize, len(tools))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = run(ctx, tools[i])
				// Outcomes are data; returning nil lets every sibling finish.
				return nil
			})
		}
		_ = g.Wait()
	}
	return results
}

// SetMaxConcurrency sets the batch size
func (e *ParallelExecutorImpl) SetMaxConcurrency(max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if max > 0 {
		e.maxConcurrency = max
	}
}

// MaxConcurrency returns the batch size
func (e *ParallelExecutorImpl) MaxConcurrency() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxConcurrency
}
