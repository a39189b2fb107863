package service

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// DimensionTaskLabel names the progress task for one dimension group,
// e.g. "lint (3 tools)"
func DimensionTaskLabel(dim domain.Dimension, tools int) string {
	noun := "tools"
	if tools == 1 {
		noun = "tool"
	}
	return fmt.Sprintf("%s (%d %s)", dim, tools, noun)
}

// ProgressManagerImpl draws one bar per dimension group on a terminal
type ProgressManagerImpl struct {
	writer io.Writer

	mu    sync.Mutex
	tasks []*TaskProgressImpl
}

// NewProgressManager returns bars on stderr when enabled and stderr is an
// interactive terminal, otherwise a no-op manager
func NewProgressManager(enabled bool) domain.ProgressManager {
	if enabled && IsInteractiveEnvironment() {
		return NewProgressManagerTo(os.Stderr)
	}
	return &NoOpProgressManager{}
}

// NewProgressManagerTo draws bars on w unconditionally
func NewProgressManagerTo(w io.Writer) *ProgressManagerImpl {
	return &ProgressManagerImpl{writer: w}
}

// IsInteractiveEnvironment reports whether stderr is a terminal outside CI
func IsInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" || os.Getenv("QARUN_NO_PROGRESS") != "" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// StartTask opens a bar counting the tools of one group
func (pm *ProgressManagerImpl) StartTask(label string, total int) domain.TaskProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(pm.writer),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(18),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
	task := &TaskProgressImpl{bar: bar, label: label}

	pm.mu.Lock()
	pm.tasks = append(pm.tasks, task)
	pm.mu.Unlock()
	return task
}

// IsInteractive returns true if progress bars should be shown
func (pm *ProgressManagerImpl) IsInteractive() bool {
	return true
}

// Close finishes every bar still open
func (pm *ProgressManagerImpl) Close() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, task := range pm.tasks {
		task.Complete()
	}
	pm.tasks = nil
}

// TaskProgressImpl is the bar of one dimension group. Describe is called
// from parallel tool goroutines, so state changes are serialized.
type TaskProgressImpl struct {
	bar   *progressbar.ProgressBar
	label string

	mu   sync.Mutex
	done bool
}

// Increment counts n finished tools
func (tp *TaskProgressImpl) Increment(n int) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if !tp.done {
		_ = tp.bar.Add(n)
	}
}

// Describe shows the tool currently running under the group label
func (tp *TaskProgressImpl) Describe(tool string) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if !tp.done {
		tp.bar.Describe(fmt.Sprintf("%s: %s", tp.label, tool))
	}
}

// Complete restores the group label and finishes the bar. Repeated calls are no-ops.
func (tp *TaskProgressImpl) Complete() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.done {
		return
	}
	tp.done = true
	tp.bar.Describe(tp.label)
	_ = tp.bar.Finish()
}

// NoOpProgressManager implements ProgressManager with no-op methods
type NoOpProgressManager struct{}

// StartTask returns a no-op task progress
func (pm *NoOpProgressManager) StartTask(_ string, _ int) domain.TaskProgress {
	return &NoOpTaskProgress{}
}

// IsInteractive returns false for no-op manager
func (pm *NoOpProgressManager) IsInteractive() bool {
	return false
}

// Close is a no-op
func (pm *NoOpProgressManager) Close() {}

// NoOpTaskProgress implements TaskProgress with no-op methods
type NoOpTaskProgress struct{}

// Increment is a no-op
func (tp *NoOpTaskProgress) Increment(_ int) {}

// Describe is a no-op
func (tp *NoOpTaskProgress) Describe(_ string) {}

// Complete is a no-op
func (tp *NoOpTaskProgress) Complete() {}
