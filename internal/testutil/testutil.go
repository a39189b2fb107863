// Package testutil provides fakes for testing qarun components
package testutil

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ludo-technologies/qarun/domain"
)

// Tool builds a ToolSpec with an empty config
func Tool(name string, dim domain.Dimension) domain.ToolSpec {
	return domain.ToolSpec{Name: name, Dimension: dim}
}

// DimensionTool builds a dimension-mode ToolSpec
func DimensionTool(name string, dim domain.Dimension) domain.ToolSpec {
	return domain.ToolSpec{Name: name, Dimension: dim, Config: domain.ToolConfig{DimensionMode: true}}
}

// WriteFiles creates files under root with the given contents.
// Keys are slash-separated relative paths.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

// ProcessCall records one FakeProcess invocation
type ProcessCall struct {
	Command string
	Args    []string
}

// String renders the call as a command line
func (c ProcessCall) String() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// FakeProcess is a scripted domain.ProcessExecutor. Results are keyed by
// the full command line; Handler, when set, takes precedence.
type FakeProcess struct {
	Results map[string]*domain.ProcessResult
	Handler func(ctx context.Context, command string, args []string) (*domain.ProcessResult, error)

	mu    sync.Mutex
	calls []ProcessCall
}

// NewFakeProcess creates a fake with no scripted results
func NewFakeProcess() *FakeProcess {
	return &FakeProcess{Results: make(map[string]*domain.ProcessResult)}
}

// On scripts the result for a command line
func (f *FakeProcess) On(commandLine string, result *domain.ProcessResult) *FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[commandLine] = result
	return f
}

// Execute records the call and returns the scripted result. Unscripted
// commands fail to start.
func (f *FakeProcess) Execute(ctx context.Context, command string, args ...string) (*domain.ProcessResult, error) {
	call := ProcessCall{Command: command, Args: append([]string(nil), args...)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.Handler
	result, ok := f.Results[call.String()]
	f.mu.Unlock()

	if handler != nil {
		return handler(ctx, command, args)
	}
	if !ok {
		return nil, fmt.Errorf("exec: %q: executable file not found in $PATH", command)
	}
	copied := *result
	return &copied, nil
}

// Calls returns every recorded invocation
func (f *FakeProcess) Calls() []ProcessCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ProcessCall(nil), f.calls...)
}

// Success is a successful ProcessResult with the given stdout
func Success(stdout string) *domain.ProcessResult {
	return &domain.ProcessResult{Success: true, Stdout: stdout}
}

// Failure is a ProcessResult for a non-zero exit
func Failure(exitCode int, stdout, stderr string) *domain.ProcessResult {
	return &domain.ProcessResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}
}

// MemFS is an in-memory domain.FileSystem rooted at "/project"
type MemFS struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemFS creates a MemFS holding the given relative files
func NewMemFS(files map[string]string) *MemFS {
	fs := &MemFS{files: make(map[string][]byte)}
	for p, content := range files {
		fs.files[fs.Resolve(p)] = []byte(content)
	}
	return fs
}

// Exists reports whether a file exists
func (m *MemFS) Exists(p string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[m.Resolve(p)]
	return ok
}

// ReadFile returns file contents
func (m *MemFS) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[m.Resolve(p)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", p, os.ErrNotExist)
	}
	return data, nil
}

// WriteFile stores file contents
func (m *MemFS) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[m.Resolve(p)] = append([]byte(nil), data...)
	return nil
}

// Resolve anchors relative paths at /project
func (m *MemFS) Resolve(elem ...string) string {
	p := path.Join(elem...)
	if path.IsAbs(p) {
		return p
	}
	return path.Join("/project", p)
}

// IndividualFunc adapts a function to domain.IndividualWrapper
type IndividualFunc struct {
	WrapperName string
	Fn          func(ctx context.Context, files []string, options map[string]any) (*domain.WrapperResult, error)
}

// Name returns the wrapper name
func (w *IndividualFunc) Name() string { return w.WrapperName }

// Execute calls Fn
func (w *IndividualFunc) Execute(ctx context.Context, files []string, options map[string]any) (*domain.WrapperResult, error) {
	return w.Fn(ctx, files, options)
}

// OrchestratorFunc adapts a function to domain.OrchestratorWrapper
type OrchestratorFunc struct {
	WrapperName string
	Fn          func(ctx context.Context, spec domain.ToolSpec) (*domain.WrapperResult, error)
}

// Name returns the wrapper name
func (w *OrchestratorFunc) Name() string { return w.WrapperName }

// Execute calls Fn
func (w *OrchestratorFunc) Execute(ctx context.Context, spec domain.ToolSpec) (*domain.WrapperResult, error) {
	return w.Fn(ctx, spec)
}

// StaticProvider is a domain.WrapperProvider backed by a map of tool name
// to instance. Tools in Errors fail acquisition; unknown tools have no wrapper.
type StaticProvider struct {
	Instances map[string]*domain.WrapperInstance
	Errors    map[string]error
}

// Wrapper returns the instance registered for spec.Name
func (p *StaticProvider) Wrapper(_ context.Context, spec domain.ToolSpec) (*domain.WrapperInstance, error) {
	if err, ok := p.Errors[spec.Name]; ok {
		return nil, err
	}
	return p.Instances[spec.Name], nil
}

// ResultFor builds an individual instance that always returns result
func ResultFor(name string, result *domain.WrapperResult, err error) *domain.WrapperInstance {
	return domain.NewIndividualInstance(name, &IndividualFunc{
		WrapperName: name,
		Fn: func(context.Context, []string, map[string]any) (*domain.WrapperResult, error) {
			return result, err
		},
	})
}
