package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ludo-technologies/qarun/domain"
	"go.uber.org/zap"
)

// processWaitDelay bounds how long Wait blocks on pipes after the process group is killed
const processWaitDelay = 5 * time.Second

// localBinDirs are searched, relative to the work dir, before PATH
var localBinDirs = []string{
	filepath.Join("node_modules", ".bin"),
	filepath.Join(".venv", "bin"),
	filepath.Join("venv", "bin"),
}

// ProcessExecutorImpl runs external commands in the project directory.
// Cancelling the context kills the whole process group, so tools that fork
// workers do not outlive their timeout.
type ProcessExecutorImpl struct {
	workDir string
	logger  *zap.Logger
}

// NewProcessExecutor creates a process executor rooted at workDir
func NewProcessExecutor(workDir string, logger *zap.Logger) *ProcessExecutorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessExecutorImpl{workDir: workDir, logger: logger}
}

// Execute runs command with args. A non-zero exit is reported through
// ProcessResult, not as an error; errors mean the command could not be
// started or was cancelled.
func (p *ProcessExecutorImpl) Execute(ctx context.Context, command string, args ...string) (*domain.ProcessResult, error) {
	path := p.ResolveCommand(command)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = p.workDir
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = processWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("running command",
		zap.String("command", path),
		zap.Strings("args", args))

	err := cmd.Run()
	result := &domain.ProcessResult{
		Stdout: normalizeOutput(stdout.Bytes()),
		Stderr: normalizeOutput(stderr.Bytes()),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, ctxErr
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, domain.NewExecutionError("failed to start "+command, err)
	}

	result.Success = true
	return result, nil
}

// ResolveCommand prefers project-local binaries over PATH lookups
func (p *ProcessExecutorImpl) ResolveCommand(command string) string {
	if strings.ContainsRune(command, '/') || strings.ContainsRune(command, filepath.Separator) {
		return command
	}
	for _, dir := range localBinDirs {
		candidate := filepath.Join(p.workDir, dir, command)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			if abs, err := filepath.Abs(candidate); err == nil {
				return abs
			}
			return candidate
		}
	}
	return command
}

func normalizeOutput(raw []byte) string {
	s := string(bytes.ToValidUTF8(raw, []byte("\uFFFD")))
	return strings.ReplaceAll(s, "\r\n", "\n")
}
