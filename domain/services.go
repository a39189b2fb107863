package domain

import (
	"context"

	"go.uber.org/zap"
)

// ProcessResult is the outcome of running an external command
type ProcessResult struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// ProcessExecutor runs external commands on behalf of wrappers
type ProcessExecutor interface {
	Execute(ctx context.Context, command string, args ...string) (*ProcessResult, error)
}

// FileSystem abstracts file access for wrappers
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Resolve(elem ...string) string
}

// Services are injected into every wrapper at construction time
type Services struct {
	Process ProcessExecutor
	FS      FileSystem
	Logger  *zap.Logger
}
