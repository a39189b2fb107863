package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ludo-technologies/qarun/domain"
	"go.uber.org/zap"
)

// Run environments reported in CI metadata
const (
	EnvironmentCI    = "ci"
	EnvironmentLocal = "local"
)

// unknownRef is reported when neither CI variables nor git know the branch or commit
const unknownRef = "unknown"

// ciProvider names the environment variables a CI system uses for branch and commit
type ciProvider struct {
	marker   string
	branches []string
	commit   string
}

var ciProviders = []ciProvider{
	{marker: "GITHUB_ACTIONS", branches: []string{"GITHUB_HEAD_REF", "GITHUB_REF_NAME"}, commit: "GITHUB_SHA"},
	{marker: "GITLAB_CI", branches: []string{"CI_MERGE_REQUEST_SOURCE_BRANCH_NAME", "CI_COMMIT_REF_NAME"}, commit: "CI_COMMIT_SHA"},
	{marker: "CIRCLECI", branches: []string{"CIRCLE_BRANCH"}, commit: "CIRCLE_SHA1"},
	{marker: "BUILDKITE", branches: []string{"BUILDKITE_BRANCH"}, commit: "BUILDKITE_COMMIT"},
	{marker: "JENKINS_URL", branches: []string{"BRANCH_NAME", "GIT_BRANCH"}, commit: "GIT_COMMIT"},
}

// RunContextDetector collects run metadata for the CI report
type RunContextDetector struct {
	process domain.ProcessExecutor
	getenv  func(string) string
	now     func() time.Time
	logger  *zap.Logger
}

// NewRunContextDetector creates a detector that falls back to git through process
func NewRunContextDetector(process domain.ProcessExecutor, logger *zap.Logger) *RunContextDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunContextDetector{
		process: process,
		getenv:  os.Getenv,
		now:     time.Now,
		logger:  logger,
	}
}

// Detect builds a RunContext with a fresh run ID. Branch and commit come
// from CI variables when present, otherwise from git.
func (d *RunContextDetector) Detect(ctx context.Context, mode domain.ExecutionMode, scope string) *domain.RunContext {
	rc := &domain.RunContext{
		RunID:       uuid.NewString(),
		Environment: EnvironmentLocal,
		Mode:        mode,
		Scope:       scope,
		StartedAt:   d.now(),
	}

	if p, ok := d.provider(); ok {
		rc.Environment = EnvironmentCI
		rc.Branch = d.firstEnv(p.branches...)
		rc.Commit = d.getenv(p.commit)
	} else if isTruthy(d.getenv("CI")) {
		rc.Environment = EnvironmentCI
	}

	if rc.Branch == "" {
		rc.Branch = d.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	}
	if rc.Commit == "" {
		rc.Commit = d.git(ctx, "rev-parse", "HEAD")
	}
	return rc
}

func (d *RunContextDetector) provider() (ciProvider, bool) {
	for _, p := range ciProviders {
		if d.getenv(p.marker) != "" {
			return p, true
		}
	}
	return ciProvider{}, false
}

func (d *RunContextDetector) firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := d.getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// git returns the trimmed output of a git command, or unknownRef
func (d *RunContextDetector) git(ctx context.Context, args ...string) string {
	if d.process == nil {
		return unknownRef
	}
	res, err := d.process.Execute(ctx, "git", args...)
	if err != nil || res == nil || !res.Success {
		d.logger.Debug("git metadata unavailable", zap.Strings("args", args), zap.Error(err))
		return unknownRef
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return unknownRef
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
