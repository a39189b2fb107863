package wrappers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
)

// defaultBuildScripts are run, when present in package.json, in this order
var defaultBuildScripts = []string{"typecheck", "build"}

// Build orchestrates the whole build dimension. It discovers the project's
// manifests itself and runs the matching steps, so the individual build
// tools (npm, yarn, pnpm, tsc, pip, vite) need no wrapper of their own.
//
// Options (from the tool spec):
//
//	scripts  package.json scripts to run instead of typecheck and build
//	install  run the package manager's install first (default false)
type Build struct {
	svc domain.Services
}

// NewBuild constructs the build orchestrator
func NewBuild(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewOrchestratorInstance(constants.WrapperBuild, &Build{svc: svc}), nil
}

// Name returns the wrapper name
func (b *Build) Name() string { return constants.WrapperBuild }

type buildStep struct {
	name    string
	command string
	args    []string
}

type packageManifest struct {
	Scripts map[string]string `json:"scripts"`
}

type pyProject struct {
	BuildSystem map[string]any `toml:"build-system"`
	Tool        struct {
		Poetry map[string]any `toml:"poetry"`
	} `toml:"tool"`
}

// Execute runs every discovered build step in order. A failing step does
// not stop later steps; context cancellation does.
func (b *Build) Execute(ctx context.Context, spec domain.ToolSpec) (*domain.WrapperResult, error) {
	steps, manifests, err := b.plan(spec)
	if err != nil {
		return nil, err
	}
	b.svc.Logger.Debug("build plan", zap.String("tool", spec.Name), zap.String("steps", describeSteps(steps)))
	if len(steps) == 0 {
		b.svc.Logger.Info("no build configuration found")
		return &domain.WrapperResult{
			Success:  true,
			Level:    domain.StatusWarning,
			Warnings: []domain.Violation{{Severity: domain.SeverityWarning, Message: "no build configuration found"}},
			Metadata: metadata(0),
		}, nil
	}

	var violations []domain.Violation
	ran := make([]string, 0, len(steps))
	for _, step := range steps {
		b.svc.Logger.Debug("running build step", zap.String("step", step.name))
		res, err := b.svc.Process.Execute(ctx, step.command, step.args...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		ran = append(ran, step.name)
		if err != nil {
			violations = append(violations, domain.Violation{Severity: domain.SeverityError, Message: step.name + ": " + err.Error(), Rule: step.name})
			continue
		}
		if !res.Success {
			violations = append(violations, domain.Violation{Severity: domain.SeverityError, Message: processFailure(step.name, res), Rule: step.name})
		}
	}

	return &domain.WrapperResult{
		Success:    len(violations) == 0,
		Violations: violations,
		Metadata:   metadata(manifests),
		Metrics:    map[string]any{"steps": ran},
	}, nil
}

// plan returns the build steps and the number of manifests they came from
func (b *Build) plan(spec domain.ToolSpec) ([]buildStep, int, error) {
	var steps []buildStep
	manifests := 0
	opts := spec.Config.Options

	hasTSConfig := b.svc.FS.Exists("tsconfig.json")
	if b.svc.FS.Exists("package.json") {
		manifests++
		data, err := b.svc.FS.ReadFile("package.json")
		if err != nil {
			return nil, 0, err
		}
		var pkg packageManifest
		if err := json.Unmarshal(data, &pkg); err != nil {
			return nil, 0, domain.NewExecutionError("invalid package.json", err)
		}

		pm := b.packageManager()
		if optBool(opts, "install", false) {
			steps = append(steps, buildStep{name: pm + " install", command: pm, args: []string{"install"}})
		}

		scripts := optStrings(opts, "scripts")
		if len(scripts) == 0 {
			scripts = defaultBuildScripts
		}
		ranScript := false
		for _, script := range scripts {
			if _, ok := pkg.Scripts[script]; !ok {
				continue
			}
			ranScript = true
			steps = append(steps, buildStep{name: pm + " run " + script, command: pm, args: []string{"run", script}})
		}
		if !ranScript && hasTSConfig {
			steps = append(steps, tscStep())
		}
	} else if hasTSConfig {
		steps = append(steps, tscStep())
	}
	if hasTSConfig {
		manifests++
	}

	if b.svc.FS.Exists("pyproject.toml") {
		manifests++
		data, err := b.svc.FS.ReadFile("pyproject.toml")
		if err != nil {
			return nil, 0, err
		}
		var project pyProject
		if err := toml.Unmarshal(data, &project); err != nil {
			return nil, 0, domain.NewExecutionError("invalid pyproject.toml", err)
		}
		if project.Tool.Poetry != nil {
			steps = append(steps, buildStep{name: "poetry check", command: "poetry", args: []string{"check"}})
		} else {
			steps = append(steps, buildStep{name: "pip check", command: "pip", args: []string{"check"}})
		}
	}
	return steps, manifests, nil
}

// packageManager picks the node package manager from the lockfile present
func (b *Build) packageManager() string {
	switch {
	case b.svc.FS.Exists("pnpm-lock.yaml"):
		return "pnpm"
	case b.svc.FS.Exists("yarn.lock"):
		return "yarn"
	default:
		return "npm"
	}
}

func tscStep() buildStep {
	return buildStep{name: "tsc", command: "tsc", args: []string{"--noEmit"}}
}

func describeSteps(steps []buildStep) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.name
	}
	return strings.Join(names, ", ")
}
