package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/config"
	"github.com/ludo-technologies/qarun/internal/constants"
	"github.com/ludo-technologies/qarun/internal/testutil"
	"github.com/ludo-technologies/qarun/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type behaviour func(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error)

var individualTypes = []string{
	constants.WrapperNative,
	constants.WrapperDirectLinters,
	constants.WrapperJest,
	constants.WrapperPytest,
	constants.WrapperSnyk,
	constants.WrapperSemgrep,
	constants.WrapperData,
}

// fakeConstructors registers every wrapper type with a fake that dispatches
// on the tool option. Tools without a behaviour pass.
func fakeConstructors(behaviours map[string]behaviour) map[string]domain.WrapperConstructor {
	ctors := make(map[string]domain.WrapperConstructor)
	for _, wt := range individualTypes {
		ctors[wt] = func(domain.Services, map[string]any) (*domain.WrapperInstance, error) {
			return domain.NewIndividualInstance(wt, &testutil.IndividualFunc{
				WrapperName: wt,
				Fn: func(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
					tool, _ := opts[domain.OptionTool].(string)
					if b, ok := behaviours[tool]; ok {
						return b(ctx, files, opts)
					}
					return &domain.WrapperResult{Success: true}, nil
				},
			}), nil
		}
	}
	ctors[constants.WrapperBuild] = func(domain.Services, map[string]any) (*domain.WrapperInstance, error) {
		return domain.NewOrchestratorInstance(constants.WrapperBuild, &testutil.OrchestratorFunc{
			WrapperName: constants.WrapperBuild,
			Fn: func(context.Context, domain.ToolSpec) (*domain.WrapperResult, error) {
				return &domain.WrapperResult{Success: true, Metadata: &domain.ResultMetadata{FilesProcessed: 2}}, nil
			},
		}), nil
	}
	return ctors
}

type wiringOpts struct {
	behaviours map[string]behaviour
	ctors      map[string]domain.WrapperConstructor
	configure  func(*config.Config)
	fs         *testutil.MemFS
}

func newTestWiring(t *testing.T, o wiringOpts) *Wiring {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Execution.MaxParallelWrappers = 2
	if o.configure != nil {
		o.configure(cfg)
	}
	ctors := o.ctors
	if ctors == nil {
		ctors = fakeConstructors(o.behaviours)
	}
	fs := o.fs
	if fs == nil {
		fs = testutil.NewMemFS(nil)
	}
	w, err := NewWiring(Project{
		Root:         t.TempDir(),
		Config:       cfg,
		Process:      testutil.NewFakeProcess(),
		FS:           fs,
		Constructors: ctors,
	})
	require.NoError(t, err)
	return w
}

func plan(mode domain.ExecutionMode, tools ...domain.ToolSpec) domain.ExecutionPlan {
	if tools == nil {
		tools = []domain.ToolSpec{}
	}
	return domain.ExecutionPlan{Tools: tools, Mode: mode}
}

func runConfig(p domain.ExecutionPlan) RunConfig {
	cfg := DefaultRunConfig()
	cfg.Plan = p
	return cfg
}

func TestRunUseCase_ScenarioPassingFormatter(t *testing.T) {
	w := newTestWiring(t, wiringOpts{behaviours: map[string]behaviour{
		"prettier": func(context.Context, []string, map[string]any) (*domain.WrapperResult, error) {
			return &domain.WrapperResult{Success: true, Violations: []domain.Violation{}}, nil
		},
	}})

	result, err := w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeStandard, testutil.Tool("prettier", domain.DimensionFormat))))
	require.NoError(t, err)

	s := result.Report.Summary
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, 0, s.Warnings)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, domain.RunStatusPassed, s.Status)
}

func TestRunUseCase_ScenarioLinterWarning(t *testing.T) {
	w := newTestWiring(t, wiringOpts{behaviours: map[string]behaviour{
		"eslint": func(context.Context, []string, map[string]any) (*domain.WrapperResult, error) {
			return &domain.WrapperResult{Success: true, Violations: []domain.Violation{
				{File: "a.ts", Severity: domain.SeverityWarning},
			}}, nil
		},
	}})

	result, err := w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeStandard, testutil.Tool("eslint", domain.DimensionLint))))
	require.NoError(t, err)

	s := result.Report.Summary
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 0, s.Failed)
	assert.Equal(t, []domain.FileProblem{{File: "a.ts", Errors: 0, Warnings: 1}}, s.FilesWithProblems)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, domain.StatusWarning, result.Results[0].Status)
}

func TestRunUseCase_ScenarioWrapperError(t *testing.T) {
	w := newTestWiring(t, wiringOpts{behaviours: map[string]behaviour{
		"jest": func(context.Context, []string, map[string]any) (*domain.WrapperResult, error) {
			return nil, errors.New("connection refused")
		},
	}})

	result, err := w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeStandard, testutil.Tool("jest", domain.DimensionTest))))
	require.NoError(t, err, "tool failures are data, not errors")

	require.Len(t, result.Results, 1)
	d := result.Results[0]
	assert.Equal(t, "jest", d.Tool)
	assert.Equal(t, domain.OutcomeFailed, d.Outcome)
	assert.Equal(t, "connection refused", d.Error)
	assert.False(t, d.Critical)
	assert.Equal(t, 1, result.Report.Summary.Failed)
	assert.Equal(t, 1, result.ExitCode)
}

func TestRunUseCase_ScenarioBoundedParallelism(t *testing.T) {
	sleep := func(ctx context.Context, _ []string, _ map[string]any) (*domain.WrapperResult, error) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &domain.WrapperResult{Success: true}, nil
	}
	names := []string{"eslint", "stylelint", "ruff", "flake8", "mypy"}
	behaviours := make(map[string]behaviour)
	var tools []domain.ToolSpec
	for _, n := range names {
		behaviours[n] = sleep
		tools = append(tools, testutil.Tool(n, domain.DimensionLint))
	}
	w := newTestWiring(t, wiringOpts{behaviours: behaviours})

	start := time.Now()
	result, err := w.UseCase.Execute(context.Background(), runConfig(plan(domain.ModeStandard, tools...)))
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Report.Summary.Passed)
	assert.GreaterOrEqual(t, elapsed, 290*time.Millisecond, "3 batches of at most 2")
	assert.Less(t, elapsed, 480*time.Millisecond, "batches must run concurrently")
}

func TestRunUseCase_BuildDimensionDeduplication(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})
	p := plan(domain.ModeStandard,
		testutil.DimensionTool("build", domain.DimensionBuild),
		testutil.Tool("npm", domain.DimensionBuild),
		testutil.Tool("tsc", domain.DimensionBuild),
		testutil.Tool("eslint", domain.DimensionLint),
	)

	result, err := w.UseCase.Execute(context.Background(), runConfig(p))
	require.NoError(t, err)

	var tools []string
	for _, r := range result.Results {
		tools = append(tools, r.Tool)
	}
	assert.Equal(t, []string{"eslint", "build", "npm", "tsc"}, tools, "npm and tsc are reported after the executed tools")
	assert.Equal(t, constants.WrapperBuild, result.Results[1].WrapperType)

	for _, r := range result.Results[2:] {
		assert.Equal(t, domain.OutcomeInformational, r.Outcome, r.Tool)
		assert.Equal(t, domain.StatusInfo, r.Status, r.Tool)
		assert.Contains(t, r.Message, "is covered by the build dimension tool")
	}
	assert.Equal(t, "tsc (TypeScript compiler) is covered by the build dimension tool", result.Results[3].Message)

	require.Contains(t, result.Report.Tools, "npm")
	require.Contains(t, result.Report.Tools, "tsc")
	assert.Equal(t, domain.OutcomeInformational, result.Report.Tools["npm"].Outcome)
	assert.Equal(t, 2, result.Report.Summary.Informational)
	assert.Equal(t, 2, result.Report.Summary.Passed)
	assert.Equal(t, 2, result.Report.Summary.Total)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunUseCase_CoveredTools(t *testing.T) {
	w := newTestWiring(t, wiringOpts{configure: func(c *config.Config) {
		c.Execution.CoveredTools = []string{"tsc"}
	}})

	result, err := w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeStandard, testutil.Tool("tsc", domain.DimensionBuild))))
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	r := result.Results[0]
	assert.Equal(t, domain.OutcomeInformational, r.Outcome)
	assert.Equal(t, "tsc (TypeScript compiler) is covered by the build dimension tool", r.Message)
	assert.Equal(t, 1, result.Report.Summary.Informational)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, domain.RunStatusUnknown, result.Report.Summary.Status)
}

func TestRunUseCase_CriticalAcquisitionFailure(t *testing.T) {
	ctors := fakeConstructors(nil)
	ctors[constants.WrapperJest] = func(domain.Services, map[string]any) (*domain.WrapperInstance, error) {
		return nil, errors.New("jest is not installed")
	}
	w := newTestWiring(t, wiringOpts{ctors: ctors})
	var out bytes.Buffer
	cfg := runConfig(plan(domain.ModeStandard,
		testutil.Tool("prettier", domain.DimensionFormat),
		testutil.Tool("jest", domain.DimensionTest),
	))
	cfg.OutputWriter = &out

	result, err := w.UseCase.Execute(context.Background(), cfg)
	require.Error(t, err)
	require.NotNil(t, result, "the report is still produced")

	var agg *service.AggregatedError
	require.True(t, errors.As(err, &agg))
	require.Len(t, agg.Errors, 1)
	assert.Equal(t, "jest", agg.Errors[0].TaskName)

	assert.Equal(t, 1, result.ExitCode)
	assert.True(t, result.Results[1].Critical)
	assert.Contains(t, out.String(), "[FAIL] jest")
}

func TestRunUseCase_WritesReportArtifact(t *testing.T) {
	fs := testutil.NewMemFS(nil)
	w := newTestWiring(t, wiringOpts{fs: fs})
	cfg := runConfig(plan(domain.ModeFast, testutil.Tool("prettier", domain.DimensionFormat)))
	cfg.ReportPath = "reports/qa-report.json"
	cfg.Scope = "frontend"

	result, err := w.UseCase.Execute(context.Background(), cfg)
	require.NoError(t, err)

	data, err := fs.ReadFile("reports/qa-report.json")
	require.NoError(t, err)

	var report domain.CIReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, result.Report.Metadata.RunID, report.Metadata.RunID)
	assert.Equal(t, domain.ModeFast, report.Metadata.Mode)
	assert.Equal(t, "frontend", report.Metadata.Scope)
	assert.Equal(t, []string{"reports/qa-report.json"}, report.Artifacts)
	assert.Equal(t, domain.OutcomePassed, report.Tools["prettier"].Outcome)
}

func TestRunUseCase_TextOutput(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})
	var out bytes.Buffer
	cfg := runConfig(plan(domain.ModeStandard,
		testutil.Tool("prettier", domain.DimensionFormat),
		testutil.Tool("eslint", domain.DimensionLint),
	))
	cfg.OutputWriter = &out

	_, err := w.UseCase.Execute(context.Background(), cfg)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "=== QA Run Report ===")
	assert.Contains(t, text, "[PASS] prettier")
	assert.Contains(t, text, "[PASS] eslint")
	assert.Less(t, strings.Index(text, "FORMAT:"), strings.Index(text, "LINT:"))
}

func TestRunUseCase_JSONOutput(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})
	var out bytes.Buffer
	cfg := runConfig(plan(domain.ModeStandard, testutil.Tool("prettier", domain.DimensionFormat)))
	cfg.OutputFormat = domain.OutputFormatJSON
	cfg.OutputWriter = &out

	_, err := w.UseCase.Execute(context.Background(), cfg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	for _, key := range []string{"metadata", "summary", "dimensions", "tools", "failures", "warnings", "recommendations", "artifacts"} {
		assert.Contains(t, decoded, key)
	}
}

func TestRunUseCase_ModeReachesWrappers(t *testing.T) {
	var mu sync.Mutex
	var seen string
	w := newTestWiring(t, wiringOpts{behaviours: map[string]behaviour{
		"pytest": func(_ context.Context, _ []string, opts map[string]any) (*domain.WrapperResult, error) {
			mu.Lock()
			seen, _ = opts[domain.OptionMode].(string)
			mu.Unlock()
			return &domain.WrapperResult{Success: true}, nil
		},
	}})

	_, err := w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeThorough, testutil.Tool("pytest", domain.DimensionTest))))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, string(domain.ModeThorough), seen)
}

func TestRunUseCase_InvalidPlan(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})

	result, err := w.UseCase.Execute(context.Background(), RunConfig{Plan: domain.ExecutionPlan{Mode: domain.ModeStandard}})
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))

	_, err = w.UseCase.Execute(context.Background(),
		runConfig(plan(domain.ModeStandard, domain.ToolSpec{Name: "eslint", Dimension: "style"})))
	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))
}

func TestRunUseCase_Cancelled(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.UseCase.Execute(ctx, runConfig(plan(domain.ModeStandard, testutil.Tool("prettier", domain.DimensionFormat))))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunUseCase_EmptyPlan(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})

	result, err := w.UseCase.Execute(context.Background(), runConfig(plan(domain.ModeStandard)))
	require.NoError(t, err)

	assert.Empty(t, result.Results)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, domain.RunStatusUnknown, result.Report.Summary.Status)
}

func TestRunUseCase_Plan(t *testing.T) {
	w := newTestWiring(t, wiringOpts{})

	groups, err := w.UseCase.Plan(context.Background(), plan(domain.ModeStandard,
		testutil.DimensionTool("build", domain.DimensionBuild),
		testutil.Tool("npm", domain.DimensionBuild),
		testutil.Tool("eslint", domain.DimensionLint),
		testutil.Tool("prettier", domain.DimensionFormat),
		testutil.Tool("jest", domain.DimensionTest),
	))
	require.NoError(t, err)

	require.Len(t, groups, 4)
	assert.Equal(t, domain.DimensionFormat, groups[0].Dimension)
	assert.True(t, groups[0].Parallel)
	assert.Equal(t, domain.DimensionLint, groups[1].Dimension)
	assert.Equal(t, domain.DimensionTest, groups[2].Dimension)
	assert.False(t, groups[2].Parallel)
	assert.Equal(t, domain.DimensionBuild, groups[3].Dimension)
	require.Len(t, groups[3].Tools, 1)
	assert.Equal(t, "build", groups[3].Tools[0].Name)
}

func TestRunUseCaseBuilder_RequiresCollaborators(t *testing.T) {
	_, err := NewRunUseCaseBuilder().Build()
	assert.Error(t, err)

	classifier := service.NewToolClassifier()
	_, err = NewRunUseCaseBuilder().
		WithDeduplicator(service.NewWrapperDeduplicator(nil, classifier, nil)).
		WithController(service.NewExecutionController(service.ControllerConfig{}, classifier, nil, nil)).
		Build()
	assert.Error(t, err, "wrapper provider is required")
}

func TestNewWiring_RequiresConfig(t *testing.T) {
	_, err := NewWiring(Project{Root: t.TempDir()})
	assert.Error(t, err)
}
