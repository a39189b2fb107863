package wrappers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"go.uber.org/zap"
)

// Jest runs jest, or vitest through its jest-compatible JSON reporter.
// The runner discovers its own test files; resolved files are ignored
// unless the "pass_files" option is set.
type Jest struct {
	svc domain.Services
}

// NewJest constructs the jest wrapper
func NewJest(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperJest, &Jest{svc: svc}), nil
}

// Name returns the wrapper name
func (j *Jest) Name() string { return constants.WrapperJest }

type jestReport struct {
	Success         bool `json:"success"`
	NumTotalTests   int  `json:"numTotalTests"`
	NumFailedTests  int  `json:"numFailedTests"`
	NumPassedTests  int  `json:"numPassedTests"`
	NumPendingTests int  `json:"numPendingTests"`
	TestResults     []struct {
		Name             string `json:"name"`
		Status           string `json:"status"`
		Message          string `json:"message"`
		AssertionResults []struct {
			FullName        string   `json:"fullName"`
			Status          string   `json:"status"`
			FailureMessages []string `json:"failureMessages"`
			Location        *struct {
				Line int `json:"line"`
			} `json:"location"`
		} `json:"assertionResults"`
	} `json:"testResults"`
}

// Execute runs the test suite once
func (j *Jest) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	tool := toolName(opts, "jest")

	var args []string
	if tool == "vitest" {
		args = []string{"run", "--reporter=json", "--passWithNoTests"}
	} else {
		args = []string{"--json", "--ci", "--passWithNoTests"}
		if mode(opts) == domain.ModeFast {
			args = append(args, "--bail")
		}
	}
	args = append(args, optStrings(opts, "args")...)
	if optBool(opts, "pass_files", false) {
		args = append(args, files...)
	}

	res, err := j.svc.Process.Execute(ctx, tool, args...)
	if err != nil {
		return nil, err
	}

	report, err := parseJestReport(res.Stdout)
	if err != nil {
		if !res.Success {
			return failure(tool, res, 0), nil
		}
		return nil, domain.NewExecutionError(fmt.Sprintf("failed to parse %s output", tool), err)
	}

	root := j.svc.FS.Resolve("")
	var violations []domain.Violation
	for _, suite := range report.TestResults {
		file := relPath(root, suite.Name)
		failedAssertions := 0
		for _, a := range suite.AssertionResults {
			if a.Status != "failed" {
				continue
			}
			failedAssertions++
			v := domain.Violation{
				File:     file,
				Severity: domain.SeverityError,
				Message:  a.FullName,
			}
			if len(a.FailureMessages) > 0 {
				v.Message = a.FullName + ": " + firstLine(a.FailureMessages[0])
			}
			if a.Location != nil {
				v.Line = a.Location.Line
			}
			violations = append(violations, v)
		}
		// a suite can fail without assertions, e.g. on a syntax error
		if suite.Status == "failed" && failedAssertions == 0 {
			violations = append(violations, domain.Violation{
				File:     file,
				Severity: domain.SeverityError,
				Message:  "test suite failed to run: " + firstLine(suite.Message),
			})
		}
	}

	result := &domain.WrapperResult{
		Success:        report.Success && res.Success && !hasErrors(violations),
		Violations:     violations,
		EmptyTestSuite: report.NumTotalTests == 0,
		Metadata:       metadata(len(report.TestResults)),
		Metrics: map[string]any{
			"tests":   report.NumTotalTests,
			"passed":  report.NumPassedTests,
			"failed":  report.NumFailedTests,
			"pending": report.NumPendingTests,
		},
	}
	if result.EmptyTestSuite {
		j.svc.Logger.Info("no tests found", zap.String("tool", tool))
	}
	return result, nil
}

// parseJestReport finds the JSON report in stdout; some setups print
// banners before it
func parseJestReport(stdout string) (*jestReport, error) {
	start := strings.Index(stdout, "{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON report in output")
	}
	var report jestReport
	if err := json.Unmarshal([]byte(stdout[start:]), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
