package wrappers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
)

// pytest exit codes
const (
	pytestExitOK          = 0
	pytestExitTestsFailed = 1
	pytestExitNoTests     = 5
)

var (
	// "FAILED tests/test_api.py::test_login - AssertionError: boom"
	pytestFailedLine = regexp.MustCompile(`^(?:FAILED|ERROR) ([^:\s]+)(?:::(\S+))?(?: - (.*))?$`)

	// counts in the final summary line, e.g. "2 failed, 10 passed in 0.31s"
	pytestCount = regexp.MustCompile(`(\d+) (passed|failed|errors?|skipped)`)
)

// Pytest runs pytest and reads its short test summary
type Pytest struct {
	svc domain.Services
}

// NewPytest constructs the pytest wrapper
func NewPytest(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperPytest, &Pytest{svc: svc}), nil
}

// Name returns the wrapper name
func (p *Pytest) Name() string { return constants.WrapperPytest }

// Execute runs the suite. Exit code 5 (nothing collected) passes as an
// empty suite.
func (p *Pytest) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := []string{"-q", "-rfE", "--color=no"}
	if mode(opts) == domain.ModeFast {
		args = append(args, "-x")
	}
	args = append(args, optStrings(opts, "args")...)
	if optBool(opts, "pass_files", false) {
		args = append(args, files...)
	}

	res, err := p.svc.Process.Execute(ctx, "pytest", args...)
	if err != nil {
		return nil, err
	}

	counts := pytestCounts(res.Stdout)
	result := &domain.WrapperResult{
		Metrics:  make(map[string]any, len(counts)),
		Metadata: metadata(counts["passed"] + counts["failed"] + counts["errors"]),
	}
	for k, v := range counts {
		result.Metrics[k] = v
	}

	switch res.ExitCode {
	case pytestExitOK:
		result.Success = true
	case pytestExitNoTests:
		result.Success = true
		result.EmptyTestSuite = true
	case pytestExitTestsFailed:
		result.Violations = pytestFailures(res.Stdout)
		if len(result.Violations) == 0 {
			result.Violations = []domain.Violation{{Severity: domain.SeverityError, Message: processFailure("pytest", res)}}
		}
	default:
		// interrupted, internal error or usage error
		return failure("pytest", res, 0), nil
	}
	return result, nil
}

func pytestFailures(stdout string) []domain.Violation {
	var violations []domain.Violation
	for _, line := range strings.Split(stdout, "\n") {
		m := pytestFailedLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		msg := m[2]
		if msg == "" {
			msg = "collection error"
		}
		if m[3] != "" {
			msg += ": " + m[3]
		}
		violations = append(violations, domain.Violation{
			File:     m[1],
			Severity: domain.SeverityError,
			Message:  msg,
		})
	}
	return violations
}

func pytestCounts(stdout string) map[string]int {
	counts := map[string]int{"passed": 0, "failed": 0, "errors": 0, "skipped": 0}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) == 0 {
		return counts
	}
	for _, m := range pytestCount.FindAllStringSubmatch(lines[len(lines)-1], -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		key := m[2]
		if strings.HasPrefix(key, "error") {
			key = "errors"
		}
		counts[key] = n
	}
	return counts
}
