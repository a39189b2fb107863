package wrappers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
)

// Snyk tests the project's dependencies for known vulnerabilities.
// High and critical issues fail the check; the rest are warnings.
type Snyk struct {
	svc domain.Services

	// failOn is the lowest severity reported as an error
	failOn string
}

// snyk severities in increasing order
var snykSeverities = []string{"low", "medium", "high", "critical"}

// NewSnyk constructs the snyk wrapper. The wrapper config may set
// "snyk_fail_on" to one of low, medium, high, critical.
func NewSnyk(svc domain.Services, cfg map[string]any) (*domain.WrapperInstance, error) {
	failOn := optString(cfg, "snyk_fail_on", "high")
	if severityRank(failOn) < 0 {
		return nil, fmt.Errorf("invalid snyk_fail_on %q", failOn)
	}
	return domain.NewIndividualInstance(constants.WrapperSnyk, &Snyk{svc: svc, failOn: failOn}), nil
}

// Name returns the wrapper name
func (s *Snyk) Name() string { return constants.WrapperSnyk }

type snykReport struct {
	OK                bool   `json:"ok"`
	DisplayTargetFile string `json:"displayTargetFile"`
	DependencyCount   int    `json:"dependencyCount"`
	Error             string `json:"error"`
	Vulnerabilities   []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Severity    string `json:"severity"`
		PackageName string `json:"packageName"`
		Version     string `json:"version"`
	} `json:"vulnerabilities"`
}

// Execute runs "snyk test --json"
func (s *Snyk) Execute(ctx context.Context, _ []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := append([]string{"test", "--json"}, optStrings(opts, "args")...)
	res, err := s.svc.Process.Execute(ctx, "snyk", args...)
	if err != nil {
		return nil, err
	}
	// 0 = no issues, 1 = issues found, 2 = failure, 3 = no supported project
	if res.ExitCode > 1 {
		return failure("snyk", res, 0), nil
	}

	var report snykReport
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		return nil, domain.NewExecutionError("failed to parse snyk output", err)
	}
	if report.Error != "" {
		return &domain.WrapperResult{Violations: []domain.Violation{{Severity: domain.SeverityError, Message: report.Error}}}, nil
	}

	// snyk reports one entry per dependency path; keep one per issue
	seen := make(map[string]bool)
	var violations []domain.Violation
	for _, v := range report.Vulnerabilities {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		sev := domain.SeverityWarning
		if severityRank(v.Severity) >= severityRank(s.failOn) {
			sev = domain.SeverityError
		}
		violations = append(violations, domain.Violation{
			File:     report.DisplayTargetFile,
			Severity: sev,
			Message:  fmt.Sprintf("%s in %s@%s (%s)", v.Title, v.PackageName, v.Version, v.Severity),
			Rule:     v.ID,
		})
	}

	files := 0
	if report.DisplayTargetFile != "" {
		files = 1
	}
	return &domain.WrapperResult{
		Success:    !hasErrors(violations),
		Violations: violations,
		Metadata:   metadata(files),
		Metrics:    map[string]any{"dependencies": report.DependencyCount},
	}, nil
}

func severityRank(sev string) int {
	for i, s := range snykSeverities {
		if strings.EqualFold(s, sev) {
			return i
		}
	}
	return -1
}

// Semgrep runs a static analysis scanner over the resolved files. It
// speaks semgrep's JSON by default and bandit's when the tool is bandit.
type Semgrep struct {
	svc    domain.Services
	config string
}

// NewSemgrep constructs the semgrep wrapper. The wrapper config may set
// "semgrep_config" (default "auto").
func NewSemgrep(svc domain.Services, cfg map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperSemgrep, &Semgrep{
		svc:    svc,
		config: optString(cfg, "semgrep_config", "auto"),
	}), nil
}

// Name returns the wrapper name
func (s *Semgrep) Name() string { return constants.WrapperSemgrep }

type semgrepReport struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"`
		} `json:"extra"`
	} `json:"results"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type banditReport struct {
	Results []struct {
		Filename      string `json:"filename"`
		LineNumber    int    `json:"line_number"`
		IssueSeverity string `json:"issue_severity"`
		IssueText     string `json:"issue_text"`
		TestID        string `json:"test_id"`
	} `json:"results"`
}

// Execute scans files, or the project root when none were resolved
func (s *Semgrep) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	targets := files
	if len(targets) == 0 {
		targets = []string{"."}
	}
	if toolName(opts, "semgrep") == "bandit" {
		return s.bandit(ctx, targets, opts)
	}

	config := optString(opts, "config", s.config)
	args := []string{"scan", "--json", "--quiet", "--config", config}
	args = append(args, optStrings(opts, "args")...)
	res, err := s.svc.Process.Execute(ctx, "semgrep", append(args, targets...)...)
	if err != nil {
		return nil, err
	}
	// semgrep exits 1 only with --error; anything above is a scan failure
	if res.ExitCode > 1 {
		return failure("semgrep", res, len(files)), nil
	}

	var report semgrepReport
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		return nil, domain.NewExecutionError("failed to parse semgrep output", err)
	}

	root := s.svc.FS.Resolve("")
	var violations []domain.Violation
	for _, r := range report.Results {
		sev := domain.SeverityWarning
		if strings.EqualFold(r.Extra.Severity, "ERROR") {
			sev = domain.SeverityError
		}
		violations = append(violations, domain.Violation{
			File:     relPath(root, r.Path),
			Severity: sev,
			Message:  r.Extra.Message,
			Line:     r.Start.Line,
			Rule:     r.CheckID,
		})
	}
	var warnings []domain.Violation
	for _, e := range report.Errors {
		warnings = append(warnings, domain.Violation{Severity: domain.SeverityWarning, Message: firstLine(e.Message)})
	}
	return &domain.WrapperResult{
		Success:    !hasErrors(violations),
		Violations: violations,
		Warnings:   warnings,
		Metadata:   metadata(len(files)),
	}, nil
}

func (s *Semgrep) bandit(ctx context.Context, targets []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := append([]string{"-f", "json", "-q", "-r"}, optStrings(opts, "args")...)
	res, err := s.svc.Process.Execute(ctx, "bandit", append(args, targets...)...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode > 1 {
		return failure("bandit", res, 0), nil
	}

	var report banditReport
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		return nil, domain.NewExecutionError("failed to parse bandit output", err)
	}

	root := s.svc.FS.Resolve("")
	var violations []domain.Violation
	for _, r := range report.Results {
		sev := domain.SeverityWarning
		if strings.EqualFold(r.IssueSeverity, "HIGH") {
			sev = domain.SeverityError
		}
		violations = append(violations, domain.Violation{
			File:     relPath(root, r.Filename),
			Severity: sev,
			Message:  r.IssueText,
			Line:     r.LineNumber,
			Rule:     r.TestID,
		})
	}
	files := len(targets)
	if targets[0] == "." {
		files = 0
	}
	return &domain.WrapperResult{
		Success:    !hasErrors(violations),
		Violations: violations,
		Metadata:   metadata(files),
	}, nil
}
