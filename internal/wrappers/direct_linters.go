package wrappers

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"go.uber.org/zap"
)

// lineDiagnostic matches the common "file:line[:col]: message" output format
var lineDiagnostic = regexp.MustCompile(`^(.+?):(\d+)(?::\d+)?:\s*(.+)$`)

// DirectLinters invokes linters and formatters directly on the resolved
// files. One instance serves every tool of the lint and format dimensions;
// the tool to run comes from the "tool" option.
type DirectLinters struct {
	svc domain.Services
}

// NewDirectLinters constructs the direct-linters wrapper
func NewDirectLinters(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperDirectLinters, &DirectLinters{svc: svc}), nil
}

// Name returns the wrapper name
func (d *DirectLinters) Name() string { return constants.WrapperDirectLinters }

// Execute runs the requested linter. An empty file set passes without
// starting a process.
func (d *DirectLinters) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	tool := toolName(opts, "eslint")
	if len(files) == 0 {
		d.svc.Logger.Debug("no files to lint", zap.String("tool", tool))
		return &domain.WrapperResult{Success: true, Metadata: metadata(0)}, nil
	}

	switch tool {
	case "eslint":
		return d.eslint(ctx, files, opts)
	case "prettier":
		return d.prettier(ctx, files, opts)
	case "ruff":
		return d.ruff(ctx, files, opts)
	default:
		return d.generic(ctx, tool, files, opts)
	}
}

type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   string `json:"ruleId"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
		Line     int    `json:"line"`
	} `json:"messages"`
}

func (d *DirectLinters) eslint(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := append([]string{"--format", "json", "--no-error-on-unmatched-pattern"}, optStrings(opts, "args")...)
	if mode(opts) == domain.ModeThorough {
		args = append(args, "--report-unused-disable-directives")
	}
	res, err := d.svc.Process.Execute(ctx, "eslint", append(args, files...)...)
	if err != nil {
		return nil, err
	}
	// 0 = clean, 1 = lint errors, anything else is a crash
	if res.ExitCode > 1 {
		return failure("eslint", res, len(files)), nil
	}

	var report []eslintFile
	if err := json.Unmarshal([]byte(res.Stdout), &report); err != nil {
		return nil, domain.NewExecutionError("failed to parse eslint output", err)
	}

	root := d.svc.FS.Resolve("")
	var violations []domain.Violation
	for _, f := range report {
		for _, m := range f.Messages {
			sev := domain.SeverityWarning
			if m.Severity >= 2 {
				sev = domain.SeverityError
			}
			violations = append(violations, domain.Violation{
				File:     relPath(root, f.FilePath),
				Severity: sev,
				Message:  m.Message,
				Line:     m.Line,
				Rule:     m.RuleID,
			})
		}
	}
	return &domain.WrapperResult{
		Success:    !hasErrors(violations),
		Violations: violations,
		Metadata:   metadata(len(files)),
	}, nil
}

// prettier lists files whose formatting differs; each one is an error
func (d *DirectLinters) prettier(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := append([]string{"--list-different", "--ignore-unknown"}, optStrings(opts, "args")...)
	res, err := d.svc.Process.Execute(ctx, "prettier", append(args, files...)...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode > 1 {
		return failure("prettier", res, len(files)), nil
	}

	var violations []domain.Violation
	for _, line := range strings.Split(res.Stdout, "\n") {
		file := strings.TrimSpace(line)
		if file == "" {
			continue
		}
		violations = append(violations, domain.Violation{
			File:     file,
			Severity: domain.SeverityError,
			Message:  "file is not formatted",
			Rule:     "prettier",
		})
	}
	return &domain.WrapperResult{
		Success:    len(violations) == 0,
		Violations: violations,
		Metadata:   metadata(len(files)),
	}, nil
}

type ruffDiagnostic struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Location struct {
		Row int `json:"row"`
	} `json:"location"`
}

func (d *DirectLinters) ruff(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	args := append([]string{"check", "--output-format", "json", "--quiet"}, optStrings(opts, "args")...)
	res, err := d.svc.Process.Execute(ctx, "ruff", append(args, files...)...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode > 1 {
		return failure("ruff", res, len(files)), nil
	}

	var diags []ruffDiagnostic
	if out := strings.TrimSpace(res.Stdout); out != "" {
		if err := json.Unmarshal([]byte(out), &diags); err != nil {
			return nil, domain.NewExecutionError("failed to parse ruff output", err)
		}
	}

	root := d.svc.FS.Resolve("")
	violations := make([]domain.Violation, 0, len(diags))
	for _, diag := range diags {
		violations = append(violations, domain.Violation{
			File:     relPath(root, diag.Filename),
			Severity: domain.SeverityError,
			Message:  diag.Message,
			Line:     diag.Location.Row,
			Rule:     diag.Code,
		})
	}
	return &domain.WrapperResult{
		Success:    len(violations) == 0,
		Violations: violations,
		Metadata:   metadata(len(files)),
	}, nil
}

// generic runs "<tool> [args] files..." and reads file:line diagnostics
// from its output. The exit code decides pass or fail.
func (d *DirectLinters) generic(ctx context.Context, tool string, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	command := optString(opts, "command", tool)
	args := append(optStrings(opts, "args"), files...)
	res, err := d.svc.Process.Execute(ctx, command, args...)
	if err != nil {
		return nil, err
	}

	sev := domain.SeverityWarning
	if !res.Success {
		sev = domain.SeverityError
	}
	violations := parseLineDiagnostics(res.Stdout+"\n"+res.Stderr, sev, d.svc.FS.Resolve(""))
	if !res.Success && len(violations) == 0 {
		violations = append(violations, domain.Violation{
			Severity: domain.SeverityError,
			Message:  processFailure(command, res),
		})
	}
	return &domain.WrapperResult{
		Success:    res.Success,
		Violations: violations,
		Metadata:   metadata(len(files)),
		Output:     res.Stdout,
	}, nil
}

func parseLineDiagnostics(out string, sev domain.Severity, root string) []domain.Violation {
	var violations []domain.Violation
	for _, line := range strings.Split(out, "\n") {
		m := lineDiagnostic.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		lineNo, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		violations = append(violations, domain.Violation{
			File:     relPath(root, m[1]),
			Severity: sev,
			Message:  m[3],
			Line:     lineNo,
		})
	}
	return violations
}

// failure is the result for a tool that crashed instead of reporting
func failure(tool string, res *domain.ProcessResult, files int) *domain.WrapperResult {
	return &domain.WrapperResult{
		Success: false,
		Violations: []domain.Violation{{
			Severity: domain.SeverityError,
			Message:  processFailure(tool, res),
		}},
		Metadata: metadata(files),
	}
}
