package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"gopkg.in/yaml.v3"
)

// maxFilesShown caps the per-file table in text output
const maxFilesShown = 10

// OutputFormatterImpl renders run reports and plans
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as block-style YAML using its JSON field names and order
func WriteYAML(writer io.Writer, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return err
	}
	clearStyle(&node)

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

// clearStyle turns JSON flow style into YAML block style
func clearStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle {
		n.Style = 0
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// Write renders a CI report. Text output also lists the per-tool details.
func (f *OutputFormatterImpl) Write(report *domain.CIReport, details []domain.ExecutionResult, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, report)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, report)
	case domain.OutputFormatText, "":
		return f.writeText(report, details, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// WritePlan renders planned execution groups
func (f *OutputFormatterImpl) WritePlan(groups []domain.ExecutionGroup, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, groups)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, groups)
	case domain.OutputFormatText, "":
		return f.writePlanText(groups, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// statusLabel returns a fixed-width label for a result
func statusLabel(r domain.ExecutionResult) string {
	switch {
	case r.Skipped:
		return "[SKIP]"
	case r.Outcome == domain.OutcomeInformational:
		return "[INFO]"
	case r.Outcome == domain.OutcomeFailed:
		return "[FAIL]"
	case r.Status == domain.StatusWarning:
		return "[WARN]"
	default:
		return "[PASS]"
	}
}

func (f *OutputFormatterImpl) writeText(report *domain.CIReport, details []domain.ExecutionResult, writer io.Writer) error {
	var buf bytes.Buffer
	meta := report.Metadata
	s := report.Summary

	fmt.Fprintf(&buf, "\n=== QA Run Report ===\n\n")
	fmt.Fprintf(&buf, "Run: %s\n", meta.RunID)
	if meta.Branch != "" || meta.Commit != "" {
		fmt.Fprintf(&buf, "Branch: %s  Commit: %s\n", meta.Branch, shortCommit(meta.Commit))
	}
	fmt.Fprintf(&buf, "Environment: %s  Mode: %s\n", meta.Environment, meta.Mode)
	fmt.Fprintf(&buf, "Version: %s\n\n", meta.Version)

	// Per-dimension results, in execution order
	byDimension := make(map[domain.Dimension][]domain.ExecutionResult)
	for _, r := range details {
		byDimension[r.Dimension] = append(byDimension[r.Dimension], r)
	}
	for _, dim := range domain.DimensionOrder {
		results, ok := byDimension[dim]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "%s:\n", strings.ToUpper(string(dim)))
		for _, r := range results {
			fmt.Fprintf(&buf, "  %s %s (%dms)\n", statusLabel(r), r.Tool, r.ExecutionTimeMs)
			switch {
			case r.Error != "":
				fmt.Fprintf(&buf, "         %s\n", r.Error)
			case r.Message != "":
				fmt.Fprintf(&buf, "         %s\n", r.Message)
			}
		}
		fmt.Fprintf(&buf, "\n")
	}

	fmt.Fprintf(&buf, "Summary:\n")
	fmt.Fprintf(&buf, "  Status: %s\n", strings.ToUpper(s.Status))
	fmt.Fprintf(&buf, "  Files checked: %d\n", s.Total)
	fmt.Fprintf(&buf, "  Passed: %d\n", s.Passed)
	fmt.Fprintf(&buf, "  Failed: %d\n", s.Failed)
	fmt.Fprintf(&buf, "  Warnings: %d\n", s.Warnings)
	fmt.Fprintf(&buf, "  Errors: %d\n", s.Errors)
	if s.Informational > 0 {
		fmt.Fprintf(&buf, "  Covered elsewhere: %d\n", s.Informational)
	}
	fmt.Fprintf(&buf, "  Duration: %dms\n", s.ExecutionTimeMs)

	if len(s.FilesWithProblems) > 0 {
		fmt.Fprintf(&buf, "\nFiles with problems:\n")
		for i, fp := range s.FilesWithProblems {
			if i == maxFilesShown {
				fmt.Fprintf(&buf, "  ... and %d more\n", len(s.FilesWithProblems)-maxFilesShown)
				break
			}
			fmt.Fprintf(&buf, "  %s: %d error(s), %d warning(s)\n", fp.File, fp.Errors, fp.Warnings)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&buf, "\nRecommendations:\n")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(&buf, "  - %s\n", rec)
		}
	}

	if len(report.Artifacts) > 0 {
		fmt.Fprintf(&buf, "\nArtifacts:\n")
		artifacts := append([]string(nil), report.Artifacts...)
		sort.Strings(artifacts)
		for _, a := range artifacts {
			fmt.Fprintf(&buf, "  %s\n", a)
		}
	}

	_, err := writer.Write(buf.Bytes())
	return err
}

func (f *OutputFormatterImpl) writePlanText(groups []domain.ExecutionGroup, writer io.Writer) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n=== Execution Plan ===\n\n")
	if len(groups) == 0 {
		fmt.Fprintf(&buf, "No tools planned.\n")
	}
	for i, g := range groups {
		mode := "sequential"
		if g.Parallel {
			mode = "parallel"
		}
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, g.Dimension, mode)
		for _, t := range g.Tools {
			extra := ""
			if t.Config.DimensionMode {
				extra = " [dimension]"
			}
			if t.Config.Scope != "" {
				extra += " scope=" + t.Config.Scope
			}
			fmt.Fprintf(&buf, "   - %s%s\n", t.Name, extra)
		}
	}
	_, err := writer.Write(buf.Bytes())
	return err
}

func shortCommit(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}
