// Package wrappers contains the built-in tool wrappers. Each wrapper turns
// an external tool's output into a domain.WrapperResult; none of them parse
// source code themselves.
package wrappers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
)

// maxOutputLines caps how much tool output is kept in a violation message
const maxOutputLines = 20

// Builtins returns the constructors for every built-in wrapper type
func Builtins() map[string]domain.WrapperConstructor {
	return map[string]domain.WrapperConstructor{
		constants.WrapperNative:        NewNative,
		constants.WrapperDirectLinters: NewDirectLinters,
		constants.WrapperJest:          NewJest,
		constants.WrapperPytest:        NewPytest,
		constants.WrapperSnyk:          NewSnyk,
		constants.WrapperSemgrep:       NewSemgrep,
		constants.WrapperData:          NewData,
		constants.WrapperBuild:         NewBuild,
	}
}

// toolName returns the tool the controller asked for, or fallback
func toolName(opts map[string]any, fallback string) string {
	if name := optString(opts, domain.OptionTool, ""); name != "" {
		return name
	}
	return fallback
}

func mode(opts map[string]any) domain.ExecutionMode {
	return domain.ExecutionMode(optString(opts, domain.OptionMode, string(domain.ModeStandard)))
}

func optString(opts map[string]any, key, def string) string {
	if v, ok := opts[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func optBool(opts map[string]any, key string, def bool) bool {
	if v, ok := opts[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// optStrings accepts a string, []string, or the []any produced by config decoding
func optStrings(opts map[string]any, key string) []string {
	switch v := opts[key].(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// relPath makes p relative to root with forward slashes when p is inside root
func relPath(root, p string) string {
	if p == "" || !filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// tail returns the last maxOutputLines non-empty lines of out
func tail(out string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > maxOutputLines {
		lines = lines[len(lines)-maxOutputLines:]
	}
	return strings.Join(lines, "\n")
}

// processFailure describes a failed command using its most useful output
func processFailure(name string, res *domain.ProcessResult) string {
	detail := tail(res.Stderr)
	if detail == "" {
		detail = tail(res.Stdout)
	}
	if detail == "" {
		return fmt.Sprintf("%s exited with code %d", name, res.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", name, res.ExitCode, detail)
}

func metadata(files int) *domain.ResultMetadata {
	return &domain.ResultMetadata{FilesProcessed: files}
}

func hasErrors(violations []domain.Violation) bool {
	for _, v := range violations {
		if v.Severity == domain.SeverityError {
			return true
		}
	}
	return false
}
