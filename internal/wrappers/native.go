package wrappers

import (
	"context"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"go.uber.org/zap"
)

// Native runs a tool as a plain command and judges it by exit code.
// It is the fallback for tools no other wrapper knows.
//
// Options:
//
//	command     executable to run (default: the tool name)
//	args        arguments placed before the file list
//	pass_files  append resolved files to the command line (default false)
type Native struct {
	svc domain.Services
}

// NewNative constructs the native wrapper
func NewNative(svc domain.Services, _ map[string]any) (*domain.WrapperInstance, error) {
	return domain.NewIndividualInstance(constants.WrapperNative, &Native{svc: svc}), nil
}

// Name returns the wrapper name
func (n *Native) Name() string { return constants.WrapperNative }

// Execute runs the command once
func (n *Native) Execute(ctx context.Context, files []string, opts map[string]any) (*domain.WrapperResult, error) {
	tool := toolName(opts, constants.WrapperNative)
	command := optString(opts, "command", tool)
	args := optStrings(opts, "args")
	if optBool(opts, "pass_files", false) {
		args = append(args, files...)
	}

	n.svc.Logger.Debug("running native tool", zap.String("tool", tool), zap.String("command", command))
	res, err := n.svc.Process.Execute(ctx, command, args...)
	if err != nil {
		return nil, err
	}

	result := &domain.WrapperResult{
		Success: res.Success,
		Output:  res.Stdout,
	}
	if optBool(opts, "pass_files", false) {
		result.Metadata = metadata(len(files))
	}
	if !res.Success {
		result.Violations = []domain.Violation{{
			Severity: domain.SeverityError,
			Message:  processFailure(command, res),
		}}
	}
	return result, nil
}
