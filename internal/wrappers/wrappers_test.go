package wrappers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"github.com/ludo-technologies/qarun/internal/testutil"
)

func services(proc *testutil.FakeProcess, fs *testutil.MemFS) domain.Services {
	if fs == nil {
		fs = testutil.NewMemFS(nil)
	}
	return domain.Services{Process: proc, FS: fs, Logger: zap.NewNop()}
}

func individual(t *testing.T, ctor domain.WrapperConstructor, svc domain.Services) domain.IndividualWrapper {
	t.Helper()
	inst, err := ctor(svc, nil)
	require.NoError(t, err)
	require.Equal(t, domain.WrapperKindIndividual, inst.Kind)
	return inst.Individual
}

func opts(tool string) map[string]any {
	return map[string]any{domain.OptionTool: tool, domain.OptionMode: string(domain.ModeStandard)}
}

func TestBuiltins(t *testing.T) {
	builtins := Builtins()

	for _, wrapperType := range []string{
		constants.WrapperNative,
		constants.WrapperDirectLinters,
		constants.WrapperJest,
		constants.WrapperPytest,
		constants.WrapperSnyk,
		constants.WrapperSemgrep,
		constants.WrapperData,
		constants.WrapperBuild,
	} {
		t.Run(wrapperType, func(t *testing.T) {
			ctor, ok := builtins[wrapperType]
			require.True(t, ok)

			inst, err := ctor(services(testutil.NewFakeProcess(), nil), map[string]any{})
			require.NoError(t, err)
			assert.Equal(t, wrapperType, inst.Type)
			assert.Equal(t, wrapperType, inst.Name())
		})
	}
	assert.Equal(t, domain.WrapperKindOrchestrator, mustKind(t, builtins[constants.WrapperBuild]))
}

func mustKind(t *testing.T, ctor domain.WrapperConstructor) domain.WrapperKind {
	inst, err := ctor(services(testutil.NewFakeProcess(), nil), nil)
	require.NoError(t, err)
	return inst.Kind
}

func TestOptStrings(t *testing.T) {
	assert.Equal(t, []string{"--fix", "--quiet"}, optStrings(map[string]any{"args": "--fix --quiet"}, "args"))
	assert.Equal(t, []string{"a"}, optStrings(map[string]any{"args": []string{"a"}}, "args"))
	assert.Equal(t, []string{"a", "1"}, optStrings(map[string]any{"args": []any{"a", 1}}, "args"))
	assert.Nil(t, optStrings(map[string]any{}, "args"))
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "src/a.ts", relPath("/project", "/project/src/a.ts"))
	assert.Equal(t, "/elsewhere/a.ts", relPath("/project", "/elsewhere/a.ts"))
	assert.Equal(t, "src/a.ts", relPath("/project", "src/a.ts"))
}

func TestNative(t *testing.T) {
	proc := testutil.NewFakeProcess().
		On("hadolint Dockerfile", testutil.Success("")).
		On("license-check --strict", testutil.Failure(2, "", "GPL dependency found"))
	w := individual(t, NewNative, services(proc, nil))

	res, err := w.Execute(context.Background(), []string{"Dockerfile"}, map[string]any{
		domain.OptionTool: "hadolint",
		"pass_files":      true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Metadata.FilesProcessed)

	res, err = w.Execute(context.Background(), []string{"ignored.go"}, map[string]any{
		domain.OptionTool: "licenses",
		"command":         "license-check",
		"args":            []any{"--strict"},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "license-check exited with code 2: GPL dependency found", res.Violations[0].Message)
	assert.Nil(t, res.Metadata)
}

func TestNative_StartFailure(t *testing.T) {
	w := individual(t, NewNative, services(testutil.NewFakeProcess(), nil))

	_, err := w.Execute(context.Background(), nil, opts("missing-tool"))

	assert.ErrorContains(t, err, "executable file not found")
}
