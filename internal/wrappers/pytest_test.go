package wrappers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/testutil"
)

func TestPytest_Passed(t *testing.T) {
	proc := testutil.NewFakeProcess().
		On("pytest -q -rfE --color=no", testutil.Success("..........\n10 passed in 0.31s\n"))
	w := individual(t, NewPytest, services(proc, nil))

	res, err := w.Execute(context.Background(), nil, opts("pytest"))

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 10, res.Metrics["passed"])
	assert.Equal(t, 10, res.Metadata.FilesProcessed)
}

func TestPytest_Failures(t *testing.T) {
	output := `..F.E
=========================== short test summary info ============================
FAILED tests/test_api.py::test_login - AssertionError: expected 200
ERROR tests/test_db.py - ImportError: no module named psycopg
1 failed, 3 passed, 1 error in 0.52s
`
	proc := testutil.NewFakeProcess().
		On("pytest -q -rfE --color=no -x", testutil.Failure(1, output, ""))
	w := individual(t, NewPytest, services(proc, nil))

	o := opts("pytest")
	o[domain.OptionMode] = string(domain.ModeFast)
	res, err := w.Execute(context.Background(), nil, o)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, []domain.Violation{
		{File: "tests/test_api.py", Severity: domain.SeverityError, Message: "test_login: AssertionError: expected 200"},
		{File: "tests/test_db.py", Severity: domain.SeverityError, Message: "collection error: ImportError: no module named psycopg"},
	}, res.Violations)
	assert.Equal(t, 1, res.Metrics["failed"])
	assert.Equal(t, 1, res.Metrics["errors"])
	assert.Equal(t, 5, res.Metadata.FilesProcessed)
}

func TestPytest_NoTestsCollected(t *testing.T) {
	proc := testutil.NewFakeProcess().
		On("pytest -q -rfE --color=no", testutil.Failure(5, "\nno tests ran in 0.01s\n", ""))
	w := individual(t, NewPytest, services(proc, nil))

	res, err := w.Execute(context.Background(), nil, opts("pytest"))

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.EmptyTestSuite)
}

func TestPytest_UsageError(t *testing.T) {
	proc := testutil.NewFakeProcess().
		On("pytest -q -rfE --color=no --cov", testutil.Failure(4, "", "error: unrecognized arguments: --cov"))
	w := individual(t, NewPytest, services(proc, nil))

	o := opts("pytest")
	o["args"] = "--cov"
	res, err := w.Execute(context.Background(), nil, o)

	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0].Message, "unrecognized arguments")
}
