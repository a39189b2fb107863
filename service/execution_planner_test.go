package service

import (
	"errors"
	"testing"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupDimensions(groups []domain.ExecutionGroup) []domain.Dimension {
	dims := make([]domain.Dimension, len(groups))
	for i, g := range groups {
		dims[i] = g.Dimension
	}
	return dims
}

func TestPlanExecutionStrategy_FixedOrder(t *testing.T) {
	p := NewExecutionPlanner()

	groups := p.PlanExecutionStrategy(domain.ExecutionPlan{
		Tools: []domain.ToolSpec{
			testutil.Tool("build", domain.DimensionBuild),
			testutil.Tool("prettier", domain.DimensionFormat),
			testutil.Tool("jest", domain.DimensionTest),
		},
		Mode: domain.ModeStandard,
	})

	assert.Equal(t, []domain.Dimension{domain.DimensionFormat, domain.DimensionTest, domain.DimensionBuild}, groupDimensions(groups))
	assert.Equal(t, 0, groups[0].Priority)
	assert.Equal(t, 2, groups[1].Priority)
	assert.Equal(t, 5, groups[2].Priority)
}

func TestPlanExecutionStrategy_GroupsSameDimension(t *testing.T) {
	p := NewExecutionPlanner()

	groups := p.PlanExecutionStrategy(domain.ExecutionPlan{
		Tools: []domain.ToolSpec{
			testutil.Tool("eslint", domain.DimensionLint),
			testutil.Tool("ruff", domain.DimensionLint),
			testutil.Tool("mypy", domain.DimensionLint),
		},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"eslint", "ruff", "mypy"}, toolNames(groups[0].Tools))
}

func TestPlanExecutionStrategy_ParallelFlag(t *testing.T) {
	p := NewExecutionPlanner()
	tools := []domain.ToolSpec{
		testutil.Tool("prettier", domain.DimensionFormat),
		testutil.Tool("eslint", domain.DimensionLint),
		testutil.Tool("jest", domain.DimensionTest),
		testutil.Tool("semgrep", domain.DimensionSecurity),
		testutil.Tool("dbt", domain.DimensionData),
		testutil.Tool("build", domain.DimensionBuild),
	}

	standard := p.PlanExecutionStrategy(domain.ExecutionPlan{Tools: tools, Mode: domain.ModeStandard})
	parallel := make([]bool, len(standard))
	for i, g := range standard {
		parallel[i] = g.Parallel
	}
	assert.Equal(t, []bool{true, true, false, false, false, false}, parallel)

	fast := p.PlanExecutionStrategy(domain.ExecutionPlan{Tools: tools, Mode: domain.ModeFast})
	for _, g := range fast {
		assert.True(t, g.Parallel, "fast mode parallelizes %s", g.Dimension)
	}
}

func TestPlanExecutionStrategy_EmptyPlan(t *testing.T) {
	p := NewExecutionPlanner()
	groups := p.PlanExecutionStrategy(domain.ExecutionPlan{Tools: []domain.ToolSpec{}})
	assert.Empty(t, groups)
}

func TestValidatePlan(t *testing.T) {
	p := NewExecutionPlanner()

	tests := []struct {
		name    string
		plan    domain.ExecutionPlan
		wantErr bool
	}{
		{"empty list is valid", domain.ExecutionPlan{Tools: []domain.ToolSpec{}}, false},
		{"valid tools", domain.ExecutionPlan{Tools: []domain.ToolSpec{testutil.Tool("eslint", domain.DimensionLint)}}, false},
		{"missing tools list", domain.ExecutionPlan{}, true},
		{"missing name", domain.ExecutionPlan{Tools: []domain.ToolSpec{{Dimension: domain.DimensionLint}}}, true},
		{"missing dimension", domain.ExecutionPlan{Tools: []domain.ToolSpec{{Name: "eslint"}}}, true},
		{"unknown dimension", domain.ExecutionPlan{Tools: []domain.ToolSpec{{Name: "eslint", Dimension: "style"}}}, true},
		{"unknown mode", domain.ExecutionPlan{Tools: []domain.ToolSpec{}, Mode: "turbo"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidatePlan(tt.plan)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidPlan))
		})
	}
}
