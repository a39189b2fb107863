package service

import (
	"context"
	"testing"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/logging"
	"github.com/ludo-technologies/qarun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func newTestDeduplicator() (*WrapperDeduplicatorImpl, *logging.TestLogger) {
	logger := logging.NewTestLogger()
	classifier := NewToolClassifier()
	registry := NewWrapperRegistry(&MockLoader{}, classifier, nil)
	return NewWrapperDeduplicator(registry, classifier, logger.Logger), logger
}

func toolNames(tools []domain.ToolSpec) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func TestDeduplicateTools_BuildDimensionSubsumesBuildFamily(t *testing.T) {
	d, logger := newTestDeduplicator()

	tools := []domain.ToolSpec{
		testutil.Tool("npm", domain.DimensionBuild),
		testutil.Tool("eslint", domain.DimensionLint),
		testutil.DimensionTool("build", domain.DimensionBuild),
		testutil.Tool("tsc", domain.DimensionBuild),
	}

	got := d.DeduplicateTools(context.Background(), tools)

	assert.Equal(t, []string{"eslint", "build"}, toolNames(got))
	assert.Equal(t, tools[1], got[0], "unrelated tools pass through unchanged")
	logger.AssertLogged(t, zapcore.InfoLevel, "handled by dimension wrapper")
	assert.Len(t, logger.FilterMessage("handled by dimension wrapper").All(), 2)
}

func TestSplitCoveredTools_ReturnsDroppedTools(t *testing.T) {
	d, _ := newTestDeduplicator()

	kept, covered := d.SplitCoveredTools(context.Background(), []domain.ToolSpec{
		testutil.DimensionTool("build", domain.DimensionBuild),
		testutil.Tool("npm", domain.DimensionBuild),
		testutil.Tool("eslint", domain.DimensionLint),
		testutil.Tool("tsc", domain.DimensionBuild),
	})

	assert.Equal(t, []string{"build", "eslint"}, toolNames(kept))
	assert.Equal(t, []string{"npm", "tsc"}, toolNames(covered))
}

func TestSplitCoveredTools_NothingCovered(t *testing.T) {
	d, _ := newTestDeduplicator()

	kept, covered := d.SplitCoveredTools(context.Background(), []domain.ToolSpec{
		testutil.Tool("npm", domain.DimensionBuild),
	})
	assert.Equal(t, []string{"npm"}, toolNames(kept))
	assert.Empty(t, covered)
}

func TestDeduplicateTools_NoDimensionToolKeepsEverything(t *testing.T) {
	d, _ := newTestDeduplicator()

	tools := []domain.ToolSpec{
		testutil.Tool("npm", domain.DimensionBuild),
		testutil.Tool("tsc", domain.DimensionBuild),
		testutil.Tool("vite", domain.DimensionBuild),
	}

	got := d.DeduplicateTools(context.Background(), tools)
	assert.Equal(t, tools, got)
	assert.Empty(t, d.ActiveDimensionTools())
}

func TestDeduplicateTools_NonBuildDimensionToolDoesNotDropBuildFamily(t *testing.T) {
	d, _ := newTestDeduplicator()

	tools := []domain.ToolSpec{
		testutil.DimensionTool("lint", domain.DimensionLint),
		testutil.Tool("npm", domain.DimensionBuild),
	}

	got := d.DeduplicateTools(context.Background(), tools)
	assert.Equal(t, []string{"lint", "npm"}, toolNames(got))
	assert.Equal(t, []string{"lint"}, toolNames(d.ActiveDimensionTools()))
}

func TestIsToolSkipped(t *testing.T) {
	d, _ := newTestDeduplicator()
	ctx := context.Background()

	d.DeduplicateTools(ctx, []domain.ToolSpec{
		testutil.DimensionTool("build", domain.DimensionBuild),
		testutil.DimensionTool("lint", domain.DimensionLint),
	})

	tests := []struct {
		tool domain.ToolSpec
		want bool
	}{
		// pattern tier
		{testutil.Tool("webpack", domain.DimensionBuild), true},
		{testutil.Tool("eslint", domain.DimensionLint), true},
		{testutil.Tool("prettier", domain.DimensionFormat), false},
		{testutil.Tool("jest", domain.DimensionTest), false},
		// classifier tier
		{testutil.Tool("gradle", domain.DimensionBuild), true},
		{testutil.Tool("osv-scanner", domain.DimensionSecurity), false},
		// dimension-mode tools are never skipped
		{testutil.DimensionTool("build", domain.DimensionBuild), false},
	}
	for _, tt := range tests {
		t.Run(tt.tool.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsToolSkipped(ctx, tt.tool))
		})
	}
}

func TestIsToolSkipped_WrapperIdentityFallback(t *testing.T) {
	d, _ := newTestDeduplicator()
	ctx := context.Background()

	// "frobnicate" has no inferable dimension and falls back to native; a
	// dimension tool with no table entry also resolves to native.
	d.DeduplicateTools(ctx, []domain.ToolSpec{
		{Name: "custom-suite", Dimension: "custom", Config: domain.ToolConfig{DimensionMode: true}},
	})

	assert.True(t, d.IsToolSkipped(ctx, testutil.Tool("frobnicate", domain.DimensionLint)))
	assert.False(t, d.IsToolSkipped(ctx, testutil.Tool("eslint", domain.DimensionLint)))
}

func TestIsToolSkipped_NothingActive(t *testing.T) {
	d, _ := newTestDeduplicator()
	assert.False(t, d.IsToolSkipped(context.Background(), testutil.Tool("npm", domain.DimensionBuild)))
}

func TestInferDimension(t *testing.T) {
	d, _ := newTestDeduplicator()

	dim, ok := d.InferDimension("golangci-lint")
	assert.True(t, ok)
	assert.Equal(t, domain.DimensionLint, dim)

	dim, ok = d.InferDimension("great-expectations")
	assert.True(t, ok)
	assert.Equal(t, domain.DimensionData, dim)

	_, ok = d.InferDimension("frobnicate")
	assert.False(t, ok)
}

func TestIsToolSkipped_NilRegistry(t *testing.T) {
	d := NewWrapperDeduplicator(nil, NewToolClassifier(), nil)
	ctx := context.Background()

	kept := d.DeduplicateTools(ctx, []domain.ToolSpec{
		{Name: "custom-suite", Dimension: "custom", Config: domain.ToolConfig{DimensionMode: true}},
		testutil.Tool("npm", domain.DimensionBuild),
	})
	assert.Equal(t, []string{"custom-suite", "npm"}, toolNames(kept))

	assert.NotPanics(t, func() {
		assert.False(t, d.IsToolSkipped(ctx, testutil.Tool("frobnicate", domain.DimensionLint)))
	})
}
