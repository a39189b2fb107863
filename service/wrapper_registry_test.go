package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/logging"
	"github.com/ludo-technologies/qarun/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MockClassifier is a mock implementation of ToolClassifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) ToolType(name string) domain.ToolType {
	args := m.Called(name)
	return args.Get(0).(domain.ToolType)
}

func (m *MockClassifier) Describe(name string) string {
	args := m.Called(name)
	return args.String(0)
}

// MockLoader is a mock implementation of WrapperLoader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(wrapperType string, cfg map[string]any, logger *zap.Logger) (*domain.WrapperInstance, error) {
	args := m.Called(wrapperType, cfg, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WrapperInstance), args.Error(1)
}

func TestWrapperRegistry_StaticMapping(t *testing.T) {
	classifier := &MockClassifier{}
	r := NewWrapperRegistry(&MockLoader{}, classifier, nil)
	ctx := context.Background()

	assert.Equal(t, "direct-linters", r.WrapperType(ctx, "eslint"))
	assert.Equal(t, "jest", r.WrapperType(ctx, "jest"))
	assert.Equal(t, "pytest", r.WrapperType(ctx, "pytest"))
	assert.Equal(t, "snyk", r.WrapperType(ctx, "snyk"))
	assert.Equal(t, "build", r.WrapperType(ctx, "build"))

	classifier.AssertNotCalled(t, "ToolType", mock.Anything)
}

func TestWrapperRegistry_ClassifierResolutionIsCached(t *testing.T) {
	classifier := &MockClassifier{}
	classifier.On("ToolType", "stylelint-plus").Return(domain.ToolTypeLinter).Once()
	r := NewWrapperRegistry(&MockLoader{}, classifier, nil)
	ctx := context.Background()

	first := r.WrapperType(ctx, "stylelint-plus")
	second := r.WrapperType(ctx, "stylelint-plus")

	assert.Equal(t, "direct-linters", first)
	assert.Equal(t, first, second)
	classifier.AssertNumberOfCalls(t, "ToolType", 1)
}

func TestWrapperRegistry_ToolTypeTable(t *testing.T) {
	tests := []struct {
		tool     string
		toolType domain.ToolType
		want     string
	}{
		{"ktlint", domain.ToolTypeLinter, "direct-linters"},
		{"sqlfmt", domain.ToolTypeFormatter, "direct-linters"},
		{"snyk-iac", domain.ToolTypeSecurityScanner, "snyk"},
		{"trivy", domain.ToolTypeSecurityScanner, "semgrep"},
		{"vitest", domain.ToolTypeTestRunner, "jest"},
		{"pyright-tests", domain.ToolTypeTestRunner, "pytest"},
		{"yarn", domain.ToolTypePackageManager, "build"},
		{"tsc", domain.ToolTypeCompiler, "build"},
		{"vite", domain.ToolTypeBundler, "build"},
		{"dbt", domain.ToolTypeDataValidator, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			classifier := &MockClassifier{}
			classifier.On("ToolType", tt.tool).Return(tt.toolType).Maybe()
			r := NewWrapperRegistry(&MockLoader{}, classifier, nil)
			assert.Equal(t, tt.want, r.WrapperType(context.Background(), tt.tool))
		})
	}
}

func TestWrapperRegistry_NativeFallbackWarns(t *testing.T) {
	logger := logging.NewTestLogger()
	r := NewWrapperRegistry(&MockLoader{}, NewToolClassifier(), logger.Logger)

	assert.Equal(t, "native", r.WrapperType(context.Background(), "frobnicate"))
	logger.AssertLogged(t, zapcore.WarnLevel, "falling back to native")
	logger.AssertField(t, "falling back to native", "tool", "frobnicate")
}

func TestDimensionWrapperType(t *testing.T) {
	want := map[domain.Dimension]string{
		domain.DimensionFormat:   "direct-linters",
		domain.DimensionLint:     "direct-linters",
		domain.DimensionTest:     "jest",
		domain.DimensionSecurity: "snyk",
		domain.DimensionBuild:    "build",
		domain.DimensionData:     "data",
	}
	for dim, wt := range want {
		got, ok := DimensionWrapperType(dim)
		assert.True(t, ok)
		assert.Equal(t, wt, got, string(dim))
	}
	_, ok := DimensionWrapperType("style")
	assert.False(t, ok)
}

func TestWrapperRegistry_WrapperCachesInstances(t *testing.T) {
	loader := &MockLoader{}
	instance := testutil.ResultFor("direct-linters", &domain.WrapperResult{Success: true}, nil)
	loader.On("Load", "direct-linters", mock.Anything, mock.Anything).Return(instance, nil).Once()

	r := NewWrapperRegistry(loader, NewToolClassifier(), nil)
	ctx := context.Background()

	first, err := r.Wrapper(ctx, testutil.Tool("eslint", domain.DimensionLint))
	require.NoError(t, err)
	second, err := r.Wrapper(ctx, testutil.Tool("prettier", domain.DimensionFormat))
	require.NoError(t, err)

	assert.Same(t, first, second)
	loader.AssertNumberOfCalls(t, "Load", 1)
	assert.Equal(t, []string{"direct-linters"}, r.LoadedTypes())
}

func TestWrapperRegistry_ConcurrentWrapperLoadsOnce(t *testing.T) {
	loader := &MockLoader{}
	instance := testutil.ResultFor("jest", &domain.WrapperResult{Success: true}, nil)
	loader.On("Load", "jest", mock.Anything, mock.Anything).Return(instance, nil)

	r := NewWrapperRegistry(loader, NewToolClassifier(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Wrapper(context.Background(), testutil.Tool("jest", domain.DimensionTest))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loader.AssertNumberOfCalls(t, "Load", 1)
}

func TestWrapperRegistry_DimensionModeUsesDimensionTable(t *testing.T) {
	loader := &MockLoader{}
	instance := testutil.ResultFor("snyk", &domain.WrapperResult{Success: true}, nil)
	loader.On("Load", "snyk", mock.Anything, mock.Anything).Return(instance, nil)

	r := NewWrapperRegistry(loader, NewToolClassifier(), nil)

	got, err := r.Wrapper(context.Background(), testutil.DimensionTool("security-suite", domain.DimensionSecurity))
	require.NoError(t, err)
	assert.Equal(t, "snyk", got.Type)
}

func TestWrapperRegistry_UnavailableTools(t *testing.T) {
	loader := &MockLoader{}
	r := NewWrapperRegistry(loader, NewToolClassifier(), nil)
	r.MarkUnavailable("Yarn")

	got, err := r.Wrapper(context.Background(), testutil.Tool("yarn", domain.DimensionBuild))
	require.NoError(t, err)
	assert.Nil(t, got)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything, mock.Anything)
}

func TestWrapperRegistry_LoadErrorPropagates(t *testing.T) {
	loader := &MockLoader{}
	loader.On("Load", "native", mock.Anything, mock.Anything).Return(nil, domain.NewWrapperNotFoundError("native"))

	r := NewWrapperRegistry(loader, NewToolClassifier(), nil)

	_, err := r.Wrapper(context.Background(), testutil.Tool("frobnicate", domain.DimensionLint))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrWrapperNotFound))
}
