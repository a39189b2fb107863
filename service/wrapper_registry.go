package service

import (
	"context"
	"strings"
	"sync"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"go.uber.org/zap"
)

// staticWrapperTypes maps well-known tools straight to their wrapper type
var staticWrapperTypes = map[string]string{
	"eslint":    constants.WrapperDirectLinters,
	"prettier":  constants.WrapperDirectLinters,
	"stylelint": constants.WrapperDirectLinters,
	"ruff":      constants.WrapperDirectLinters,
	"black":     constants.WrapperDirectLinters,
	"flake8":    constants.WrapperDirectLinters,
	"mypy":      constants.WrapperDirectLinters,
	"jest":      constants.WrapperJest,
	"vitest":    constants.WrapperJest,
	"pytest":    constants.WrapperPytest,
	"snyk":      constants.WrapperSnyk,
	"semgrep":   constants.WrapperSemgrep,
	"bandit":    constants.WrapperSemgrep,
	"build":     constants.WrapperBuild,
	"data":      constants.WrapperData,
}

// dimensionWrapperTypes resolves dimension-mode tools without classification
var dimensionWrapperTypes = map[domain.Dimension]string{
	domain.DimensionFormat:   constants.WrapperDirectLinters,
	domain.DimensionLint:     constants.WrapperDirectLinters,
	domain.DimensionTest:     constants.WrapperJest,
	domain.DimensionSecurity: constants.WrapperSnyk,
	domain.DimensionBuild:    constants.WrapperBuild,
	domain.DimensionData:     constants.WrapperData,
}

// wrapperTypeForToolType maps a classified tool to a wrapper type
func wrapperTypeForToolType(t domain.ToolType, name string) (string, bool) {
	switch t {
	case domain.ToolTypeLinter, domain.ToolTypeFormatter:
		return constants.WrapperDirectLinters, true
	case domain.ToolTypeSecurityScanner:
		if strings.Contains(name, "snyk") {
			return constants.WrapperSnyk, true
		}
		return constants.WrapperSemgrep, true
	case domain.ToolTypeTestRunner:
		if strings.Contains(name, "py") {
			return constants.WrapperPytest, true
		}
		return constants.WrapperJest, true
	case domain.ToolTypeBuildTool, domain.ToolTypePackageManager,
		domain.ToolTypeCompiler, domain.ToolTypeBundler:
		return constants.WrapperBuild, true
	case domain.ToolTypeDataValidator:
		return constants.WrapperData, true
	}
	return "", false
}

// DimensionWrapperType returns the wrapper type serving a whole dimension
func DimensionWrapperType(dim domain.Dimension) (string, bool) {
	wt, ok := dimensionWrapperTypes[dim]
	return wt, ok
}

// WrapperRegistryImpl resolves tools to wrapper types and owns the
// process-scoped cache of wrapper instances.
type WrapperRegistryImpl struct {
	loader        WrapperLoader
	classifier    ToolClassifier
	logger        *zap.Logger
	wrapperConfig map[string]any

	mu          sync.Mutex
	toolTypes   map[string]string
	instances   map[string]*domain.WrapperInstance
	unavailable map[string]bool
}

// NewWrapperRegistry creates a registry backed by the given loader and classifier
func NewWrapperRegistry(loader WrapperLoader, classifier ToolClassifier, logger *zap.Logger) *WrapperRegistryImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	toolTypes := make(map[string]string, len(staticWrapperTypes))
	for k, v := range staticWrapperTypes {
		toolTypes[k] = v
	}
	return &WrapperRegistryImpl{
		loader:        loader,
		classifier:    classifier,
		logger:        logger,
		wrapperConfig: map[string]any{},
		toolTypes:     toolTypes,
		instances:     make(map[string]*domain.WrapperInstance),
		unavailable:   make(map[string]bool),
	}
}

// SetWrapperConfig sets the configuration handed to wrapper constructors
func (r *WrapperRegistryImpl) SetWrapperConfig(cfg map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrapperConfig = cfg
}

// MarkUnavailable records tools that intentionally have no standalone
// executor. Wrapper returns no instance for them.
func (r *WrapperRegistryImpl) MarkUnavailable(tools ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.unavailable[strings.ToLower(t)] = true
	}
}

// WrapperType resolves a tool name to a wrapper type: static map, then
// classifier, then the native fallback. Resolutions are cached.
func (r *WrapperRegistryImpl) WrapperType(ctx context.Context, toolName string) string {
	key := strings.ToLower(strings.TrimSpace(toolName))

	r.mu.Lock()
	if wt, ok := r.toolTypes[key]; ok {
		r.mu.Unlock()
		return wt
	}
	r.mu.Unlock()

	wt, ok := wrapperTypeForToolType(r.classifier.ToolType(key), key)
	if !ok {
		r.logger.Warn("no wrapper mapping for tool, falling back to native",
			zap.String("tool", toolName))
		wt = constants.WrapperNative
	}

	r.mu.Lock()
	r.toolTypes[key] = wt
	r.mu.Unlock()
	return wt
}

// Wrapper returns the cached wrapper instance serving spec, loading it on
// first use. It returns (nil, nil) for tools marked unavailable.
func (r *WrapperRegistryImpl) Wrapper(ctx context.Context, spec domain.ToolSpec) (*domain.WrapperInstance, error) {
	wrapperType := r.resolve(ctx, spec)
	if wrapperType == "" {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if instance, ok := r.instances[wrapperType]; ok {
		return instance, nil
	}

	instance, err := r.loader.Load(wrapperType, r.wrapperConfig, r.logger)
	if err != nil {
		return nil, err
	}
	r.instances[wrapperType] = instance
	r.logger.Debug("wrapper loaded",
		zap.String("wrapper", wrapperType),
		zap.Stringer("kind", instance.Kind))
	return instance, nil
}

// resolve returns the wrapper type for spec, or "" when it has no executor
func (r *WrapperRegistryImpl) resolve(ctx context.Context, spec domain.ToolSpec) string {
	if spec.Config.DimensionMode {
		if wt, ok := DimensionWrapperType(spec.Dimension); ok {
			return wt
		}
		return r.WrapperType(ctx, spec.Name)
	}

	r.mu.Lock()
	skip := r.unavailable[strings.ToLower(spec.Name)]
	r.mu.Unlock()
	if skip {
		return ""
	}
	return r.WrapperType(ctx, spec.Name)
}

// LoadedTypes returns the wrapper types instantiated so far
func (r *WrapperRegistryImpl) LoadedTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.instances))
	for t := range r.instances {
		types = append(types, t)
	}
	return types
}
