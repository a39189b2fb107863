package service

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/constants"
	"go.uber.org/zap"
)

// buildFamily are the individual tools a build dimension-mode tool runs itself
var buildFamily = []string{"npm", "yarn", "pnpm", "tsc", "pip", "vite"}

// dimensionPatterns is the first tier of tool-to-dimension inference
var dimensionPatterns = []struct {
	pattern   *regexp.Regexp
	dimension domain.Dimension
}{
	{regexp.MustCompile(`^(prettier|black|isort|gofmt|rustfmt|autopep8|yapf|clang-format|format)$`), domain.DimensionFormat},
	{regexp.MustCompile(`(lint|^ruff$|^flake8$|^mypy$|^shellcheck$)`), domain.DimensionLint},
	{regexp.MustCompile(`(jest|vitest|mocha|pytest|cypress|playwright|karma|^test$)`), domain.DimensionTest},
	{regexp.MustCompile(`(snyk|semgrep|bandit|audit|trivy|gitleaks|gosec|^security$)`), domain.DimensionSecurity},
	{regexp.MustCompile(`(^dbt$|great-expectations|pandera|^data$)`), domain.DimensionData},
	{regexp.MustCompile(`^(build|npm|yarn|pnpm|tsc|pip|vite|webpack|rollup|esbuild|make)$`), domain.DimensionBuild},
}

// wrapperTyper is the part of the registry the deduplicator needs
type wrapperTyper interface {
	WrapperType(ctx context.Context, toolName string) string
}

// WrapperDeduplicatorImpl drops individual tools already covered by a
// dimension-mode tool in the same plan
type WrapperDeduplicatorImpl struct {
	registry   wrapperTyper
	classifier ToolClassifier
	logger     *zap.Logger

	mu     sync.RWMutex
	active []domain.ToolSpec
}

// NewWrapperDeduplicator creates a deduplicator. A nil registry disables
// the wrapper-identity tier of IsToolSkipped.
func NewWrapperDeduplicator(registry wrapperTyper, classifier ToolClassifier, logger *zap.Logger) *WrapperDeduplicatorImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WrapperDeduplicatorImpl{
		registry:   registry,
		classifier: classifier,
		logger:     logger,
	}
}

// DeduplicateTools removes tools handled by a build dimension-mode tool and
// records the dimension-mode tools as the active snapshot for IsToolSkipped.
func (d *WrapperDeduplicatorImpl) DeduplicateTools(ctx context.Context, tools []domain.ToolSpec) []domain.ToolSpec {
	kept, _ := d.SplitCoveredTools(ctx, tools)
	return kept
}

// SplitCoveredTools is DeduplicateTools that also returns the dropped tools,
// in plan order, so callers can report them.
func (d *WrapperDeduplicatorImpl) SplitCoveredTools(ctx context.Context, tools []domain.ToolSpec) (kept, covered []domain.ToolSpec) {
	handled := make(map[string]string)
	var active []domain.ToolSpec

	for _, tool := range tools {
		if !tool.Config.DimensionMode {
			continue
		}
		active = append(active, tool)
		if d.dimensionToolWrapperType(ctx, tool) == constants.WrapperBuild {
			for _, name := range buildFamily {
				handled[name] = tool.Name
			}
		}
	}

	d.mu.Lock()
	d.active = active
	d.mu.Unlock()

	kept = make([]domain.ToolSpec, 0, len(tools))
	for _, tool := range tools {
		if !tool.Config.DimensionMode {
			if by, ok := handled[strings.ToLower(tool.Name)]; ok {
				d.logger.Info("tool handled by dimension wrapper, skipping",
					zap.String("tool", tool.Name),
					zap.String("handledBy", by))
				covered = append(covered, tool)
				continue
			}
		}
		kept = append(kept, tool)
	}
	return kept, covered
}

// ActiveDimensionTools returns the dimension-mode tools seen by the last DeduplicateTools call
func (d *WrapperDeduplicatorImpl) ActiveDimensionTools() []domain.ToolSpec {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.ToolSpec, len(d.active))
	copy(out, d.active)
	return out
}

// IsToolSkipped reports whether an active dimension-mode tool covers tool's
// dimension. Dimension-mode tools are never skipped.
func (d *WrapperDeduplicatorImpl) IsToolSkipped(ctx context.Context, tool domain.ToolSpec) bool {
	if tool.Config.DimensionMode {
		return false
	}

	d.mu.RLock()
	active := d.active
	d.mu.RUnlock()

	for _, dimTool := range active {
		if d.covers(ctx, dimTool, tool) {
			d.logger.Debug("tool covered by active dimension tool",
				zap.String("tool", tool.Name),
				zap.String("dimensionTool", dimTool.Name))
			return true
		}
	}
	return false
}

func (d *WrapperDeduplicatorImpl) covers(ctx context.Context, dimTool, tool domain.ToolSpec) bool {
	toolDim, ok := d.InferDimension(tool.Name)
	if ok {
		dimToolDim, ok := d.InferDimension(dimTool.Name)
		if !ok {
			dimToolDim = dimTool.Dimension
		}
		return toolDim == dimToolDim
	}

	// Last tier: same wrapper means same check
	if d.registry == nil {
		return false
	}
	return d.registry.WrapperType(ctx, tool.Name) == d.dimensionToolWrapperType(ctx, dimTool)
}

// InferDimension guesses which dimension a tool checks: name patterns
// first, then the classifier. The second result is false when neither answers.
func (d *WrapperDeduplicatorImpl) InferDimension(name string) (domain.Dimension, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, p := range dimensionPatterns {
		if p.pattern.MatchString(key) {
			return p.dimension, true
		}
	}
	if d.classifier != nil {
		return DimensionForToolType(d.classifier.ToolType(key))
	}
	return "", false
}

func (d *WrapperDeduplicatorImpl) dimensionToolWrapperType(ctx context.Context, tool domain.ToolSpec) string {
	if wt, ok := DimensionWrapperType(tool.Dimension); ok {
		return wt
	}
	if d.registry == nil {
		return ""
	}
	return d.registry.WrapperType(ctx, tool.Name)
}
