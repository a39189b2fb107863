package service

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/config"
)

// PlanOverrides are command-line adjustments applied on top of a plan
type PlanOverrides struct {
	Mode       string
	Tools      []string
	Dimensions []string
	Scope      string
}

// ConfigurationLoaderImpl loads configuration and turns it into execution plans
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from configPath, or discovers it upward from targetPath
func (c *ConfigurationLoaderImpl) LoadConfig(configPath, targetPath string) (*config.Config, error) {
	cfg, err := config.LoadConfigWithTarget(configPath, targetPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	return cfg, nil
}

// BuildPlan converts the configured tools into an execution plan
func (c *ConfigurationLoaderImpl) BuildPlan(cfg *config.Config) domain.ExecutionPlan {
	tools := make([]domain.ToolSpec, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools = append(tools, ToolSpecFromConfig(t))
	}
	return domain.ExecutionPlan{
		Tools: tools,
		Mode:  domain.ExecutionMode(cfg.Execution.Mode),
	}
}

// ToolSpecFromConfig converts one configured tool
func ToolSpecFromConfig(t config.ToolConfig) domain.ToolSpec {
	return domain.ToolSpec{
		Name:      t.Name,
		Dimension: domain.Dimension(t.Dimension),
		Config: domain.ToolConfig{
			Timeout:       t.Timeout,
			Files:         t.Files,
			Scope:         t.Scope,
			DimensionMode: t.DimensionMode,
			Critical:      t.Critical,
			Options:       t.Options,
		},
	}
}

// ApplyOverrides filters the plan to the requested tools and dimensions and
// applies mode and scope overrides. Tools with explicit files keep them.
func (c *ConfigurationLoaderImpl) ApplyOverrides(plan domain.ExecutionPlan, o PlanOverrides) (domain.ExecutionPlan, error) {
	if o.Mode != "" {
		mode := domain.ExecutionMode(o.Mode)
		if !mode.IsValid() {
			return plan, domain.NewInvalidInputError(fmt.Sprintf("invalid mode '%s', must be one of: fast, standard, thorough", o.Mode), nil)
		}
		plan.Mode = mode
	}

	dims := make(map[domain.Dimension]bool, len(o.Dimensions))
	for _, d := range o.Dimensions {
		dim, err := domain.ParseDimension(strings.TrimSpace(d))
		if err != nil {
			return plan, err
		}
		dims[dim] = true
	}
	names := make(map[string]bool, len(o.Tools))
	for _, n := range o.Tools {
		names[strings.ToLower(strings.TrimSpace(n))] = true
	}

	if plan.Tools == nil {
		return plan, nil
	}

	tools := make([]domain.ToolSpec, 0, len(plan.Tools))
	for _, t := range plan.Tools {
		if len(dims) > 0 && !dims[t.Dimension] {
			continue
		}
		if len(names) > 0 && !names[strings.ToLower(t.Name)] {
			continue
		}
		if o.Scope != "" && len(t.Config.Files) == 0 {
			t.Config.Scope = o.Scope
		}
		tools = append(tools, t)
	}

	if len(names) > 0 {
		for n := range names {
			if !containsTool(tools, n) {
				return plan, domain.NewInvalidInputError(fmt.Sprintf("tool %q is not in the plan", n), nil)
			}
		}
	}

	plan.Tools = tools
	return plan, nil
}

func containsTool(tools []domain.ToolSpec, name string) bool {
	for _, t := range tools {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}
