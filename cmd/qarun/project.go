package main

import (
	"os"
	"path/filepath"

	"github.com/ludo-technologies/qarun/app"
	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/config"
	"github.com/ludo-technologies/qarun/internal/logging"
	"github.com/ludo-technologies/qarun/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// planOptions are the flags shared by run and plan
type planOptions struct {
	configPath string
	planPath   string
	mode       string
	tools      []string
	dimensions []string
	scope      string
	logLevel   string
}

func addPlanFlags(cmd *cobra.Command, o *planOptions) {
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "",
		"Path to config file (default: discovered from the project upward)")
	cmd.Flags().StringVarP(&o.planPath, "plan", "p", "",
		"Plan file (YAML or JSON) to run instead of the configured tools")
	cmd.Flags().StringVarP(&o.mode, "mode", "m", "",
		"Execution mode: fast, standard, thorough")
	cmd.Flags().StringSliceVarP(&o.tools, "tools", "t", nil,
		"Only run these tools (comma-separated)")
	cmd.Flags().StringSliceVarP(&o.dimensions, "dimension", "d", nil,
		"Only run these dimensions: format,lint,test,security,data,build")
	cmd.Flags().StringVarP(&o.scope, "scope", "s", "",
		"File scope for tools without explicit files: frontend, backend, docs, config, tooling, all")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
}

// project is a loaded configuration with its wired services and plan
type project struct {
	root   string
	cfg    *config.Config
	logger *zap.Logger
	wiring *app.Wiring
	plan   domain.ExecutionPlan
}

// loadConfig resolves the project root from args and loads its configuration
func loadConfig(o *planOptions, args []string) (string, *config.Config, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, setupError("project path %s: %v", root, err)
	}
	if !info.IsDir() {
		return "", nil, setupError("project path %s is not a directory", root)
	}

	cfg, err := service.NewConfigurationLoader().LoadConfig(o.configPath, root)
	if err != nil {
		return "", nil, setupError("%v", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return root, cfg, nil
}

// openProject wires services for the loaded configuration and builds the
// plan from the plan file or the configured tools, with overrides applied
func openProject(o *planOptions, root string, cfg *config.Config, progress domain.ProgressManager) (*project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, setupError("invalid configuration: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, setupError("%v", err)
	}

	wiring, err := app.NewWiring(app.Project{
		Root:     root,
		Config:   cfg,
		Logger:   logger,
		Progress: progress,
	})
	if err != nil {
		return nil, setupError("%v", err)
	}

	var plan domain.ExecutionPlan
	if o.planPath != "" {
		path, err := filepath.Abs(o.planPath)
		if err != nil {
			return nil, setupError("plan path %s: %v", o.planPath, err)
		}
		plan, err = wiring.PlanLoader.Load(path)
		if err != nil {
			return nil, setupError("%v", err)
		}
	} else {
		plan = wiring.Loader.BuildPlan(cfg)
	}

	plan, err = wiring.Loader.ApplyOverrides(plan, service.PlanOverrides{
		Mode:       o.mode,
		Tools:      o.tools,
		Dimensions: o.dimensions,
		Scope:      o.scope,
	})
	if err != nil {
		return nil, setupError("%v", err)
	}

	if plan.Tools != nil && len(plan.Tools) == 0 {
		logger.Warn("no tools to run; configure tools in qarun.yaml or pass --plan")
	}

	return &project{
		root:   root,
		cfg:    cfg,
		logger: logger,
		wiring: wiring,
		plan:   plan,
	}, nil
}
