package app

import (
	"fmt"
	"path/filepath"

	"github.com/ludo-technologies/qarun/domain"
	"github.com/ludo-technologies/qarun/internal/config"
	"github.com/ludo-technologies/qarun/internal/wrappers"
	"github.com/ludo-technologies/qarun/service"
	"go.uber.org/zap"
)

// Project describes the project a run is wired for
type Project struct {
	Root   string
	Config *config.Config
	Logger *zap.Logger

	// Progress defaults to a no-op manager
	Progress domain.ProgressManager

	// Process defaults to a ProcessExecutor rooted at Root
	Process domain.ProcessExecutor

	// FS defaults to a FileSystem rooted at Root
	FS domain.FileSystem

	// Constructors defaults to the built-in wrappers
	Constructors map[string]domain.WrapperConstructor
}

// Wiring is the set of services built for a project
type Wiring struct {
	UseCase    *RunUseCase
	PlanLoader *PlanLoader
	Loader     *service.ConfigurationLoaderImpl
	Registry   *service.WrapperRegistryImpl
}

// NewWiring builds the services for p: one classifier shared by the
// registry and deduplicator, the wrapper factory, file discovery and the
// execution controller
func NewWiring(p Project) (*Wiring, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	root := p.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	process := p.Process
	if process == nil {
		process = service.NewProcessExecutor(absRoot, logger)
	}
	fs := p.FS
	if fs == nil {
		fs = service.NewFileSystem(absRoot)
	}
	ctors := p.Constructors
	if ctors == nil {
		ctors = wrappers.Builtins()
	}

	classifier := service.NewToolClassifier()

	factory := service.NewWrapperFactory(process, fs)
	factory.RegisterAll(ctors)

	registry := service.NewWrapperRegistry(factory, classifier, logger)
	registry.SetWrapperConfig(p.Config.Wrappers)
	registry.MarkUnavailable(p.Config.Execution.CoveredTools...)

	dedup := service.NewWrapperDeduplicator(registry, classifier, logger)

	controller := service.NewExecutionController(service.ControllerConfig{
		MaxParallelWrappers: p.Config.Execution.MaxParallelWrappers,
		DefaultTimeout:      p.Config.Execution.DefaultTimeout,
		Mode:                domain.ExecutionMode(p.Config.Execution.Mode),
	}, classifier, service.NewFileDiscovery(absRoot, p.Config, logger), logger)
	controller.SetSkipChecker(dedup)
	controller.SetProgressManager(p.Progress)

	uc, err := NewRunUseCaseBuilder().
		WithPlanner(service.NewExecutionPlanner()).
		WithDeduplicator(dedup).
		WithController(controller).
		WithWrappers(registry).
		WithAggregator(service.NewResultAggregator(p.Config.Output.SlowRunThreshold)).
		WithFormatter(service.NewOutputFormatter()).
		WithFileSystem(fs).
		WithRunContext(NewRunContextDetector(process, logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}

	return &Wiring{
		UseCase:    uc,
		PlanLoader: NewPlanLoader(fs, dedup),
		Loader:     service.NewConfigurationLoader(),
		Registry:   registry,
	}, nil
}
