package domain

import "context"

// ToolWrapper is the capability shared by every wrapper
type ToolWrapper interface {
	Name() string
}

// IndividualWrapper executes a single-purpose tool against a resolved file set
type IndividualWrapper interface {
	ToolWrapper
	Execute(ctx context.Context, files []string, options map[string]any) (*WrapperResult, error)
}

// OrchestratorWrapper executes a multi-tool dimension and discovers its own files
type OrchestratorWrapper interface {
	ToolWrapper
	Execute(ctx context.Context, spec ToolSpec) (*WrapperResult, error)
}

// WrapperKind tags which calling convention a wrapper instance uses
type WrapperKind int

const (
	WrapperKindIndividual WrapperKind = iota
	WrapperKindOrchestrator
)

// String returns the kind name
func (k WrapperKind) String() string {
	if k == WrapperKindOrchestrator {
		return "orchestrator"
	}
	return "individual"
}

// WrapperInstance is a loaded wrapper bound to its wrapper type.
// Exactly one of Individual or Orchestrator is set, as indicated by Kind.
type WrapperInstance struct {
	Type         string
	Kind         WrapperKind
	Individual   IndividualWrapper
	Orchestrator OrchestratorWrapper
}

// NewIndividualInstance wraps an individual wrapper
func NewIndividualInstance(wrapperType string, w IndividualWrapper) *WrapperInstance {
	return &WrapperInstance{Type: wrapperType, Kind: WrapperKindIndividual, Individual: w}
}

// NewOrchestratorInstance wraps an orchestrator wrapper
func NewOrchestratorInstance(wrapperType string, w OrchestratorWrapper) *WrapperInstance {
	return &WrapperInstance{Type: wrapperType, Kind: WrapperKindOrchestrator, Orchestrator: w}
}

// Name returns the underlying wrapper name
func (w *WrapperInstance) Name() string {
	if w.Kind == WrapperKindOrchestrator && w.Orchestrator != nil {
		return w.Orchestrator.Name()
	}
	if w.Individual != nil {
		return w.Individual.Name()
	}
	return w.Type
}

// WrapperProvider hands out wrapper instances for tools.
// A nil instance with a nil error means the tool has no standalone
// executor because its check is covered elsewhere.
type WrapperProvider interface {
	Wrapper(ctx context.Context, spec ToolSpec) (*WrapperInstance, error)
}

// WrapperConstructor builds a wrapper instance from injected services and
// wrapper-level configuration
type WrapperConstructor func(svc Services, cfg map[string]any) (*WrapperInstance, error)

// Option keys the controller sets for individual wrappers. A wrapper type
// such as direct-linters serves several tools and reads OptionTool to pick one.
const (
	OptionTool = "tool"
	OptionMode = "mode"
)
