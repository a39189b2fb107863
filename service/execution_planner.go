package service

import (
	"fmt"

	"github.com/ludo-technologies/qarun/domain"
)

// ExecutionPlannerImpl groups planned tools into ordered dimension batches
type ExecutionPlannerImpl struct{}

// NewExecutionPlanner creates a new planner
func NewExecutionPlanner() *ExecutionPlannerImpl {
	return &ExecutionPlannerImpl{}
}

// PlanExecutionStrategy returns one group per dimension present in the
// plan, in domain.DimensionOrder. Groups run in parallel in fast mode,
// otherwise only format and lint do.
func (p *ExecutionPlannerImpl) PlanExecutionStrategy(plan domain.ExecutionPlan) []domain.ExecutionGroup {
	byDimension := make(map[domain.Dimension][]domain.ToolSpec)
	for _, tool := range plan.Tools {
		byDimension[tool.Dimension] = append(byDimension[tool.Dimension], tool)
	}

	groups := make([]domain.ExecutionGroup, 0, len(byDimension))
	for priority, dim := range domain.DimensionOrder {
		tools, ok := byDimension[dim]
		if !ok {
			continue
		}
		groups = append(groups, domain.ExecutionGroup{
			Dimension: dim,
			Tools:     tools,
			Parallel:  isParallelDimension(plan.Mode, dim),
			Priority:  priority,
		})
	}
	return groups
}

// isParallelDimension reports whether tools of dim may run concurrently.
// Test, security, data and build tools can contend for ports or build output.
func isParallelDimension(mode domain.ExecutionMode, dim domain.Dimension) bool {
	if mode == domain.ModeFast {
		return true
	}
	return dim == domain.DimensionFormat || dim == domain.DimensionLint
}

// ValidatePlan rejects a plan whose tool list is missing or whose tools lack
// a name or a known dimension. An empty tool list is valid.
func (p *ExecutionPlannerImpl) ValidatePlan(plan domain.ExecutionPlan) error {
	if plan.Tools == nil {
		return domain.NewValidationError("plan has no tools list")
	}
	if plan.Mode != "" && !plan.Mode.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("unknown execution mode %q", plan.Mode))
	}
	for i, tool := range plan.Tools {
		if tool.Name == "" {
			return domain.NewValidationError(fmt.Sprintf("tools[%d] is missing a name", i))
		}
		if tool.Dimension == "" {
			return domain.NewValidationError(fmt.Sprintf("tool %s is missing a dimension", tool.Name))
		}
		if !tool.Dimension.IsValid() {
			return domain.NewValidationError(fmt.Sprintf("tool %s has unknown dimension %q", tool.Name, tool.Dimension))
		}
	}
	return nil
}
