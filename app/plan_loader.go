package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ludo-technologies/qarun/domain"
	"gopkg.in/yaml.v3"
)

// DimensionInferrer guesses the dimension of a tool from its name
type DimensionInferrer interface {
	InferDimension(name string) (domain.Dimension, bool)
}

// PlanLoader reads execution plans from YAML or JSON files.
//
// A plan file looks like:
//
//	mode: fast
//	tools:
//	  - prettier
//	  - name: eslint
//	    dimension: lint
//	    config:
//	      scope: frontend
//
// Bare tool names and entries without a dimension get an inferred dimension.
type PlanLoader struct {
	fs       domain.FileSystem
	inferrer DimensionInferrer
}

// NewPlanLoader creates a plan loader
func NewPlanLoader(fs domain.FileSystem, inferrer DimensionInferrer) *PlanLoader {
	return &PlanLoader{fs: fs, inferrer: inferrer}
}

type planFile struct {
	Mode  domain.ExecutionMode `yaml:"mode"`
	Tools []planEntry          `yaml:"tools"`
}

// planEntry accepts either a bare tool name or a full tool mapping
type planEntry struct {
	spec domain.ToolSpec
}

func (e *planEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.spec = domain.ToolSpec{Name: strings.TrimSpace(node.Value)}
		return nil
	}
	return node.Decode(&e.spec)
}

// Load reads and parses the plan at path
func (l *PlanLoader) Load(path string) (domain.ExecutionPlan, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return domain.ExecutionPlan{}, domain.NewConfigError(fmt.Sprintf("failed to read plan file %s", path), err)
	}
	return l.Parse(data)
}

// Parse parses plan content. A missing tools key yields a plan with nil
// Tools, which plan validation rejects.
func (l *PlanLoader) Parse(data []byte) (domain.ExecutionPlan, error) {
	var pf planFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		return domain.ExecutionPlan{}, domain.NewConfigError("failed to parse plan", err)
	}

	plan := domain.ExecutionPlan{Mode: pf.Mode}
	if plan.Mode == "" {
		plan.Mode = domain.ModeStandard
	}
	if pf.Tools == nil {
		return plan, nil
	}

	plan.Tools = make([]domain.ToolSpec, 0, len(pf.Tools))
	for i, e := range pf.Tools {
		spec := e.spec
		if spec.Name == "" {
			return domain.ExecutionPlan{}, domain.NewValidationError(fmt.Sprintf("tools[%d] is missing a name", i))
		}
		if spec.Dimension == "" {
			dim, ok := l.infer(spec.Name)
			if !ok {
				return domain.ExecutionPlan{}, domain.NewInvalidInputError(
					fmt.Sprintf("cannot infer a dimension for tool %q; set it explicitly", spec.Name), nil)
			}
			spec.Dimension = dim
		}
		plan.Tools = append(plan.Tools, spec)
	}
	return plan, nil
}

func (l *PlanLoader) infer(name string) (domain.Dimension, bool) {
	if l.inferrer == nil {
		return "", false
	}
	return l.inferrer.InferDimension(name)
}
