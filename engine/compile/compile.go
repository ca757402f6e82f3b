// Package compile turns a wire-format WorkflowSchema (the JSON shape a
// workflow definition arrives in over the HTTP facade or registry storage)
// into an in-memory model.Workflow, grounded on the now-retired
// cmd/workflow-runner/compiler/ir.go's schema-to-IR translation step.
package compile

import (
	"fmt"

	"github.com/lyzr/diagflow/engine/model"
)

// NodeSchema is the wire shape of one node definition.
type NodeSchema struct {
	ID     string                 `json:"id"`
	Name   string                 `json:"name"`
	Kind   string                 `json:"kind"`
	Config map[string]interface{} `json:"config"`

	Inputs    InputSpecSchema `json:"inputs"`
	OutputKey string          `json:"outputKey"`

	Reference *ReferenceSchema `json:"reference,omitempty"`
}

// InputSpecSchema is the wire shape of a node's InputSpec.
type InputSpecSchema struct {
	Inputs   []InputParameterSchema `json:"inputs"`
	MergeKey string                 `json:"mergeKey"`
}

// InputParameterSchema is the wire shape of one declared input.
type InputParameterSchema struct {
	Key          string      `json:"key"`
	Alias        string      `json:"alias"`
	Required     bool        `json:"required"`
	DefaultValue interface{} `json:"defaultValue"`
	DataType     string      `json:"dataType"`
	Description  string      `json:"description"`
}

// ReferenceSchema is the wire shape of a Reference Node's configuration.
type ReferenceSchema struct {
	ExecutionMode string   `json:"executionMode"`
	WorkflowID    string   `json:"workflowId"`
	WorkflowIDs   []string `json:"workflowIds"`

	Condition string `json:"condition"`

	LoopDataKey   string `json:"loopDataKey"`
	LoopCondition string `json:"loopCondition"`
	MaxIterations int    `json:"maxIterations"`

	InputMappings   map[string]string      `json:"inputMappings"`
	OutputMappings  map[string]string      `json:"outputMappings"`
	FixedParameters map[string]interface{} `json:"fixedParameters"`

	WaitForResult     bool `json:"waitForResult"`
	TimeoutMs         int  `json:"timeoutMs"`
	ParallelTimeoutMs int  `json:"parallelTimeoutMs"`
}

// ConnectionSchema is the wire shape of one graph edge.
type ConnectionSchema struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
}

// WorkflowSchema is the complete wire shape of a workflow definition.
type WorkflowSchema struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Nodes       []NodeSchema           `json:"nodes"`
	Connections []ConnectionSchema     `json:"connections"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// FromSchema builds a model.Workflow from schema, rejecting unknown node
// kinds and duplicate ids the same way model.NewNode/Workflow.AddNode do.
func FromSchema(schema *WorkflowSchema) (*model.Workflow, error) {
	if schema == nil {
		return nil, fmt.Errorf("compile: nil schema")
	}

	wf := model.NewWorkflow(schema.ID, schema.Name, schema.Description)
	if schema.Metadata != nil {
		wf.Metadata = schema.Metadata
	}

	for _, ns := range schema.Nodes {
		n, err := model.NewNode(ns.ID, ns.Name, model.Kind(ns.Kind))
		if err != nil {
			return nil, fmt.Errorf("compile: node %q: %w", ns.ID, err)
		}
		if ns.Config != nil {
			n.Config = ns.Config
		}
		n.Inputs = toInputSpec(ns.Inputs)
		n.Outputs = model.OutputSpec{OutputKey: ns.OutputKey}

		if ns.Reference != nil {
			n.Reference = toReferenceConfig(ns.Reference)
		}

		if err := wf.AddNode(n); err != nil {
			return nil, fmt.Errorf("compile: %w", err)
		}
	}

	for _, cs := range schema.Connections {
		wf.Connections = append(wf.Connections, model.Connection{FromID: cs.FromID, ToID: cs.ToID})
	}

	return wf, nil
}

func toInputSpec(s InputSpecSchema) model.InputSpec {
	spec := model.InputSpec{MergeKey: s.MergeKey}
	for _, p := range s.Inputs {
		spec.Inputs = append(spec.Inputs, model.InputParameter{
			Key:          p.Key,
			Alias:        p.Alias,
			Required:     p.Required,
			DefaultValue: p.DefaultValue,
			DataType:     p.DataType,
			Description:  p.Description,
		})
	}
	return spec
}

func toReferenceConfig(s *ReferenceSchema) *model.ReferenceConfig {
	return &model.ReferenceConfig{
		ExecutionMode:     model.ExecutionMode(s.ExecutionMode),
		WorkflowID:        s.WorkflowID,
		WorkflowIDs:       s.WorkflowIDs,
		Condition:         s.Condition,
		LoopDataKey:       s.LoopDataKey,
		LoopCondition:     s.LoopCondition,
		MaxIterations:     s.MaxIterations,
		InputMappings:     s.InputMappings,
		OutputMappings:    s.OutputMappings,
		FixedParameters:   s.FixedParameters,
		WaitForResult:     s.WaitForResult,
		TimeoutMs:         s.TimeoutMs,
		ParallelTimeoutMs: s.ParallelTimeoutMs,
	}
}
