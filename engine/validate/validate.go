// Package validate checks a model.Workflow for structural and semantic
// soundness before it is scheduled: missing endpoints, cycles, and
// Reference Node configuration requirements.
package validate

import (
	"fmt"

	"github.com/lyzr/diagflow/engine/graph"
	"github.com/lyzr/diagflow/engine/model"
)

// Result collects validation errors and warnings. A Workflow with any
// Errors must not be executed; Warnings are advisory.
type Result struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the workflow has no validation errors.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Workflow validates wf's structure and every node's configuration.
func Workflow(wf *model.Workflow) *Result {
	res := &Result{}

	if len(wf.Nodes) == 0 {
		res.addError("workflow %s has no nodes", wf.ID)
		return res
	}

	for _, c := range wf.Connections {
		if _, ok := wf.Nodes[c.FromID]; !ok {
			res.addError("connection references unknown source node %q", c.FromID)
		}
		if _, ok := wf.Nodes[c.ToID]; !ok {
			res.addError("connection references unknown target node %q", c.ToID)
		}
	}

	g := graph.Build(wf)
	if g.HasCycle() {
		res.addError("workflow %s contains a cycle", wf.ID)
	}

	if len(g.Sources()) == 0 {
		res.addError("workflow %s has no source nodes (every node has an incoming connection)", wf.ID)
	}

	for _, n := range wf.Nodes {
		validateNode(n, wf, res)
	}

	return res
}

func validateNode(n *model.Node, wf *model.Workflow, res *Result) {
	if !n.Kind.Valid() {
		res.addError("node %s: unknown kind %q", n.ID, n.Kind)
		return
	}

	for _, in := range n.Inputs.Inputs {
		if in.Key == "" {
			res.addError("node %s: input parameter has empty key", n.ID)
		}
		if in.Required && in.DefaultValue != nil {
			res.addWarning("node %s: input %q is Required but has a DefaultValue, so it never fails as missing", n.ID, in.Key)
		}
	}

	if n.Kind != model.KindReference {
		return
	}
	validateReference(n, res)
}

func validateReference(n *model.Node, res *Result) {
	ref := n.Reference
	if ref == nil {
		res.addError("node %s: reference node missing ReferenceConfig", n.ID)
		return
	}

	switch ref.ExecutionMode {
	case model.ModeSync, model.ModeAsync, model.ModeConditional, model.ModeLoop:
		if ref.WorkflowID == "" {
			res.addError("node %s: %s reference requires WorkflowID", n.ID, ref.ExecutionMode)
		}
	case model.ModeParallel:
		if len(ref.WorkflowIDs) == 0 {
			res.addError("node %s: PARALLEL reference requires at least one WorkflowID", n.ID)
		}
	default:
		res.addError("node %s: unknown reference execution mode %q", n.ID, ref.ExecutionMode)
		return
	}

	if ref.ExecutionMode == model.ModeConditional && ref.Condition == "" {
		res.addError("node %s: CONDITIONAL reference requires a Condition expression", n.ID)
	}

	if ref.ExecutionMode == model.ModeLoop {
		if ref.LoopDataKey == "" && ref.LoopCondition == "" {
			res.addError("node %s: LOOP reference requires a LoopDataKey or a LoopCondition", n.ID)
		}
		if ref.MaxIterations < 0 {
			res.addError("node %s: LOOP reference MaxIterations must not be negative", n.ID)
		}
	}
}
