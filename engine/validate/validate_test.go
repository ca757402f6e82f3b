package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/diagflow/engine/model"
)

func TestWorkflowValidLinear(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Linear", "")
	a, _ := model.NewNode("a", "a", model.KindInput)
	b, _ := model.NewNode("b", "b", model.KindScript)
	require.NoError(t, wf.AddNode(a))
	require.NoError(t, wf.AddNode(b))
	wf.Connections = []model.Connection{{FromID: "a", ToID: "b"}}

	res := Workflow(wf)
	assert.True(t, res.OK(), res.Errors)
}

func TestWorkflowEmptyRejected(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Empty", "")
	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestWorkflowUnknownConnectionEndpoint(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Bad", "")
	a, _ := model.NewNode("a", "a", model.KindInput)
	require.NoError(t, wf.AddNode(a))
	wf.Connections = []model.Connection{{FromID: "a", ToID: "ghost"}}

	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestWorkflowCycleRejected(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Cyclic", "")
	a, _ := model.NewNode("a", "a", model.KindScript)
	b, _ := model.NewNode("b", "b", model.KindScript)
	require.NoError(t, wf.AddNode(a))
	require.NoError(t, wf.AddNode(b))
	wf.Connections = []model.Connection{{FromID: "a", ToID: "b"}, {FromID: "b", ToID: "a"}}

	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestReferenceNodeRequiresConfig(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestReferenceConditionalRequiresCondition(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeConditional, WorkflowID: "child"}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestReferenceSyncValid(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeSync, WorkflowID: "child"}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.True(t, res.OK(), res.Errors)
}

func TestReferenceLoopRequiresDataKeyOrCondition(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeLoop, WorkflowID: "child"}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.False(t, res.OK())
}

func TestReferenceLoopValidWithDataKeyOnly(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeLoop, WorkflowID: "child", LoopDataKey: "items"}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.True(t, res.OK(), res.Errors)
}

func TestReferenceLoopValidWithConditionOnly(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeLoop, WorkflowID: "child", LoopCondition: "${index} < 3"}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.True(t, res.OK(), res.Errors)
}

func TestReferenceLoopRejectsNegativeMaxIterations(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Ref", "")
	n, _ := model.NewNode("r1", "r1", model.KindReference)
	n.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeLoop, WorkflowID: "child", LoopCondition: "${index} < 3", MaxIterations: -1}
	require.NoError(t, wf.AddNode(n))

	res := Workflow(wf)
	assert.False(t, res.OK())
}
