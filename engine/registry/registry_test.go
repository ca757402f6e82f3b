package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/diagflow/engine/model"
)

func simpleWorkflow(t *testing.T, id string) *model.Workflow {
	wf := model.NewWorkflow(id, id, "")
	a, err := model.NewNode("a", "a", model.KindInput)
	require.NoError(t, err)
	require.NoError(t, wf.AddNode(a))
	return wf
}

func TestRegisterAndGet(t *testing.T) {
	ctx := context.Background()
	r := New()
	wf := simpleWorkflow(t, "wf1")

	require.NoError(t, r.Register(ctx, wf, model.StatusActive, "test"))
	assert.True(t, r.Has("wf1"))

	e, ok := r.Get("wf1")
	require.True(t, ok)
	assert.Equal(t, model.StatusActive, e.Status)
	assert.Equal(t, 1, e.Version)
}

func TestRegisterExistingIDUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusDraft, "v1"))

	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusActive, "v2"))

	e, ok := r.Get("wf1")
	require.True(t, ok)
	assert.Equal(t, model.StatusActive, e.Status)
	assert.Equal(t, "v2", e.Description)
	assert.Equal(t, 2, e.Version)
}

func TestRegisterUpdatePreservesDependedOnBy(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "child"), model.StatusActive, ""))

	parent := model.NewWorkflow("parent", "parent", "")
	refNode, _ := model.NewNode("r1", "r1", model.KindReference)
	refNode.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeSync, WorkflowID: "child"}
	require.NoError(t, parent.AddNode(refNode))
	require.NoError(t, r.Register(ctx, parent, model.StatusActive, ""))
	require.Equal(t, []string{"parent"}, r.Dependents("child"))

	// Re-registering child with a new definition must not drop the
	// dependency edge parent declared onto it.
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "child"), model.StatusActive, "updated"))
	assert.Equal(t, []string{"parent"}, r.Dependents("child"))
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "ingest-pipeline"), model.StatusActive, "nightly ingest job"))
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "diagnosis-flow"), model.StatusActive, "on-call triage"))

	assert.Equal(t, []string{"ingest-pipeline"}, r.Search("ingest"))
	assert.Equal(t, []string{"diagnosis-flow"}, r.Search("TRIAGE"))
	assert.Empty(t, r.Search("nonexistent"))
}

func TestRegisterInvalidWorkflowRejected(t *testing.T) {
	ctx := context.Background()
	r := New()
	wf := model.NewWorkflow("empty", "empty", "")
	err := r.Register(ctx, wf, model.StatusDraft, "")
	assert.Error(t, err)
}

func TestActiveIDs(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusActive, ""))
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf2"), model.StatusDraft, ""))

	assert.Equal(t, []string{"wf1"}, r.ActiveIDs())
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusDraft, ""))
	require.NoError(t, r.SetStatus(ctx, "wf1", model.StatusActive))

	e, _ := r.Get("wf1")
	assert.Equal(t, model.StatusActive, e.Status)
}

func TestDependencyTrackingAndCycle(t *testing.T) {
	ctx := context.Background()
	r := New()

	child := simpleWorkflow(t, "child")
	require.NoError(t, r.Register(ctx, child, model.StatusActive, ""))

	parent := model.NewWorkflow("parent", "parent", "")
	refNode, _ := model.NewNode("r1", "r1", model.KindReference)
	refNode.Reference = &model.ReferenceConfig{ExecutionMode: model.ModeSync, WorkflowID: "child"}
	require.NoError(t, parent.AddNode(refNode))
	require.NoError(t, r.Register(ctx, parent, model.StatusActive, ""))

	assert.Equal(t, []string{"parent"}, r.Dependents("child"))
	assert.False(t, r.HasDependencyCycle())
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusActive, ""))
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf2"), model.StatusDraft, ""))

	stats := r.Statistics()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[model.StatusActive])
	assert.Equal(t, 1, stats.ByStatus[model.StatusDraft])
}

func TestApplyPatchReplacesDescription(t *testing.T) {
	ctx := context.Background()
	r := New()
	wf := simpleWorkflow(t, "wf1")
	require.NoError(t, r.Register(ctx, wf, model.StatusDraft, ""))

	patch := `[{"op":"replace","path":"/Description","value":"patched"}]`
	require.NoError(t, r.ApplyPatch(ctx, "wf1", patch))

	e, _ := r.Get("wf1")
	assert.Equal(t, "patched", e.Workflow.Description)
	assert.Equal(t, 2, e.Version)
	require.Len(t, e.PatchChain, 1)
}

func TestApplyPatchUnknownWorkflow(t *testing.T) {
	ctx := context.Background()
	r := New()
	err := r.ApplyPatch(ctx, "ghost", `[]`)
	assert.Error(t, err)
}

func TestApplyPatchInvalidDocument(t *testing.T) {
	ctx := context.Background()
	r := New()
	require.NoError(t, r.Register(ctx, simpleWorkflow(t, "wf1"), model.StatusDraft, ""))

	err := r.ApplyPatch(ctx, "wf1", `not json`)
	assert.Error(t, err)
}
