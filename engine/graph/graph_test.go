package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/diagflow/engine/model"
)

func linearWorkflow(t *testing.T) *model.Workflow {
	wf := model.NewWorkflow("wf1", "Linear", "")
	for _, id := range []string{"a", "b", "c"} {
		n, err := model.NewNode(id, id, model.KindScript)
		require.NoError(t, err)
		require.NoError(t, wf.AddNode(n))
	}
	wf.Connections = []model.Connection{{FromID: "a", ToID: "b"}, {FromID: "b", ToID: "c"}}
	return wf
}

func diamondWorkflow(t *testing.T) *model.Workflow {
	wf := model.NewWorkflow("wf1", "Diamond", "")
	for _, id := range []string{"a", "b", "c", "d"} {
		n, err := model.NewNode(id, id, model.KindScript)
		require.NoError(t, err)
		require.NoError(t, wf.AddNode(n))
	}
	wf.Connections = []model.Connection{
		{FromID: "a", ToID: "b"},
		{FromID: "a", ToID: "c"},
		{FromID: "b", ToID: "d"},
		{FromID: "c", ToID: "d"},
	}
	return wf
}

func TestLinearLevels(t *testing.T) {
	g := Build(linearWorkflow(t))
	levels, err := g.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levels[0].NodeIDs)
	assert.Equal(t, []string{"b"}, levels[1].NodeIDs)
	assert.Equal(t, []string{"c"}, levels[2].NodeIDs)
}

func TestDiamondLevels(t *testing.T) {
	g := Build(diamondWorkflow(t))
	levels, err := g.Levels()
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"a"}, levels[0].NodeIDs)
	assert.Equal(t, []string{"b", "c"}, levels[1].NodeIDs)
	assert.Equal(t, []string{"d"}, levels[2].NodeIDs)
}

func TestHasCycle(t *testing.T) {
	wf := model.NewWorkflow("wf1", "Cyclic", "")
	for _, id := range []string{"a", "b"} {
		n, _ := model.NewNode(id, id, model.KindScript)
		require.NoError(t, wf.AddNode(n))
	}
	wf.Connections = []model.Connection{{FromID: "a", ToID: "b"}, {FromID: "b", ToID: "a"}}

	g := Build(wf)
	assert.True(t, g.HasCycle())

	_, err := g.Levels()
	assert.Error(t, err)
}

func TestSourcesAndSinks(t *testing.T) {
	g := Build(diamondWorkflow(t))
	assert.Equal(t, []string{"a"}, g.Sources())
	assert.Equal(t, []string{"d"}, g.Sinks())
}

func TestPredecessorsSuccessors(t *testing.T) {
	g := Build(diamondWorkflow(t))
	assert.Equal(t, []string{"a"}, g.Predecessors("b"))
	assert.Equal(t, []string{"b", "c"}, g.Successors("a"))
	assert.Equal(t, []string{"b", "c"}, g.Predecessors("d"))
}
