package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowAddNode(t *testing.T) {
	wf := NewWorkflow("wf1", "Test", "")
	n, err := NewNode("n1", "First", KindInput)
	require.NoError(t, err)

	require.NoError(t, wf.AddNode(n))
	assert.Same(t, n, wf.Nodes["n1"])
}

func TestWorkflowAddNodeDuplicate(t *testing.T) {
	wf := NewWorkflow("wf1", "Test", "")
	n1, _ := NewNode("n1", "First", KindInput)
	n2, _ := NewNode("n1", "Second", KindScript)

	require.NoError(t, wf.AddNode(n1))
	err := wf.AddNode(n2)
	assert.Error(t, err)
}

func TestWorkflowAddNilNode(t *testing.T) {
	wf := NewWorkflow("wf1", "Test", "")
	err := wf.AddNode(nil)
	assert.Error(t, err)
}
