package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetRoundTrip(t *testing.T) {
	c := New("exec1", "wf1")
	c.Set("nodeA", "hello")

	v, ok := c.Get("nodeA")
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestAbsentVsPresentNil(t *testing.T) {
	c := New("exec1", "wf1")

	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.False(t, c.Has("missing"))

	c.Set("present", nil)
	v, ok := c.Get("present")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.True(t, c.Has("present"))
}

func TestGetOrDefault(t *testing.T) {
	c := New("exec1", "wf1")
	assert.Equal(t, "fallback", c.GetOrDefault("missing", "fallback"))

	c.Set("present", nil)
	assert.Nil(t, c.GetOrDefault("present", "fallback"))
}

func TestRemove(t *testing.T) {
	c := New("exec1", "wf1")
	c.Set("k", 1)
	c.Remove("k")
	assert.False(t, c.Has("k"))
}

func TestGetPathDotted(t *testing.T) {
	c := New("exec1", "wf1")
	c.Set("nodeA", map[string]interface{}{
		"field": map[string]interface{}{"sub": "value"},
	})

	v, ok := c.GetPath("nodeA.field.sub")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestGetPathMissingRoot(t *testing.T) {
	c := New("exec1", "wf1")
	_, ok := c.GetPath("missing.field")
	assert.False(t, ok)
}

func TestGetPathNoDot(t *testing.T) {
	c := New("exec1", "wf1")
	c.Set("nodeA", 42)
	v, ok := c.GetPath("nodeA")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestSnapshotOnlyIncludesPresent(t *testing.T) {
	c := New("exec1", "wf1")
	c.Set("a", 1)
	c.Set("b", 2)
	c.Remove("b")

	snap := c.Snapshot()
	assert.Equal(t, map[string]interface{}{"a": 1}, snap)
}

func TestMetadata(t *testing.T) {
	c := New("exec1", "wf1")
	c.SetMetadata("_sourceWorkflowId", "wf0")

	v, ok := c.Metadata("_sourceWorkflowId")
	assert.True(t, ok)
	assert.Equal(t, "wf0", v)

	_, ok = c.Metadata("absent")
	assert.False(t, ok)
}
