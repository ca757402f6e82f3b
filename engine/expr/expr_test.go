package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericComparison(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${count} > 5", map[string]interface{}{"count": 10})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate("${count} <= 5", map[string]interface{}{"count": 10})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringEquality(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${status} == 'done'", map[string]interface{}{"status": "done"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Evaluate(`${status} != "done"`, map[string]interface{}{"status": "pending"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnknownVariableFailsSilently(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${missing} > 5", map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMalformedExpressionFailsSilently(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("no operator here", map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNonNumericComparisonFailsSilently(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${name} > 5", map[string]interface{}{"name": "alice"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachingReusesCompiledExpression(t *testing.T) {
	e := NewEvaluator()
	assert.Equal(t, 0, e.CacheSize())

	_, _ = e.Evaluate("${x} > 1", map[string]interface{}{"x": 2})
	assert.Equal(t, 1, e.CacheSize())

	_, _ = e.Evaluate("${x} > 1", map[string]interface{}{"x": 3})
	assert.Equal(t, 1, e.CacheSize())

	e.ClearCache()
	assert.Equal(t, 0, e.CacheSize())
}

func TestLessThanOrEqual(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${x} <= 5", map[string]interface{}{"x": 5})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGreaterThanOrEqual(t *testing.T) {
	e := NewEvaluator()
	ok, err := e.Evaluate("${x} >= 5", map[string]interface{}{"x": 5})
	require.NoError(t, err)
	assert.True(t, ok)
}
