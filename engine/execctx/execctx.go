// Package execctx implements the ExecutionContext: the thread-safe, per-run
// key/value store that nodes read inputs from and write outputs to. It
// collapses the teacher's CAS-indirected Redis store (sdk.go's
// StoreContext/LoadContext/LoadNodeOutput) into direct in-process storage —
// a single execution never crosses a process boundary in this design.
package execctx

import (
	"encoding/json"
	"sync"

	"github.com/tidwall/gjson"
)

// cell distinguishes "key absent" from "key present with a nil value",
// which a plain map[string]interface{} cannot do.
type cell struct {
	present bool
	value   interface{}
}

// ExecutionContext is a null-preserving, concurrency-safe store scoped to a
// single workflow execution. Node implementations write their own outputs
// here (the scheduler writes nothing on their behalf); every node's inputs
// are read from here by engine/resolve.
type ExecutionContext struct {
	mu          sync.RWMutex
	cells       map[string]cell
	metadata    map[string]interface{}
	executionID string
	workflowID  string
}

// New constructs an empty ExecutionContext for one execution.
func New(executionID, workflowID string) *ExecutionContext {
	return &ExecutionContext{
		cells:       make(map[string]cell),
		metadata:    make(map[string]interface{}),
		executionID: executionID,
		workflowID:  workflowID,
	}
}

// ExecutionID returns the id of the execution this context belongs to.
func (c *ExecutionContext) ExecutionID() string { return c.executionID }

// WorkflowID returns the id of the workflow this context belongs to.
func (c *ExecutionContext) WorkflowID() string { return c.workflowID }

// Set stores value under key, including a literal nil — a present key with
// a nil value is distinct from an absent key.
func (c *ExecutionContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells[key] = cell{present: true, value: value}
}

// Has reports whether key has ever been Set, regardless of its value.
func (c *ExecutionContext) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.cells[key]
	return ok && cl.present
}

// Get returns the value stored under key and whether it was present.
// Get("k") on an unset key returns (nil, false); Get("k") after
// Set("k", nil) returns (nil, true).
func (c *ExecutionContext) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.cells[key]
	if !ok || !cl.present {
		return nil, false
	}
	return cl.value, true
}

// GetOrDefault returns the stored value for key, or def if key is absent.
// A key explicitly set to nil returns nil, not def.
func (c *ExecutionContext) GetOrDefault(key string, def interface{}) interface{} {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Remove deletes key entirely, so a subsequent Has reports false.
func (c *ExecutionContext) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cells, key)
}

// GetPath resolves a dotted path (e.g. "nodeA.field.sub") against the value
// stored under the path's leading segment, using gjson to project into
// nested JSON-shaped values the way resolver.go extracts $nodes.id.field.
// Returns (nil, false) if the root key is absent or the path does not
// resolve to a gjson-valid result.
func (c *ExecutionContext) GetPath(path string) (interface{}, bool) {
	root, rest, hasDot := splitPath(path)
	v, ok := c.Get(root)
	if !ok {
		return nil, false
	}
	if !hasDot {
		return v, true
	}

	b, ok := v.([]byte)
	if !ok {
		js, err := marshalForGJSON(v)
		if err != nil {
			return nil, false
		}
		b = js
	}

	result := gjson.GetBytes(b, rest)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Snapshot returns a shallow copy of every present key/value pair, suitable
// for WorkflowExecutionResult.FinalContextSnapshot.
func (c *ExecutionContext) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.cells))
	for k, cl := range c.cells {
		if cl.present {
			out[k] = cl.value
		}
	}
	return out
}

// Keys returns the present keys in no particular order.
func (c *ExecutionContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.cells))
	for k, cl := range c.cells {
		if cl.present {
			keys = append(keys, k)
		}
	}
	return keys
}

// SetMetadata attaches a run-scoped metadata value (distinct namespace from
// node outputs — used for things like auto-injected reference-node keys).
func (c *ExecutionContext) SetMetadata(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// Metadata returns a previously set metadata value.
func (c *ExecutionContext) Metadata(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}

func marshalForGJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func splitPath(path string) (root, rest string, hasDot bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:], true
		}
	}
	return path, "", false
}
