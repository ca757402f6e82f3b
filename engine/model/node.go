// Package model defines the shared data types of the workflow graph: nodes,
// connections, workflows, input/output specs, and execution results.
package model

import "fmt"

// Kind is the closed enumeration of node kinds a workflow graph may contain.
type Kind string

const (
	KindInput        Kind = "input"
	KindPlugin       Kind = "plugin"
	KindScript       Kind = "script"
	KindDiagnosis    Kind = "diagnosis"
	KindReference    Kind = "reference"
	KindNotification Kind = "notification"
	KindDecision     Kind = "decision"
	KindAggregation  Kind = "aggregation"
)

// knownKinds is the closed set; unknown kinds fail at construction per §6.
var knownKinds = map[Kind]bool{
	KindInput:        true,
	KindPlugin:       true,
	KindScript:       true,
	KindDiagnosis:    true,
	KindReference:    true,
	KindNotification: true,
	KindDecision:     true,
	KindAggregation:  true,
}

// Valid reports whether k is one of the closed set of node kinds.
func (k Kind) Valid() bool {
	return knownKinds[k]
}

// Node is a unit of work in a workflow: identity plus a mutable configuration
// map. A node owns no state that survives an execution — all per-execution
// state lives in the ExecutionContext.
type Node struct {
	ID     string
	Name   string
	Kind   Kind
	Config map[string]interface{}

	// Input/Output specs describe how the node talks to the ExecutionContext.
	Inputs  InputSpec
	Outputs OutputSpec

	// Reference holds execution-mode configuration when Kind == KindReference.
	// Nil for every other kind.
	Reference *ReferenceConfig
}

// NewNode constructs a Node, rejecting an unknown kind the way the teacher's
// compiler rejects unregistered node types at construction time.
func NewNode(id, name string, kind Kind) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("model: node id must not be empty")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("model: unknown node kind %q", kind)
	}
	return &Node{
		ID:     id,
		Name:   name,
		Kind:   kind,
		Config: make(map[string]interface{}),
	}, nil
}

// ConfigString returns cfg[key] as a string, or ("", false) if absent or of
// the wrong type. Typed accessors replace runtime casting per §9.
func (n *Node) ConfigString(key string) (string, bool) {
	v, ok := n.Config[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ConfigInt returns cfg[key] as an int, accepting the JSON-decoded float64
// shape as well as a plain int.
func (n *Node) ConfigInt(key string) (int, bool) {
	v, ok := n.Config[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

// ConfigBool returns cfg[key] as a bool, or (false, false) if absent or of
// the wrong type.
func (n *Node) ConfigBool(key string) (bool, bool) {
	v, ok := n.Config[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Expect returns cfg[key], yielding a ConfigError-flavored error when absent.
func (n *Node) Expect(key string) (interface{}, error) {
	v, ok := n.Config[key]
	if !ok {
		return nil, &EngineError{Kind: ErrConfigError, Message: fmt.Sprintf("node %s: missing required config key %q", n.ID, key)}
	}
	return v, nil
}
