// Package validation runs structural checks over a JSON Patch document
// before it reaches engine/registry.ApplyPatch, so a malformed or
// abusive patch is rejected with a clear message instead of surfacing as
// a confusing post-apply validation failure. Operations address the
// marshaled model.Workflow directly, so node adds look like
// {"op":"add","path":"/Nodes/<id>","value":{"ID":...,"Kind":...}}.
package validation

import (
	"fmt"
	"strings"
)

// maxExpensiveNodesPerPatch bounds how many Reference/Diagnosis nodes a
// single patch may add — these are the kinds that recurse into another
// workflow execution or an external diagnosis backend, so an unbounded
// batch add is the most likely way a patch turns into a resource spike.
const maxExpensiveNodesPerPatch = 5

var expensiveKinds = map[string]bool{
	"reference": true,
	"diagnosis": true,
}

// PatchValidator validates RFC 6902 JSON Patch operations targeting a
// workflow definition.
type PatchValidator struct{}

// NewPatchValidator creates a new patch validator.
func NewPatchValidator() *PatchValidator {
	return &PatchValidator{}
}

// ValidateOperations validates all patch operations.
func (v *PatchValidator) ValidateOperations(operations []map[string]interface{}) error {
	expensiveCount := 0

	for i, op := range operations {
		if err := v.validateOperation(op, i); err != nil {
			return err
		}

		if op["op"] == "add" && isNodePath(op["path"]) {
			if value, ok := op["value"].(map[string]interface{}); ok {
				if kind, ok := value["Kind"].(string); ok && expensiveKinds[kind] {
					expensiveCount++
				}
			}
		}
	}

	if expensiveCount > maxExpensiveNodesPerPatch {
		return fmt.Errorf("patch validation failed: cannot add more than %d reference/diagnosis nodes per patch (attempted: %d)", maxExpensiveNodesPerPatch, expensiveCount)
	}

	return nil
}

func isNodePath(path interface{}) bool {
	p, ok := path.(string)
	return ok && strings.HasPrefix(p, "/Nodes/")
}

// validateOperation validates a single operation.
func (v *PatchValidator) validateOperation(op map[string]interface{}, index int) error {
	opType, ok := op["op"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'op' field", index)
	}

	path, ok := op["path"].(string)
	if !ok {
		return fmt.Errorf("operation %d: missing or invalid 'path' field", index)
	}

	switch opType {
	case "add", "replace":
		if _, ok := op["value"]; !ok {
			return fmt.Errorf("operation %d: 'value' required for %s operation", index, opType)
		}

		if strings.HasPrefix(path, "/Nodes/") && opType == "add" {
			if err := v.validateNodeValue(op["value"], index); err != nil {
				return err
			}
		}

	case "remove":
		return nil

	default:
		return fmt.Errorf("operation %d: unsupported operation type: %s", index, opType)
	}

	return nil
}

// validateNodeValue validates a node value in a patch.
func (v *PatchValidator) validateNodeValue(value interface{}, opIndex int) error {
	nodeValue, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("operation %d: node value must be an object, got %T", opIndex, value)
	}

	if _, ok := nodeValue["ID"].(string); !ok {
		return fmt.Errorf("operation %d: node must have 'ID' field (string)", opIndex)
	}

	if _, ok := nodeValue["Kind"].(string); !ok {
		return fmt.Errorf("operation %d: node must have 'Kind' field (string)", opIndex)
	}

	if config, exists := nodeValue["Config"]; exists {
		if _, ok := config.(map[string]interface{}); !ok {
			return fmt.Errorf("operation %d: node 'Config' must be an object, got %T (hint: use {\"key\": \"value\"}, not [\"key\"])", opIndex, config)
		}
	}

	return nil
}
