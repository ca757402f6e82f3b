package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func addNodeOp(id, kind string) map[string]interface{} {
	return map[string]interface{}{
		"op":   "add",
		"path": "/Nodes/" + id,
		"value": map[string]interface{}{
			"ID":   id,
			"Kind": kind,
		},
	}
}

func TestValidateOperationsAcceptsWellFormedAdd(t *testing.T) {
	v := NewPatchValidator()
	err := v.ValidateOperations([]map[string]interface{}{addNodeOp("n1", "script")})
	assert.NoError(t, err)
}

func TestValidateOperationsRejectsMissingOp(t *testing.T) {
	v := NewPatchValidator()
	err := v.ValidateOperations([]map[string]interface{}{{"path": "/Nodes/n1"}})
	assert.Error(t, err)
}

func TestValidateOperationsRejectsUnsupportedOp(t *testing.T) {
	v := NewPatchValidator()
	err := v.ValidateOperations([]map[string]interface{}{{"op": "move", "path": "/Nodes/n1"}})
	assert.Error(t, err)
}

func TestValidateOperationsRejectsNodeMissingKind(t *testing.T) {
	v := NewPatchValidator()
	op := map[string]interface{}{
		"op":    "add",
		"path":  "/Nodes/n1",
		"value": map[string]interface{}{"ID": "n1"},
	}
	err := v.ValidateOperations([]map[string]interface{}{op})
	assert.Error(t, err)
}

func TestValidateOperationsRejectsTooManyExpensiveNodes(t *testing.T) {
	v := NewPatchValidator()
	ops := make([]map[string]interface{}, 0, 6)
	for i := 0; i < 6; i++ {
		ops = append(ops, addNodeOp("n", "reference"))
	}
	err := v.ValidateOperations(ops)
	assert.ErrorContains(t, err, "cannot add more than")
}

func TestValidateOperationsAllowsRemoveWithoutValue(t *testing.T) {
	v := NewPatchValidator()
	err := v.ValidateOperations([]map[string]interface{}{{"op": "remove", "path": "/Nodes/n1"}})
	assert.NoError(t, err)
}
