package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/diagflow/engine/model"
)

func workflowWithKinds(t *testing.T, kinds ...model.Kind) *model.Workflow {
	t.Helper()
	wf := model.NewWorkflow("wf", "wf", "")
	for i, k := range kinds {
		n, err := model.NewNode(string(rune('a'+i)), "n", k)
		assert.NoError(t, err)
		assert.NoError(t, wf.AddNode(n))
	}
	return wf
}

func TestInspectWorkflowLightTier(t *testing.T) {
	wf := workflowWithKinds(t, model.KindInput, model.KindScript)
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierLight, profile.Tier)
	assert.Equal(t, 0, profile.ExpensiveCount)
	assert.False(t, profile.HasExpensive)
}

func TestInspectWorkflowStandardTier(t *testing.T) {
	wf := workflowWithKinds(t, model.KindInput, model.KindReference, model.KindDiagnosis)
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierStandard, profile.Tier)
	assert.Equal(t, 2, profile.ExpensiveCount)
	assert.True(t, profile.HasExpensive)
}

func TestInspectWorkflowHeavyTier(t *testing.T) {
	wf := workflowWithKinds(t, model.KindReference, model.KindReference, model.KindDiagnosis, model.KindDiagnosis)
	profile := InspectWorkflow(wf)
	assert.Equal(t, TierHeavy, profile.Tier)
	assert.Equal(t, 4, profile.ExpensiveCount)
}

func TestGetLimitAndWindowForTier(t *testing.T) {
	assert.Equal(t, int64(100), GetLimitForTier(TierLight))
	assert.Equal(t, int64(20), GetLimitForTier(TierStandard))
	assert.Equal(t, int64(5), GetLimitForTier(TierHeavy))
	assert.Equal(t, 60, GetWindowForTier(TierHeavy))
}

func TestGetLimitForUnknownTierFallsBackToHeavy(t *testing.T) {
	assert.Equal(t, GetLimitForTier(TierHeavy), GetLimitForTier(WorkflowTier("bogus")))
}
