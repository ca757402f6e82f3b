package ratelimit

import "github.com/lyzr/diagflow/engine/model"

// WorkflowTier represents the rate limit tier based on workflow complexity.
type WorkflowTier string

const (
	TierLight    WorkflowTier = "light"    // no Reference or Diagnosis nodes
	TierStandard WorkflowTier = "standard" // 1-2 Reference/Diagnosis nodes
	TierHeavy    WorkflowTier = "heavy"    // 3+ Reference/Diagnosis nodes
)

// WorkflowProfile contains analysis of a workflow's complexity.
type WorkflowProfile struct {
	Tier           WorkflowTier
	ExpensiveCount int // number of Reference + Diagnosis nodes
	HasExpensive   bool
	TotalNodes     int
}

// InspectWorkflow classifies a workflow by the number of Reference and
// Diagnosis nodes it contains — the kinds that recurse into another
// workflow execution or invoke an external diagnosis backend, and so
// dominate the cost of running it.
func InspectWorkflow(wf *model.Workflow) WorkflowProfile {
	profile := WorkflowProfile{Tier: TierLight, TotalNodes: len(wf.Nodes)}

	for _, n := range wf.Nodes {
		if n.Kind == model.KindReference || n.Kind == model.KindDiagnosis {
			profile.ExpensiveCount++
			profile.HasExpensive = true
		}
	}

	profile.Tier = determineTier(profile.ExpensiveCount)
	return profile
}

func determineTier(expensiveCount int) WorkflowTier {
	switch {
	case expensiveCount == 0:
		return TierLight
	case expensiveCount <= 2:
		return TierStandard
	default:
		return TierHeavy
	}
}

// String returns a human-readable description of the tier.
func (t WorkflowTier) String() string {
	switch t {
	case TierLight:
		return "light"
	case TierStandard:
		return "standard"
	case TierHeavy:
		return "heavy"
	default:
		return "unknown"
	}
}
