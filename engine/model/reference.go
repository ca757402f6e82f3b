package model

// ExecutionMode is the closed set of Reference Node invocation modes.
type ExecutionMode string

const (
	ModeSync        ExecutionMode = "SYNC"
	ModeAsync       ExecutionMode = "ASYNC"
	ModeConditional ExecutionMode = "CONDITIONAL"
	ModeLoop        ExecutionMode = "LOOP"
	ModeParallel    ExecutionMode = "PARALLEL"
)

// ReferenceConfig is the bit-exact schema from spec.md §6 — the contract
// between workflow loaders and the core for Reference Node configuration.
type ReferenceConfig struct {
	ExecutionMode ExecutionMode

	WorkflowID  string   // SYNC / ASYNC / CONDITIONAL / LOOP
	WorkflowIDs []string // PARALLEL

	Condition string // CONDITIONAL

	LoopDataKey   string // LOOP
	LoopCondition string // LOOP
	MaxIterations int    // LOOP, default 100

	InputMappings   map[string]string      // outerKey -> innerKey
	OutputMappings  map[string]string      // innerKey -> outerKey
	FixedParameters map[string]interface{} // overlay

	WaitForResult     bool // ASYNC, default false
	TimeoutMs         int  // ASYNC, default 30000
	ParallelTimeoutMs int  // PARALLEL, default 60000
}

// Auto-injected child execution context keys (§6).
const (
	KeySourceWorkflowID  = "_sourceWorkflowId"
	KeySourceExecutionID = "_sourceExecutionId"
	KeyReferenceNodeID   = "_referenceNodeId"
)

// DefaultMaxIterations is used when a LOOP-mode reference config leaves
// MaxIterations unset (<= 0).
const DefaultMaxIterations = 100

// DefaultAsyncTimeoutMs is ASYNC mode's default wait timeout.
const DefaultAsyncTimeoutMs = 30000

// DefaultParallelTimeoutMs is PARALLEL mode's default wait timeout.
const DefaultParallelTimeoutMs = 60000

// EffectiveMaxIterations returns MaxIterations, substituting the spec's
// default of 100 when unset.
func (c *ReferenceConfig) EffectiveMaxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

// EffectiveTimeoutMs returns TimeoutMs, substituting the ASYNC default.
func (c *ReferenceConfig) EffectiveTimeoutMs() int {
	if c.TimeoutMs <= 0 {
		return DefaultAsyncTimeoutMs
	}
	return c.TimeoutMs
}

// EffectiveParallelTimeoutMs returns ParallelTimeoutMs, substituting the
// PARALLEL default.
func (c *ReferenceConfig) EffectiveParallelTimeoutMs() int {
	if c.ParallelTimeoutMs <= 0 {
		return DefaultParallelTimeoutMs
	}
	return c.ParallelTimeoutMs
}
