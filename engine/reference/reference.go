// Package reference implements the Reference Node: invoking a registered
// sub-workflow in one of five modes (SYNC, ASYNC, CONDITIONAL, LOOP,
// PARALLEL), grounded on control_flow.go's LoopOperator/BranchOperator
// shape but reimplemented in-process — there is no Redis-backed iteration
// counter or CAS-indirected payload here, just the ExecutionContext and a
// direct sub-execution call.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/diagflow/engine/execctx"
	"github.com/lyzr/diagflow/engine/expr"
	"github.com/lyzr/diagflow/engine/model"
)

// Invoker runs a registered sub-workflow to completion and returns its
// result. The top-level engine implements this; reference depends only on
// the interface to avoid an import cycle back to the engine package.
type Invoker interface {
	Execute(ctx context.Context, workflowID string, input map[string]interface{}) (*model.WorkflowExecutionResult, error)
}

// AsyncHandle is what a waitForResult=false ASYNC invocation stores in the
// parent ExecutionContext in place of a result — the spec's Open Question
// on async retrieval is resolved by this handle plus PollAsync below.
type AsyncHandle struct {
	ExecutionID string
	WorkflowID  string
	StartedAt   time.Time
}

// Executor runs Reference Nodes against an Invoker, tracking in-flight
// async sub-executions so PollAsync can retrieve them later.
type Executor struct {
	invoker   Invoker
	evaluator *expr.Evaluator

	mu    sync.Mutex
	async map[string]*asyncEntry
}

type asyncEntry struct {
	result *model.WorkflowExecutionResult
	err    error
	done   chan struct{}
}

// New constructs a reference Executor bound to invoker.
func New(invoker Invoker) *Executor {
	return &Executor{
		invoker:   invoker,
		evaluator: expr.NewEvaluator(),
		async:     make(map[string]*asyncEntry),
	}
}

// Execute dispatches n (a KindReference node) according to its
// ReferenceConfig.ExecutionMode and returns the NodeExecutionResult to
// integrate back into the parent ExecutionContext.
func (e *Executor) Execute(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	ref := n.Reference
	if ref == nil {
		return nil, &model.EngineError{Kind: model.ErrConfigError, Message: fmt.Sprintf("node %s: reference node has no ReferenceConfig", n.ID)}
	}

	switch ref.ExecutionMode {
	case model.ModeSync:
		return e.runSync(ctx, parent, n, ref, resolvedInputs)
	case model.ModeAsync:
		return e.runAsync(ctx, parent, n, ref, resolvedInputs)
	case model.ModeConditional:
		return e.runConditional(ctx, parent, n, ref, resolvedInputs)
	case model.ModeLoop:
		return e.runLoop(ctx, parent, n, ref, resolvedInputs)
	case model.ModeParallel:
		return e.runParallel(ctx, parent, n, ref, resolvedInputs)
	default:
		return nil, &model.EngineError{Kind: model.ErrConfigError, Message: fmt.Sprintf("node %s: unknown execution mode %q", n.ID, ref.ExecutionMode)}
	}
}

// buildInput applies InputMappings (outer -> inner) over resolvedInputs,
// then overlays FixedParameters, then injects the three auto-injected
// context keys a child execution always receives.
func buildInput(n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}, parentExecutionID, parentWorkflowID string) map[string]interface{} {
	child := make(map[string]interface{})

	if len(ref.InputMappings) == 0 {
		for k, v := range resolvedInputs {
			child[k] = v
		}
	} else {
		for outerKey, innerKey := range ref.InputMappings {
			if v, ok := resolvedInputs[outerKey]; ok {
				child[innerKey] = v
			}
		}
	}

	for k, v := range ref.FixedParameters {
		child[k] = v
	}

	child[model.KeySourceWorkflowID] = parentWorkflowID
	child[model.KeySourceExecutionID] = parentExecutionID
	child[model.KeyReferenceNodeID] = n.ID

	return child
}

// applyOutputMappings copies child's final context values (inner keys) into
// parent under their mapped outer keys. A mapped inner key absent from the
// child's snapshot stays absent in the parent too — no placeholder write —
// with a debug trace point for operators tracking down silent gaps.
func applyOutputMappings(parent *execctx.ExecutionContext, ref *model.ReferenceConfig, childSnapshot map[string]interface{}) {
	for innerKey, outerKey := range ref.OutputMappings {
		if v, ok := childSnapshot[innerKey]; ok {
			parent.Set(outerKey, v)
		} else {
			slog.Debug("reference: output mapping source absent in child context", "innerKey", innerKey, "outerKey", outerKey)
		}
	}
}

func (e *Executor) runSync(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	input := buildInput(n, ref, resolvedInputs, parent.ExecutionID(), parent.WorkflowID())

	childResult, err := e.invoker.Execute(ctx, ref.WorkflowID, input)
	if err != nil {
		return nil, &model.EngineError{Kind: model.ErrNodeFailure, Message: fmt.Sprintf("sync reference to %s failed", ref.WorkflowID), Cause: err}
	}

	applyOutputMappings(parent, ref, childResult.FinalContextSnapshot)

	return &model.NodeExecutionResult{
		NodeID:  n.ID,
		Success: childResult.Success,
		Data:    childResult.FinalContextSnapshot,
	}, nil
}

func (e *Executor) runAsync(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	input := buildInput(n, ref, resolvedInputs, parent.ExecutionID(), parent.WorkflowID())
	executionID := uuid.New().String()

	entry := &asyncEntry{done: make(chan struct{})}
	e.mu.Lock()
	e.async[executionID] = entry
	e.mu.Unlock()

	go func() {
		res, err := e.invoker.Execute(context.Background(), ref.WorkflowID, input)
		entry.result = res
		entry.err = err
		close(entry.done)
	}()

	handle := &AsyncHandle{ExecutionID: executionID, WorkflowID: ref.WorkflowID, StartedAt: time.Now()}

	if !ref.WaitForResult {
		parent.Set(n.ID, handle)
		return &model.NodeExecutionResult{NodeID: n.ID, Success: true, Data: handle}, nil
	}

	timeout := time.Duration(ref.EffectiveTimeoutMs()) * time.Millisecond
	select {
	case <-entry.done:
		if entry.err != nil {
			return nil, &model.EngineError{Kind: model.ErrNodeFailure, Message: fmt.Sprintf("async reference to %s failed", ref.WorkflowID), Cause: entry.err}
		}
		applyOutputMappings(parent, ref, entry.result.FinalContextSnapshot)
		return &model.NodeExecutionResult{NodeID: n.ID, Success: entry.result.Success, Data: entry.result.FinalContextSnapshot}, nil
	case <-time.After(timeout):
		parent.Set(n.ID, handle)
		return nil, &model.EngineError{Kind: model.ErrTimeout, Message: fmt.Sprintf("async reference to %s exceeded %dms wait", ref.WorkflowID, ref.EffectiveTimeoutMs())}
	case <-ctx.Done():
		return nil, &model.EngineError{Kind: model.ErrCancelled, Message: "async reference wait cancelled", Cause: ctx.Err()}
	}
}

// PollAsync retrieves the result of a prior waitForResult=false invocation
// by its AsyncHandle, resolving the spec's open question about how such a
// result is later obtained. Returns (nil, nil, false) if the handle is
// unknown or the sub-execution hasn't finished.
func (e *Executor) PollAsync(handle *AsyncHandle) (*model.WorkflowExecutionResult, error, bool) {
	e.mu.Lock()
	entry, ok := e.async[handle.ExecutionID]
	e.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	select {
	case <-entry.done:
		return entry.result, entry.err, true
	default:
		return nil, nil, false
	}
}

func (e *Executor) runConditional(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	met, _ := e.evaluator.Evaluate(ref.Condition, resolvedInputs)
	if !met {
		return &model.NodeExecutionResult{NodeID: n.ID, Success: true, Status: model.StatusSkipped, Message: "condition not met"}, nil
	}
	return e.runSync(ctx, parent, n, ref, resolvedInputs)
}

func (e *Executor) runLoop(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	if items, ok := resolvedInputs[ref.LoopDataKey].([]interface{}); ok {
		return e.runLoopOverList(ctx, parent, n, ref, resolvedInputs, items)
	}
	if ref.LoopCondition != "" {
		return e.runLoopUntilFalse(ctx, parent, n, ref, resolvedInputs)
	}
	return nil, &model.EngineError{Kind: model.ErrConfigError, Message: fmt.Sprintf("node %s: LoopDataKey %q is not a list and no LoopCondition is set", n.ID, ref.LoopDataKey)}
}

// runLoopOverList iterates a resolved list, passing each element as
// loopItem/loopIndex; LoopCondition, if also set, is consulted as a
// secondary per-item break.
func (e *Executor) runLoopOverList(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}, items []interface{}) (*model.NodeExecutionResult, error) {
	maxIter := ref.EffectiveMaxIterations()
	var iterationResults []interface{}
	succeeded := 0

	for i, item := range items {
		if i >= maxIter {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &model.EngineError{Kind: model.ErrCancelled, Message: "loop reference cancelled", Cause: ctx.Err()}
		default:
		}

		iterInput := make(map[string]interface{}, len(resolvedInputs)+1)
		for k, v := range resolvedInputs {
			iterInput[k] = v
		}
		iterInput["loopItem"] = item
		iterInput["loopIndex"] = i

		loopVars := map[string]interface{}{"loopItem": item, "loopIndex": i}
		if ref.LoopCondition != "" {
			cont, _ := e.evaluator.Evaluate(ref.LoopCondition, loopVars)
			if !cont {
				break
			}
		}

		input := buildInput(n, ref, iterInput, parent.ExecutionID(), parent.WorkflowID())
		childResult, err := e.invoker.Execute(ctx, ref.WorkflowID, input)
		if err != nil {
			iterationResults = append(iterationResults, map[string]interface{}{"index": i, "error": err.Error()})
			continue
		}

		applyOutputMappings(parent, ref, childResult.FinalContextSnapshot)
		iterationResults = append(iterationResults, childResult.FinalContextSnapshot)
		if childResult.Success {
			succeeded++
		}
	}

	return loopResult(n.ID, iterationResults, succeeded), nil
}

// runLoopUntilFalse drives iteration purely off LoopCondition when no
// loopDataKey resolves to a list: evaluate it before each iteration, stop
// when it turns false or maxIterations is reached.
func (e *Executor) runLoopUntilFalse(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	maxIter := ref.EffectiveMaxIterations()
	var iterationResults []interface{}
	succeeded := 0

	for i := 0; i < maxIter; i++ {
		select {
		case <-ctx.Done():
			return nil, &model.EngineError{Kind: model.ErrCancelled, Message: "loop reference cancelled", Cause: ctx.Err()}
		default:
		}

		loopVars := map[string]interface{}{"index": i}
		cont, _ := e.evaluator.Evaluate(ref.LoopCondition, loopVars)
		if !cont {
			break
		}

		iterInput := make(map[string]interface{}, len(resolvedInputs)+1)
		for k, v := range resolvedInputs {
			iterInput[k] = v
		}
		iterInput["index"] = i

		input := buildInput(n, ref, iterInput, parent.ExecutionID(), parent.WorkflowID())
		childResult, err := e.invoker.Execute(ctx, ref.WorkflowID, input)
		if err != nil {
			iterationResults = append(iterationResults, map[string]interface{}{"index": i, "error": err.Error()})
			continue
		}

		applyOutputMappings(parent, ref, childResult.FinalContextSnapshot)
		iterationResults = append(iterationResults, childResult.FinalContextSnapshot)
		if childResult.Success {
			succeeded++
		}
	}

	return loopResult(n.ID, iterationResults, succeeded), nil
}

// loopResult packages the per-iteration summaries per the resolved Open
// Question: overall success requires at least one successful iteration, or
// zero iterations attempted (an empty or immediately-broken loop is not
// itself a failure).
func loopResult(nodeID string, iterationResults []interface{}, succeeded int) *model.NodeExecutionResult {
	success := succeeded > 0 || len(iterationResults) == 0
	return &model.NodeExecutionResult{
		NodeID:  nodeID,
		Success: success,
		Data:    iterationResults,
		Metadata: map[string]interface{}{
			"iterations": len(iterationResults),
			"succeeded":  succeeded,
		},
	}
}

func (e *Executor) runParallel(ctx context.Context, parent *execctx.ExecutionContext, n *model.Node, ref *model.ReferenceConfig, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	timeout := time.Duration(ref.EffectiveParallelTimeoutMs()) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		workflowID string
		result     *model.WorkflowExecutionResult
		err        error
	}
	results := make([]outcome, len(ref.WorkflowIDs))

	var wg sync.WaitGroup
	for i, wfID := range ref.WorkflowIDs {
		wg.Add(1)
		go func(i int, wfID string) {
			defer wg.Done()
			input := buildInput(n, ref, resolvedInputs, parent.ExecutionID(), parent.WorkflowID())
			res, err := e.invoker.Execute(runCtx, wfID, input)
			results[i] = outcome{workflowID: wfID, result: res, err: err}
		}(i, wfID)
	}
	wg.Wait()

	data := make(map[string]interface{}, len(results))
	allSucceeded := true
	for _, o := range results {
		if o.err != nil {
			allSucceeded = false
			data[o.workflowID] = map[string]interface{}{"error": o.err.Error()}
			continue
		}
		applyOutputMappings(parent, ref, o.result.FinalContextSnapshot)
		data[o.workflowID] = o.result.FinalContextSnapshot
		if !o.result.Success {
			allSucceeded = false
		}
	}

	return &model.NodeExecutionResult{NodeID: n.ID, Success: allSucceeded, Data: data}, nil
}
