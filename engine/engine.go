// Package engine is the top-level facade: Execute runs a registered
// workflow to completion, wiring the graph, scheduler, resolver, and
// reference executor together the way coordinator.go wires the
// teacher's Redis-backed pieces — minus the Redis, since one execution
// never leaves this process.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lyzr/diagflow/common/telemetry"
	"github.com/lyzr/diagflow/engine/execctx"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/noderun"
	"github.com/lyzr/diagflow/engine/reference"
	"github.com/lyzr/diagflow/engine/registry"
	"github.com/lyzr/diagflow/engine/scheduler"
)

// Config bounds an Engine's execution behavior.
type Config struct {
	MaxConcurrency int

	// Telemetry is optional; when set, every node completion and the
	// in-flight execution count are recorded against it.
	Telemetry *telemetry.Telemetry
}

// Engine ties a Registry, a node-kind Registry, and a Scheduler together
// into a single Execute/ExecuteAsync/Cancel surface.
type Engine struct {
	registry  *registry.Registry
	nodes     *noderun.Registry
	sched     *scheduler.Scheduler
	reference *reference.Executor
	telemetry *telemetry.Telemetry

	mu        sync.Mutex
	cancelFns map[string]context.CancelFunc
}

// New constructs an Engine. nodeRegistry must have every model.Kind your
// workflows use registered except KindReference, which the Engine wires to
// its own reference.Executor automatically.
func New(reg *registry.Registry, nodeRegistry *noderun.Registry, cfg Config) *Engine {
	e := &Engine{
		registry:  reg,
		nodes:     nodeRegistry,
		cancelFns: make(map[string]context.CancelFunc),
		telemetry: cfg.Telemetry,
	}
	e.reference = reference.New(e)
	e.sched = scheduler.New(nodeRegistry, scheduler.Config{MaxConcurrency: cfg.MaxConcurrency})
	nodeRegistry.Register(model.KindReference, &referenceAdapter{exec: e.reference})
	if e.telemetry != nil {
		go e.forwardTelemetry(e.sched.Subscribe())
	}
	return e
}

// forwardTelemetry drains the scheduler's event stream for the lifetime of
// the Engine, recording each completed node's status and duration.
func (e *Engine) forwardTelemetry(events <-chan scheduler.Event) {
	for ev := range events {
		if ev.Kind != scheduler.EventNodeCompleted && ev.Kind != scheduler.EventNodeSkipped {
			continue
		}
		if ev.Result == nil {
			continue
		}
		e.telemetry.ObserveNode(string(ev.Result.Status), time.Duration(ev.Result.DurationMs)*time.Millisecond)
	}
}

// Subscribe exposes the scheduler's observability event stream.
func (e *Engine) Subscribe() <-chan scheduler.Event {
	return e.sched.Subscribe()
}

// Execute runs workflowID to completion with the given input seeded into
// its ExecutionContext before the first node runs, implementing
// reference.Invoker so SYNC/ASYNC/LOOP/PARALLEL reference nodes can recurse
// back into the Engine for their child executions.
func (e *Engine) Execute(ctx context.Context, workflowID string, input map[string]interface{}) (*model.WorkflowExecutionResult, error) {
	return e.executeWithID(ctx, uuid.New().String(), workflowID, input)
}

// executeWithID runs workflowID under a caller-chosen executionID, so
// ExecuteAsync's returned id is the same one Cancel can later look up —
// Execute itself just mints a fresh id and delegates here.
func (e *Engine) executeWithID(ctx context.Context, executionID, workflowID string, input map[string]interface{}) (*model.WorkflowExecutionResult, error) {
	entry, ok := e.registry.Get(workflowID)
	if !ok {
		return nil, &model.EngineError{Kind: model.ErrConfigError, Message: fmt.Sprintf("workflow %q is not registered", workflowID)}
	}
	if entry.Status == model.StatusRetired {
		return nil, &model.EngineError{Kind: model.ErrConfigError, Message: fmt.Sprintf("workflow %q is retired", workflowID)}
	}

	ec := execctx.New(executionID, workflowID)
	for k, v := range input {
		ec.Set(k, v)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancelFns[executionID] = cancel
	active := len(e.cancelFns)
	e.mu.Unlock()
	if e.telemetry != nil {
		e.telemetry.SetActiveExecutions(active)
	}
	defer func() {
		e.mu.Lock()
		delete(e.cancelFns, executionID)
		active := len(e.cancelFns)
		e.mu.Unlock()
		if e.telemetry != nil {
			e.telemetry.SetActiveExecutions(active)
		}
		cancel()
	}()

	started := time.Now()
	nodeResults, err := e.sched.Run(runCtx, entry.Workflow, ec)

	stats := model.ComputeStatistics(nodeResults)
	success := err == nil && stats.Failed == 0

	result := &model.WorkflowExecutionResult{
		ExecutionID:          executionID,
		WorkflowID:           workflowID,
		Success:              success,
		NodeResults:          nodeResults,
		FinalContextSnapshot: ec.Snapshot(),
		StartedAt:            started,
		DurationMs:           time.Since(started).Milliseconds(),
		Statistics:           stats,
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result, err
}

// ExecuteAsync starts workflowID in a background goroutine and returns its
// execution id immediately; the outcome is delivered to onComplete (if
// non-nil) when the run finishes and is not stored anywhere else.
func (e *Engine) ExecuteAsync(ctx context.Context, workflowID string, input map[string]interface{}, onComplete func(*model.WorkflowExecutionResult, error)) string {
	executionID := uuid.New().String()
	go func() {
		result, err := e.executeWithID(ctx, executionID, workflowID, input)
		if onComplete != nil {
			onComplete(result, err)
		}
	}()
	return executionID
}

// Cancel requests cancellation of the in-flight execution identified by
// executionID. Returns false if no such execution is currently running.
func (e *Engine) Cancel(executionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.cancelFns[executionID]
	if !ok {
		return false
	}
	cancel()
	return true
}

// ActiveExecutions returns the number of workflow executions currently in
// flight. common/server polls this during graceful shutdown so an HTTP
// stop signal doesn't abandon an in-progress DAG run mid-level.
func (e *Engine) ActiveExecutions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cancelFns)
}

// referenceAdapter lets reference.Executor's per-mode dispatch register into
// the ordinary noderun.Registry like any other node kind.
type referenceAdapter struct {
	exec *reference.Executor
}

func (a *referenceAdapter) Validate(cfg map[string]interface{}) error { return nil }

func (a *referenceAdapter) Execute(ctx context.Context, ec *execctx.ExecutionContext, n *model.Node, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error) {
	return a.exec.Execute(ctx, ec, n, resolvedInputs)
}
