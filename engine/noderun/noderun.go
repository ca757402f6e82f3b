// Package noderun defines the Node execution contract and the runtime
// wrapper that validates a node's config, runs it, times it, and packages
// the outcome into a model.NodeExecutionResult — grounded on
// metrics/runtime.go's CaptureStart/Finalize timing idiom, collapsed to
// wall-clock duration since per-node memory/goroutine sampling has no
// SPEC_FULL.md consumer.
package noderun

import (
	"context"
	"time"

	"github.com/lyzr/diagflow/engine/execctx"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/resolve"
)

// Node is the contract every executable node kind implements. Validate
// checks the node's Config before scheduling begins; Execute performs the
// work, reading resolved inputs from resolvedInputs and returning its
// outcome through NodeExecutionResult. Writing the result into the
// ExecutionContext under n.Outputs.OutputKey is the node implementation's
// own responsibility — it receives ec and n for exactly this purpose — not
// something the runtime or scheduler does on its behalf.
type Node interface {
	Validate(cfg map[string]interface{}) error
	Execute(ctx context.Context, ec *execctx.ExecutionContext, n *model.Node, resolvedInputs map[string]interface{}) (*model.NodeExecutionResult, error)
}

// Registry maps a model.Kind to the Node implementation that runs it.
type Registry struct {
	impls map[model.Kind]Node
}

// NewRegistry returns an empty node-kind registry.
func NewRegistry() *Registry {
	return &Registry{impls: make(map[model.Kind]Node)}
}

// Register binds kind to impl, overwriting any prior binding.
func (r *Registry) Register(kind model.Kind, impl Node) {
	r.impls[kind] = impl
}

// Lookup returns the Node implementation bound to kind, if any.
func (r *Registry) Lookup(kind model.Kind) (Node, bool) {
	impl, ok := r.impls[kind]
	return impl, ok
}

// Run validates and executes n via impl, measuring wall-clock duration and
// wrapping panics, timeouts, and cancellation into the appropriate
// model.ErrorKind per §7. It never returns a (nil, error) pair — execution
// failures are reported through the returned result's Status/ErrorKind, so
// the scheduler can treat every return the same way. inputMeta is the
// Input Resolver's summary for resolvedInputs, carried alongside the result
// under the "inputResolution" metadata key. On success the implementation's
// Data, a SKIPPED status, and its other Metadata keys are carried over.
func Run(ctx context.Context, ec *execctx.ExecutionContext, n *model.Node, impl Node, resolvedInputs map[string]interface{}, inputMeta resolve.Metadata) *model.NodeExecutionResult {
	started := time.Now()

	result := &model.NodeExecutionResult{
		NodeID:    n.ID,
		StartedAt: started,
		Metadata: map[string]interface{}{
			"inputResolution": map[string]interface{}{
				"inputMode":       string(inputMeta.InputMode),
				"totalInputs":     inputMeta.TotalInputs,
				"requiredInputs":  inputMeta.RequiredInputs,
				"availableInputs": inputMeta.AvailableInputs,
			},
		},
	}

	if err := impl.Validate(n.Config); err != nil {
		return fail(result, started, model.ErrConfigError, err)
	}

	if ctx.Err() == context.Canceled {
		return fail(result, started, model.ErrCancelled, ctx.Err())
	}

	res, err := runGuarded(ctx, ec, n, impl, resolvedInputs)
	if err != nil {
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return fail(result, started, model.ErrTimeout, err)
		case context.Canceled:
			return fail(result, started, model.ErrCancelled, err)
		default:
			return fail(result, started, model.ErrNodeFailure, err)
		}
	}

	result.Success = true
	result.Status = model.StatusSuccess
	if res != nil {
		result.Data = res.Data
		if res.Status == model.StatusSkipped {
			result.Status = model.StatusSkipped
		}
		for k, v := range res.Metadata {
			if k != "inputResolution" {
				result.Metadata[k] = v
			}
		}
	}
	result.DurationMs = time.Since(started).Milliseconds()
	return result
}

// runGuarded recovers a panicking Node.Execute into a NodeFailure-flavored
// error, so one misbehaving plugin can't unwind the scheduler's goroutine.
func runGuarded(ctx context.Context, ec *execctx.ExecutionContext, n *model.Node, impl Node, resolvedInputs map[string]interface{}) (res *model.NodeExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &model.EngineError{Kind: model.ErrNodeFailure, Message: "node panicked", Cause: asError(r)}
		}
	}()

	res, execErr := impl.Execute(ctx, ec, n, resolvedInputs)
	if execErr != nil {
		return nil, execErr
	}
	return res, nil
}

func fail(result *model.NodeExecutionResult, started time.Time, kind model.ErrorKind, cause error) *model.NodeExecutionResult {
	result.Success = false
	result.ErrorKind = kind
	if cause != nil {
		result.Message = cause.Error()
	}
	switch kind {
	case model.ErrCancelled:
		result.Status = model.StatusCancelled
	default:
		result.Status = model.StatusFailed
	}
	result.DurationMs = time.Since(started).Milliseconds()
	return result
}

func asError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &model.EngineError{Kind: model.ErrInternalError, Message: "non-error panic value"}
}
