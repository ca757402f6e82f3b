// Package scheduler runs a model.Workflow's graph level by level with a
// bounded worker pool, isolating a node's failure to its transitive
// successors rather than aborting the whole run — grounded on the
// level-by-level executeParallel/executeLevel shape from
// other_examples/parallel_executor.go, with its unbounded-by-default
// semaphore replaced by a required MaxConcurrency and its single in-process
// result map replaced by the ExecutionContext.
package scheduler

import (
	"context"
	"sync"

	"github.com/lyzr/diagflow/engine/execctx"
	"github.com/lyzr/diagflow/engine/graph"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/noderun"
	"github.com/lyzr/diagflow/engine/resolve"
)

// EventKind tags a scheduler observability event.
type EventKind string

const (
	EventNodeStarted   EventKind = "NodeStarted"
	EventNodeCompleted EventKind = "NodeCompleted"
	EventNodeSkipped   EventKind = "NodeSkipped"
	EventLevelStarted  EventKind = "LevelStarted"
)

// Event is one observability notification emitted during a run.
type Event struct {
	Kind   EventKind
	NodeID string
	Level  int
	Result *model.NodeExecutionResult
}

// Config bounds a Scheduler's concurrency.
type Config struct {
	// MaxConcurrency caps goroutines running concurrently within one level.
	// A level with fewer nodes than MaxConcurrency runs them all at once;
	// a value <= 0 means "one worker per node in the level", matching the
	// teacher's maxConcurrency<=0 => nodeCount fallback.
	MaxConcurrency int
}

// Scheduler executes a workflow's graph against a node-kind Registry.
type Scheduler struct {
	registry *noderun.Registry
	cfg      Config

	mu          sync.Mutex
	subscribers []chan Event
}

// New constructs a Scheduler bound to registry.
func New(registry *noderun.Registry, cfg Config) *Scheduler {
	return &Scheduler{registry: registry, cfg: cfg}
}

// Subscribe returns a channel receiving every Event emitted by subsequent
// Run calls. The channel is unbuffered-safe: Run only sends on it
// best-effort (non-blocking) so a slow or absent subscriber can't stall
// execution.
func (s *Scheduler) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Scheduler) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run executes wf's graph level by level against ec, returning per-node
// results keyed by node id. A node whose required inputs are missing, or
// whose execution fails, marks every transitive successor SKIPPED and
// continues the level rather than aborting — failure isolation per §4.6.
// ctx cancellation marks every not-yet-started node CANCELLED.
func (s *Scheduler) Run(ctx context.Context, wf *model.Workflow, ec *execctx.ExecutionContext) (map[string]*model.NodeExecutionResult, error) {
	g := graph.Build(wf)
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}

	results := make(map[string]*model.NodeExecutionResult, len(wf.Nodes))
	skipped := make(map[string]bool)

	for _, level := range levels {
		s.publish(Event{Kind: EventLevelStarted, Level: level.Index})

		select {
		case <-ctx.Done():
			for _, id := range remaining(levels, level.Index, skipped, results) {
				results[id] = &model.NodeExecutionResult{NodeID: id, Success: false, Status: model.StatusCancelled, ErrorKind: model.ErrCancelled}
			}
			return results, ctx.Err()
		default:
		}

		s.runLevel(ctx, wf, g, ec, level, results, skipped)
	}

	return results, nil
}

func (s *Scheduler) runLevel(ctx context.Context, wf *model.Workflow, g *graph.Graph, ec *execctx.ExecutionContext, level graph.Level, results map[string]*model.NodeExecutionResult, skipped map[string]bool) {
	runnable := make([]string, 0, len(level.NodeIDs))
	for _, id := range level.NodeIDs {
		if anyPredecessorSkipped(g, id, skipped) {
			skipped[id] = true
			res := &model.NodeExecutionResult{NodeID: id, Success: false, Status: model.StatusSkipped, ErrorKind: model.ErrNodeFailure, Message: "upstream node failed or was skipped"}
			results[id] = res
			s.publish(Event{Kind: EventNodeSkipped, NodeID: id, Level: level.Index, Result: res})
			continue
		}
		runnable = append(runnable, id)
	}

	maxConcurrency := s.cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = len(runnable)
	}
	if maxConcurrency == 0 {
		return
	}

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, id := range runnable {
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				results[nodeID] = &model.NodeExecutionResult{NodeID: nodeID, Success: false, Status: model.StatusCancelled, ErrorKind: model.ErrCancelled}
				skipped[nodeID] = true
				mu.Unlock()
				return
			}

			res := s.runNode(ctx, wf, ec, nodeID)

			mu.Lock()
			results[nodeID] = res
			if !res.Success {
				skipped[nodeID] = true
			}
			mu.Unlock()

			kind := EventNodeCompleted
			if res.Status == model.StatusSkipped {
				kind = EventNodeSkipped
			}
			s.publish(Event{Kind: kind, NodeID: nodeID, Level: level.Index, Result: res})
		}(id)
	}

	wg.Wait()
}

func (s *Scheduler) runNode(ctx context.Context, wf *model.Workflow, ec *execctx.ExecutionContext, nodeID string) *model.NodeExecutionResult {
	n := wf.Nodes[nodeID]
	s.publish(Event{Kind: EventNodeStarted, NodeID: nodeID})

	resolved, err := resolve.Inputs(ec, n.Inputs)
	if err != nil {
		return &model.NodeExecutionResult{NodeID: nodeID, Success: false, Status: model.StatusFailed, ErrorKind: model.ErrMissingInput, Message: err.Error()}
	}

	impl, ok := s.registry.Lookup(n.Kind)
	if !ok {
		return &model.NodeExecutionResult{NodeID: nodeID, Success: false, Status: model.StatusFailed, ErrorKind: model.ErrConfigError, Message: "no node implementation registered for kind " + string(n.Kind)}
	}

	// Writing the result under n.Outputs.OutputKey is the node implementation's
	// responsibility, not the runtime's — impl.Execute receives ec and n and
	// is expected to call ec.Set(n.Outputs.OutputKey, ...) itself when it
	// succeeds. The scheduler only dispatches and collects the result.
	return noderun.Run(ctx, ec, n, impl, resolved.Values, resolved.Metadata)
}

func anyPredecessorSkipped(g *graph.Graph, nodeID string, skipped map[string]bool) bool {
	for _, pred := range g.Predecessors(nodeID) {
		if skipped[pred] {
			return true
		}
	}
	return false
}

func remaining(levels []graph.Level, fromIdx int, skipped map[string]bool, results map[string]*model.NodeExecutionResult) []string {
	var out []string
	for _, lvl := range levels {
		if lvl.Index < fromIdx {
			continue
		}
		for _, id := range lvl.NodeIDs {
			if _, done := results[id]; !done {
				out = append(out, id)
			}
		}
	}
	return out
}
