// Package registry implements the in-process Workflow Registry: a
// RWMutex-guarded map of registered workflows plus their inter-workflow
// dependency graph and lifecycle status, grounded on the lock-guarded map
// shape used throughout the teacher's coordinator/condition packages
// (sync.RWMutex over a cache/registry map) and on patch_validator.go's
// per-operation validation for the live-patch supplemental feature.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/lyzr/diagflow/common/validation"
	"github.com/lyzr/diagflow/engine/model"
	"github.com/lyzr/diagflow/engine/validate"
)

var patchValidator = validation.NewPatchValidator()

// changeChannel is the pub/sub channel a ChangeNotifier broadcasts
// workflow definition changes on, for other flowd instances to pick up.
const changeChannel = "diagflow:registry:changes"

// SnapshotStore persists workflow definitions durably so a restarted
// process can repopulate its registry. Satisfied by *common/db.DB.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, workflowID, status string, version int, definitionJSON []byte) error
	LoadSnapshots(ctx context.Context) (map[string][]byte, error)
}

// ChangeNotifier broadcasts that a workflow definition changed, so other
// flowd instances sharing a registry can invalidate cached state.
// Satisfied by *common/redis.Client.
type ChangeNotifier interface {
	PublishEvent(ctx context.Context, channel, message string) error
}

// Registry is the process-wide store of registered workflows.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*model.RegistryEntry
	store    SnapshotStore
	notifier ChangeNotifier
}

// New returns an empty Registry with no durability or change-broadcast
// backend attached.
func New() *Registry {
	return &Registry{entries: make(map[string]*model.RegistryEntry)}
}

// WithSnapshotStore attaches a durability backend; every Register/
// SetStatus/ApplyPatch call persists its resulting snapshot through it.
// A store failure is logged by the caller via the returned error on the
// triggering call — the in-memory registry itself always reflects the
// change even if durability failed.
func (r *Registry) WithSnapshotStore(store SnapshotStore) *Registry {
	r.store = store
	return r
}

// WithChangeNotifier attaches a change-broadcast backend; every Register/
// SetStatus/ApplyPatch call publishes the affected workflow id on
// changeChannel after the in-memory update and any snapshot write succeed;
// a failed snapshot write skips the publish.
func (r *Registry) WithChangeNotifier(notifier ChangeNotifier) *Registry {
	r.notifier = notifier
	return r
}

// LoadFromStore populates the registry from every snapshot the attached
// SnapshotStore holds, for use at process startup. No-op if no store is
// attached.
func (r *Registry) LoadFromStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snapshots, err := r.store.LoadSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("registry: load snapshots: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, raw := range snapshots {
		var wf model.Workflow
		if err := json.Unmarshal(raw, &wf); err != nil {
			return fmt.Errorf("registry: snapshot %q is invalid: %w", id, err)
		}
		entry := model.NewRegistryEntry(&wf, model.StatusActive, "")
		r.entries[wf.ID] = entry
	}
	for _, entry := range r.entries {
		r.indexDependencies(entry)
	}
	return nil
}

func (r *Registry) persist(ctx context.Context, e *model.RegistryEntry) error {
	if r.store == nil {
		return nil
	}
	def, err := json.Marshal(e.Workflow)
	if err != nil {
		return fmt.Errorf("registry: marshal snapshot: %w", err)
	}
	return r.store.SaveSnapshot(ctx, e.Workflow.ID, string(e.Status), e.Version, def)
}

func (r *Registry) notify(ctx context.Context, workflowID string) {
	if r.notifier == nil {
		return
	}
	_ = r.notifier.PublishEvent(ctx, changeChannel, workflowID)
}

// Register validates wf and inserts or updates it in the registry at the
// given status. Updating an existing id preserves DependedOnBy (who
// depends on this workflow does not change just because its own
// definition did) and bumps Version; dependencies this workflow itself
// declares (DependsOn) are re-indexed against the new definition.
func (r *Registry) Register(ctx context.Context, wf *model.Workflow, status model.RegistryStatus, description string) error {
	res := validate.Workflow(wf)
	if !res.OK() {
		return fmt.Errorf("registry: workflow %s failed validation: %v", wf.ID, res.Errors)
	}

	r.mu.Lock()
	existing, exists := r.entries[wf.ID]

	var entry *model.RegistryEntry
	if exists {
		r.deindexDependencies(existing)
		existing.Workflow = wf
		existing.Status = status
		existing.Description = description
		existing.Version++
		existing.DependsOn = make(map[string]bool)
		entry = existing
	} else {
		entry = model.NewRegistryEntry(wf, status, description)
		r.entries[wf.ID] = entry
	}
	r.indexDependencies(entry)
	r.mu.Unlock()

	if err := r.persist(ctx, entry); err != nil {
		return err
	}
	r.notify(ctx, wf.ID)
	return nil
}

// indexDependencies scans wf's Reference nodes and records dependency edges
// against the already-registered entries. Must be called with mu held.
func (r *Registry) indexDependencies(entry *model.RegistryEntry) {
	for _, n := range entry.Workflow.Nodes {
		if n.Kind != model.KindReference || n.Reference == nil {
			continue
		}
		targets := n.Reference.WorkflowIDs
		if n.Reference.WorkflowID != "" {
			targets = append(targets, n.Reference.WorkflowID)
		}
		for _, targetID := range targets {
			entry.DependsOn[targetID] = true
			if target, ok := r.entries[targetID]; ok {
				target.DependedOnBy[entry.Workflow.ID] = true
			}
		}
	}
}

// deindexDependencies removes entry's forward edges (and the matching
// reverse edges on its targets) before a re-registration rebuilds them
// against the new definition. Must be called with mu held.
func (r *Registry) deindexDependencies(entry *model.RegistryEntry) {
	for targetID := range entry.DependsOn {
		if target, ok := r.entries[targetID]; ok {
			delete(target.DependedOnBy, entry.Workflow.ID)
		}
	}
}

// Get returns the registered entry for id.
func (r *Registry) Get(id string) (*model.RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// ActiveIDs returns the ids of every workflow currently in Active status.
func (r *Registry) ActiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, e := range r.entries {
		if e.Status == model.StatusActive {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Search returns the ids of workflows whose id, name, or description
// contains substring (case-insensitive).
func (r *Registry) Search(substring string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(substring)
	var out []string
	for id, e := range r.entries {
		if strings.Contains(strings.ToLower(id), needle) ||
			strings.Contains(strings.ToLower(e.Workflow.Name), needle) ||
			strings.Contains(strings.ToLower(e.Description), needle) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SetStatus transitions a registered workflow to a new lifecycle status.
func (r *Registry) SetStatus(ctx context.Context, id string, status model.RegistryStatus) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: workflow %q not found", id)
	}
	e.Status = status
	r.mu.Unlock()

	if err := r.persist(ctx, e); err != nil {
		return err
	}
	r.notify(ctx, id)
	return nil
}

// Dependents returns the ids of workflows that reference id.
func (r *Registry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.DependedOnBy))
	for dep := range e.DependedOnBy {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// HasDependencyCycle reports whether the registered workflows' dependency
// graph (Reference Node edges between workflows) contains a cycle.
func (r *Registry) HasDependencyCycle() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(r.entries))
	for id := range r.entries {
		color[id] = white
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		e, ok := r.entries[id]
		if ok {
			deps := make([]string, 0, len(e.DependsOn))
			for d := range e.DependsOn {
				deps = append(deps, d)
			}
			sort.Strings(deps)
			for _, dep := range deps {
				switch color[dep] {
				case gray:
					return true
				case white:
					if visit(dep) {
						return true
					}
				}
			}
		}
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white && visit(id) {
			return true
		}
	}
	return false
}

// Statistics summarizes the registry's current contents.
type Statistics struct {
	Total    int
	ByStatus map[model.RegistryStatus]int
}

// Statistics computes aggregate counts over every registered entry.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Statistics{Total: len(r.entries), ByStatus: make(map[model.RegistryStatus]int)}
	for _, e := range r.entries {
		stats.ByStatus[e.Status]++
	}
	return stats
}

// ApplyPatch applies an RFC 6902 JSON Patch document against id's workflow
// definition, recording the applied patch in its PatchChain — the
// supplemental live-patching feature carried over from the teacher's
// patch_validator.go + compiler/ir.go ApplyDeltaResult pattern, reimplemented
// here against the in-process model.Workflow rather than a CAS-stored IR.
func (r *Registry) ApplyPatch(ctx context.Context, id string, patchJSON string) error {
	r.mu.Lock()

	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("registry: workflow %q not found", id)
	}

	var ops []map[string]interface{}
	if err := json.Unmarshal([]byte(patchJSON), &ops); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: invalid JSON Patch document: %w", err)
	}
	if err := patchValidator.ValidateOperations(ops); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: %w", err)
	}

	patch, err := jsonpatch.DecodePatch([]byte(patchJSON))
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: invalid JSON Patch document: %w", err)
	}

	current, err := json.Marshal(e.Workflow)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: failed to marshal workflow %q: %w", id, err)
	}

	patched, err := patch.Apply(current)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: failed to apply patch to %q: %w", id, err)
	}

	var newWf model.Workflow
	if err := json.Unmarshal(patched, &newWf); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("registry: patched workflow %q is invalid: %w", id, err)
	}

	if res := validate.Workflow(&newWf); !res.OK() {
		r.mu.Unlock()
		return fmt.Errorf("registry: patched workflow %q failed validation: %v", id, res.Errors)
	}

	e.Workflow = &newWf
	e.Version++
	e.PatchChain = append(e.PatchChain, model.PatchRecord{
		Sequence:  len(e.PatchChain) + 1,
		AppliedAt: time.Now(),
		Patch:     patchJSON,
	})
	r.mu.Unlock()

	if err := r.persist(ctx, e); err != nil {
		return err
	}
	r.notify(ctx, id)
	return nil
}
