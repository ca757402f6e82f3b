package model

import "time"

// RegistryStatus is the lifecycle state of a registered workflow.
type RegistryStatus string

const (
	StatusDraft      RegistryStatus = "Draft"
	StatusActive     RegistryStatus = "Active"
	StatusDeprecated RegistryStatus = "Deprecated"
	StatusRetired    RegistryStatus = "Retired"
)

// PatchRecord is one applied JSON Patch against a registered workflow's
// definition — SPEC_FULL §4.9's supplemental live-patching feature.
type PatchRecord struct {
	Sequence  int
	AppliedAt time.Time
	Patch     string // RFC 6902 JSON Patch document, as applied
}

// RegistryEntry is a named, versioned workflow plus its lifecycle metadata
// and dependency adjacency sets.
type RegistryEntry struct {
	Workflow    *Workflow
	Status      RegistryStatus
	Version     int
	Description string
	CreatedAt   time.Time

	DependsOn    map[string]bool // workflows this one references
	DependedOnBy map[string]bool // reverse edges

	PatchChain []PatchRecord
}

// NewRegistryEntry constructs a fresh entry at version 1.
func NewRegistryEntry(wf *Workflow, status RegistryStatus, description string) *RegistryEntry {
	return &RegistryEntry{
		Workflow:     wf,
		Status:       status,
		Version:      1,
		Description:  description,
		CreatedAt:    time.Now(),
		DependsOn:    make(map[string]bool),
		DependedOnBy: make(map[string]bool),
	}
}
