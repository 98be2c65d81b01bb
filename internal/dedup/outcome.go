// Package dedup finds near-duplicate transactions arising when two source
// apps report the same real-world payment, holds them as pending decisions,
// and applies user resolutions and standing auto-resolution rules.
package dedup

import "github.com/ggoomipapa/fammoney-core/internal/model"

// OutcomeKind identifies the result of a duplicate check.
type OutcomeKind string

// Duplicate check outcomes.
const (
	// NoDuplicate means nothing in the recent window matched.
	NoDuplicate OutcomeKind = "NO_DUPLICATE"
	// AutoResolved means a standing rule decided the pair without user input.
	AutoResolved OutcomeKind = "AUTO_RESOLVED"
	// PendingCreated means the pair awaits an explicit user decision.
	PendingCreated OutcomeKind = "PENDING_CREATED"
)

// Outcome reports what the detector did with a newly ingested transaction.
// Resolution is set for AutoResolved, Pending for PendingCreated.
type Outcome struct {
	Pending    *model.PendingDuplicate
	Kind       OutcomeKind
	Resolution model.DuplicateResolution
}
