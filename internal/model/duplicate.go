package model

import (
	"fmt"
	"time"
)

// DuplicateResolution is a user decision about a suspected duplicate pair.
type DuplicateResolution string

// Resolution constants.
const (
	KeepBoth   DuplicateResolution = "KEEP_BOTH"
	KeepFirst  DuplicateResolution = "KEEP_FIRST"
	KeepSecond DuplicateResolution = "KEEP_SECOND"
)

// ValidResolution reports whether r is one of the known resolution values.
func ValidResolution(r DuplicateResolution) bool {
	switch r {
	case KeepBoth, KeepFirst, KeepSecond:
		return true
	}
	return false
}

// PendingDuplicate links two transactions suspected of reporting the same
// real-world payment. Transaction1 is always the earlier-arriving one.
// A transaction belongs to at most one open pending record at a time.
type PendingDuplicate struct {
	DetectedAt     time.Time `json:"detected_at"`
	ID             string    `json:"id"`
	Scope          string    `json:"scope"`
	Transaction1ID string    `json:"transaction1_id"`
	Transaction2ID string    `json:"transaction2_id"`
	SourceApp1     string    `json:"source_app1"`
	SourceApp2     string    `json:"source_app2"`
	Amount         int64     `json:"amount"`
}

// ResolutionRule is a standing auto-resolution decision for a pair of
// notification sources, created when a user resolves with "apply to future".
type ResolutionRule struct {
	CreatedAt  time.Time           `json:"created_at"`
	PairKey    string              `json:"pair_key"`
	Resolution DuplicateResolution `json:"resolution"`
}

// SourcePairKey canonicalizes an unordered pair of source apps so that
// (a, b) and (b, a) produce the same lookup key.
func SourcePairKey(app1, app2 string) string {
	if app1 > app2 {
		app1, app2 = app2, app1
	}
	return fmt.Sprintf("%s|%s", app1, app2)
}
