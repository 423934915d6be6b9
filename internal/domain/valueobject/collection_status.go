package valueobject

import "fmt"

// ---------------------------------------------------------------------------
// CollectionCaseStatus – immutable value object
// ---------------------------------------------------------------------------

// CollectionCaseStatus represents the lifecycle stage of a collection case.
type CollectionCaseStatus struct {
	value string
}

const (
	collectionStatusOpen       = "OPEN"
	collectionStatusInProgress = "IN_PROGRESS"
	collectionStatusResolved   = "RESOLVED"
	collectionStatusClosed     = "CLOSED"
)

var (
	CollectionCaseStatusOpen       = CollectionCaseStatus{value: collectionStatusOpen}
	CollectionCaseStatusInProgress = CollectionCaseStatus{value: collectionStatusInProgress}
	CollectionCaseStatusResolved   = CollectionCaseStatus{value: collectionStatusResolved}
	CollectionCaseStatusClosed     = CollectionCaseStatus{value: collectionStatusClosed}
)

var validCollectionCaseStatuses = map[string]CollectionCaseStatus{
	collectionStatusOpen:       CollectionCaseStatusOpen,
	collectionStatusInProgress: CollectionCaseStatusInProgress,
	collectionStatusResolved:   CollectionCaseStatusResolved,
	collectionStatusClosed:     CollectionCaseStatusClosed,
}

// NewCollectionCaseStatus creates a CollectionCaseStatus from a raw string.
func NewCollectionCaseStatus(s string) (CollectionCaseStatus, error) {
	v, ok := validCollectionCaseStatuses[s]
	if !ok {
		return CollectionCaseStatus{}, fmt.Errorf("invalid collection case status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s CollectionCaseStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s CollectionCaseStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s CollectionCaseStatus) Equal(other CollectionCaseStatus) bool { return s.value == other.value }
