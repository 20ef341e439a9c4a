package constants

// ProcessingStatus is the canonical status for a document moving through the pipeline.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending     ProcessingStatus = "PENDING"      // created, not started
	StatusProcessing  ProcessingStatus = "PROCESSING"   // in progress
	StatusCompleted   ProcessingStatus = "COMPLETED"    // terminal success
	StatusFailed      ProcessingStatus = "FAILED"       // terminal failure
	StatusNeedsReview ProcessingStatus = "NEEDS_REVIEW" // terminal, low confidence or ambiguous
	StatusCancelled   ProcessingStatus = "CANCELLED"    // terminal, caller cancelled before start
	StatusSkipped     ProcessingStatus = "SKIPPED"      // terminal, deliberately not processed
)

// IsTerminal reports whether the status admits no further transitions.
func (s ProcessingStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusNeedsReview, StatusCancelled, StatusSkipped:
		return true
	}
	return false
}
