package ports

import (
	"context"

	"github.com/espalier-io/espalier/pkg/domain"
)

// SubmissionStore persists submission records. Implementations must be safe
// for concurrent use and must uphold the at-most-one-submission-per-session
// invariant through FindBySession.
//
// Save is last-write-wins: callers may issue saves out of order relative to
// the storage layer, so a save must fully replace the stored record.
type SubmissionStore interface {
	// Save creates or replaces the submission keyed by its ID.
	Save(ctx context.Context, sub *domain.Submission) error

	// Load retrieves a submission by id.
	// Returns domain.ErrSubmissionNotFound if absent.
	Load(ctx context.Context, submissionID string) (*domain.Submission, error)

	// FindBySession retrieves the session's submission, if any.
	// Returns domain.ErrSubmissionNotFound if the session has none.
	FindBySession(ctx context.Context, sessionID string) (*domain.Submission, error)

	// Delete removes a submission by id.
	Delete(ctx context.Context, submissionID string) error

	// List returns the ids of all stored submissions.
	List(ctx context.Context) ([]string, error)
}
