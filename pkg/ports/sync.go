package ports

import (
	"context"

	"github.com/espalier-io/espalier/pkg/domain"
)

// SubmissionSync is the contract the navigation controller drives for
// incremental persistence. All three calls are best-effort from the
// controller's point of view: failures are logged and never block or roll
// back navigation.
type SubmissionSync interface {
	// Create lazily creates the session's submission on the first collected
	// answer. Called at most once per session; the controller prevents a
	// second call purely by checking whether a submission id is already set.
	Create(ctx context.Context, sessionID, formID string, answers []domain.Answer, ids domain.Identifiers) (string, error)

	// Update persists progress after every successful advance or retreat.
	// Must be idempotent and last-write-wins safe: updates are issued in
	// trigger order but are not guaranteed to land in that order.
	Update(ctx context.Context, submissionID string, answers []domain.Answer, currentID domain.QuestionID, currentIndex int, ids domain.Identifiers) error

	// Complete marks the submission finished. Called once, on reaching the
	// end of the form.
	Complete(ctx context.Context, submissionID string) error
}
