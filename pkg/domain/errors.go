package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormNotFound is returned when a form slug cannot be resolved.
// Terminal for session start; surfaced as a dedicated error screen, no retry.
var ErrFormNotFound = errors.New("form not found")

// ErrSubmissionNotFound is returned when a submission id or session id
// cannot be found in the store.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrSessionNotFound is returned when a live session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ErrOperationInFlight is returned when a navigation call arrives while a
// previous one is still executing. The caller should retry after the
// in-flight operation settles; state is untouched.
var ErrOperationInFlight = errors.New("navigation operation already in flight")

// ErrSessionCompleted is returned for navigation attempts after the form
// reached its end state.
var ErrSessionCompleted = errors.New("session already completed")

// ErrNoHistory is returned for a back navigation from the first screen.
var ErrNoHistory = errors.New("no previous screen in history")

// ValidationError describes a per-question input failure. It is recoverable
// and local: it blocks advancement until resolved and is never logged as a
// system fault.
type ValidationError struct {
	QuestionID QuestionID
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %s: %s", e.QuestionID, e.Message)
}

// MissingAuthIdentifierError signals a form-configuration defect: the form
// lacks the email/phone identifier questions required to create a submission.
// Fatal only to submission creation, not to form completion.
type MissingAuthIdentifierError struct {
	FormID  string
	Missing []SemanticRole
}

func (e *MissingAuthIdentifierError) Error() string {
	roles := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		roles[i] = string(r)
	}
	return fmt.Sprintf("form %s is missing auth identifier questions: %s",
		e.FormID, strings.Join(roles, ", "))
}
