package domain

import "time"

// SubmissionStatus tracks whether the respondent finished the form.
type SubmissionStatus string

const (
	StatusInProgress SubmissionStatus = "in_progress"
	StatusCompleted  SubmissionStatus = "completed"
)

// Identifiers carries the contact values extracted from the form's
// auth-identifier questions.
type Identifiers struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Submission is the durable, incrementally-updated record of a respondent's
// progress within one session. At most one submission exists per session;
// it is created lazily on the first collected answer, never on form load.
type Submission struct {
	ID                   string           `json:"id"`
	SessionID            string           `json:"session_id"`
	FormID               string           `json:"form_id"`
	Answers              []Answer         `json:"answers"`
	CurrentQuestionID    QuestionID       `json:"current_question_id"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	Status               SubmissionStatus `json:"status"`
	Email                string           `json:"email,omitempty"`
	Phone                string           `json:"phone,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Clone returns a deep copy safe for concurrent readers.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	out.Answers = make([]Answer, len(s.Answers))
	copy(out.Answers, s.Answers)
	return &out
}
