package domain

// Analytics event names emitted by the runtime. All emissions are
// fire-and-forget; sink failures are swallowed and logged.
const (
	EventFormViewed          = "form_viewed"
	EventQuestionViewed      = "question_viewed"
	EventQuestionAnswered    = "question_answered"
	EventQuestionProgressed  = "question_progressed"
	EventQuestionBacktracked = "question_backtracked"
	EventFormCompleted       = "form_completed"
	EventFormAbandoned       = "form_abandoned"
)

// Well-known payload keys.
const (
	PayloadFormID     = "form_id"
	PayloadSessionID  = "session_id"
	PayloadQuestionID = "question_id"
	PayloadScreen     = "screen"
	PayloadDuration   = "duration_seconds"
)
