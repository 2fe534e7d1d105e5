package domain

// QuestionID identifies a question within a form.
type QuestionID string

// QuestionKind discriminates the closed set of question variants.
// Every consumer (validator, renderer, transition resolver) switches on this
// value exhaustively; an unknown kind is a programming error, not a fallback.
type QuestionKind string

const (
	KindShortText      QuestionKind = "short_text"
	KindLongText       QuestionKind = "long_text"
	KindEmail          QuestionKind = "email"
	KindPhone          QuestionKind = "phone"
	KindNumber         QuestionKind = "number_input"
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindLikert         QuestionKind = "likert_scale"
	KindInformational  QuestionKind = "informational"
)

// Kinds lists every valid question kind, in declaration order.
func Kinds() []QuestionKind {
	return []QuestionKind{
		KindShortText, KindLongText, KindEmail, KindPhone,
		KindNumber, KindMultipleChoice, KindLikert, KindInformational,
	}
}

// SemanticRole tags a question whose answer carries a known meaning beyond
// its raw value, e.g. the respondent's contact identifiers.
type SemanticRole string

const (
	RoleNone  SemanticRole = ""
	RoleEmail SemanticRole = "email"
	RolePhone SemanticRole = "phone"
	RoleName  SemanticRole = "name"
)

// ChoiceSettings configures a multiple_choice question.
// MaxSelections of 0 or 1 means single-select.
type ChoiceSettings struct {
	Options       []string `json:"options" yaml:"options"`
	MaxSelections int      `json:"max_selections,omitempty" yaml:"max_selections,omitempty"`
}

// NumberSettings configures a number_input question. Nil bounds are open.
type NumberSettings struct {
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step float64  `json:"step,omitempty" yaml:"step,omitempty"`
}

// LikertSettings configures a likert_scale question.
// Scale defaults to 5 when zero.
type LikertSettings struct {
	Scale  int      `json:"scale,omitempty" yaml:"scale,omitempty"`
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Question is one logical unit of the form. The Kind field discriminates the
// variant; exactly the settings struct matching the kind is populated.
type Question struct {
	ID       QuestionID   `json:"id" yaml:"id"`
	Kind     QuestionKind `json:"kind" yaml:"kind"`
	Text     string       `json:"text" yaml:"text"`
	Required bool         `json:"required,omitempty" yaml:"required,omitempty"`

	// SemanticRole marks answers with out-of-band meaning (contact fields).
	SemanticRole SemanticRole `json:"role,omitempty" yaml:"role,omitempty"`

	// AuthIdentifier marks a question whose answer doubles as a contact
	// identifier used when creating a submission record.
	AuthIdentifier bool `json:"auth_identifier,omitempty" yaml:"auth_identifier,omitempty"`

	// Prompt is the generation prompt for informational questions.
	// Falls back to Text when empty.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	Transition TransitionStrategy `json:"transition" yaml:"transition"`

	Choice *ChoiceSettings `json:"choice,omitempty" yaml:"choice,omitempty"`
	Number *NumberSettings `json:"number,omitempty" yaml:"number,omitempty"`
	Likert *LikertSettings `json:"likert,omitempty" yaml:"likert,omitempty"`
}

// Interactive reports whether the question collects an answer.
func (q *Question) Interactive() bool {
	return q.Kind != KindInformational
}

// SingleSelect reports whether the question is a single-select choice,
// which is the only kind eligible for auto-advance.
func (q *Question) SingleSelect() bool {
	if q.Kind != KindMultipleChoice || q.Choice == nil {
		return false
	}
	return q.Choice.MaxSelections <= 1
}

// LikertScale returns the effective scale size.
func (s *LikertSettings) LikertScale() int {
	if s == nil || s.Scale <= 0 {
		return 5
	}
	return s.Scale
}
