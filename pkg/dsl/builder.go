package dsl

import "github.com/espalier-io/espalier/pkg/domain"

// FormBuilder accumulates questions and groups in declaration order.
// Methods that start a new question implicitly finish the previous one.
type FormBuilder struct {
	form    domain.Form
	current *domain.Question
}

// NewForm starts a builder. The slug defaults to the form id.
func NewForm(id, name string) *FormBuilder {
	return &FormBuilder{form: domain.Form{ID: id, Slug: id, Name: name}}
}

// Slug overrides the form's slug.
func (b *FormBuilder) Slug(slug string) *FormBuilder {
	b.form.Slug = slug
	return b
}

// Welcome sets the optional intro screen.
func (b *FormBuilder) Welcome(title, message string) *FormBuilder {
	b.form.Welcome = &domain.Welcome{Title: title, Message: message}
	return b
}

// Group collapses the listed questions into one screen.
func (b *FormBuilder) Group(id, title string, questionIDs ...domain.QuestionID) *FormBuilder {
	b.form.Groups = append(b.form.Groups, domain.Group{ID: id, Title: title, QuestionIDs: questionIDs})
	return b
}

// Build finishes the last question and returns the form.
func (b *FormBuilder) Build() *domain.Form {
	b.flush()
	f := b.form
	return &f
}

func (b *FormBuilder) flush() {
	if b.current != nil {
		b.form.Questions = append(b.form.Questions, *b.current)
		b.current = nil
	}
}

func (b *FormBuilder) start(q domain.Question) *FormBuilder {
	b.flush()
	b.current = &q
	return b
}

// ShortText starts a short_text question.
func (b *FormBuilder) ShortText(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindShortText, Text: text})
}

// LongText starts a long_text question.
func (b *FormBuilder) LongText(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindLongText, Text: text})
}

// Email starts an email question with the email semantic role.
func (b *FormBuilder) Email(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindEmail, Text: text, SemanticRole: domain.RoleEmail})
}

// Phone starts a phone question with the phone semantic role.
func (b *FormBuilder) Phone(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindPhone, Text: text, SemanticRole: domain.RolePhone})
}

// Number starts a number_input question.
func (b *FormBuilder) Number(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindNumber, Text: text, Number: &domain.NumberSettings{}})
}

// Choice starts a multiple_choice question. Single-select by default.
func (b *FormBuilder) Choice(id domain.QuestionID, text string, options ...string) *FormBuilder {
	return b.start(domain.Question{
		ID: id, Kind: domain.KindMultipleChoice, Text: text,
		Choice: &domain.ChoiceSettings{Options: options},
	})
}

// Likert starts a likert_scale question.
func (b *FormBuilder) Likert(id domain.QuestionID, text string, scale int) *FormBuilder {
	return b.start(domain.Question{
		ID: id, Kind: domain.KindLikert, Text: text,
		Likert: &domain.LikertSettings{Scale: scale},
	})
}

// Info starts an informational screen.
func (b *FormBuilder) Info(id domain.QuestionID, text string) *FormBuilder {
	return b.start(domain.Question{ID: id, Kind: domain.KindInformational, Text: text})
}

// Required marks the current question required.
func (b *FormBuilder) Required() *FormBuilder {
	b.current.Required = true
	return b
}

// AuthIdentifier marks the current question as a contact identifier.
func (b *FormBuilder) AuthIdentifier() *FormBuilder {
	b.current.AuthIdentifier = true
	return b
}

// Role sets the current question's semantic role.
func (b *FormBuilder) Role(role domain.SemanticRole) *FormBuilder {
	b.current.SemanticRole = role
	return b
}

// Prompt sets the generation prompt of an informational question.
func (b *FormBuilder) Prompt(prompt string) *FormBuilder {
	b.current.Prompt = prompt
	return b
}

// MaxSelections turns the current choice question into a multi-select.
func (b *FormBuilder) MaxSelections(n int) *FormBuilder {
	b.current.Choice.MaxSelections = n
	return b
}

// Bounds sets numeric bounds on the current number question.
func (b *FormBuilder) Bounds(min, max float64) *FormBuilder {
	b.current.Number.Min = &min
	b.current.Number.Max = &max
	return b
}

// Step sets the numeric step on the current number question.
func (b *FormBuilder) Step(step float64) *FormBuilder {
	b.current.Number.Step = step
	return b
}

// Next gives the current question a simple transition to the target.
func (b *FormBuilder) Next(target domain.QuestionID) *FormBuilder {
	b.current.Transition = domain.Simple(target)
	return b
}

// End makes the current question the end of the form.
func (b *FormBuilder) End() *FormBuilder {
	b.current.Transition = domain.End()
	return b
}

// Route appends a conditional route on the current question.
func (b *FormBuilder) Route(cond domain.Condition, target domain.QuestionID) *FormBuilder {
	b.current.Transition.Routes = append(b.current.Transition.Routes, domain.Route{
		Condition: cond,
		Target:    &target,
	})
	return b
}

// RouteEnd appends a conditional route that ends the form when matched.
func (b *FormBuilder) RouteEnd(cond domain.Condition) *FormBuilder {
	b.current.Transition.Routes = append(b.current.Transition.Routes, domain.Route{Condition: cond})
	return b
}

// Default sets the fallback target when no route matches.
func (b *FormBuilder) Default(target domain.QuestionID) *FormBuilder {
	b.current.Transition.DefaultNext = &target
	return b
}

// Condition constructors.

// Eq matches when the answer equals the value.
func Eq(q domain.QuestionID, value any) domain.Condition {
	return domain.Condition{QuestionID: q, Op: domain.OpEquals, Value: value}
}

// Neq matches when the answer differs from the value.
func Neq(q domain.QuestionID, value any) domain.Condition {
	return domain.Condition{QuestionID: q, Op: domain.OpNotEquals, Value: value}
}

// Contains matches when a multi-select answer includes the value.
func Contains(q domain.QuestionID, value string) domain.Condition {
	return domain.Condition{QuestionID: q, Op: domain.OpContains, Value: value}
}

// Gt matches when the numeric answer exceeds the value.
func Gt(q domain.QuestionID, value float64) domain.Condition {
	return domain.Condition{QuestionID: q, Op: domain.OpGreaterThan, Value: value}
}

// Answered matches when any non-empty answer was recorded.
func Answered(q domain.QuestionID) domain.Condition {
	return domain.Condition{QuestionID: q, Op: domain.OpAnswered}
}
