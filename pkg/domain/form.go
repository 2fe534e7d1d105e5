package domain

// Welcome is the optional intro screen configuration. Theming beyond these
// fields is a presentation concern outside this module.
type Welcome struct {
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
	ButtonText string `json:"button_text,omitempty" yaml:"button_text,omitempty"`
}

// Group collapses a named set of questions into a single screen.
// Its last member's transition strategy governs advancement for the whole
// group. A valid group has at least two members.
type Group struct {
	ID          string       `json:"id" yaml:"id"`
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	QuestionIDs []QuestionID `json:"questions" yaml:"questions"`
}

// Contains reports membership of a question id.
func (g *Group) Contains(id QuestionID) bool {
	for _, qid := range g.QuestionIDs {
		if qid == id {
			return true
		}
	}
	return false
}

// Form is the immutable declarative definition driven by the runtime.
// Every id referenced by a Group or a TransitionStrategy must exist in
// Questions; the lint in internal/validator enforces this at publish time.
type Form struct {
	ID        string     `json:"id" yaml:"id"`
	Slug      string     `json:"slug,omitempty" yaml:"slug,omitempty"`
	Name      string     `json:"name" yaml:"name"`
	Questions []Question `json:"questions" yaml:"questions"`
	Groups    []Group    `json:"groups,omitempty" yaml:"groups,omitempty"`
	Welcome   *Welcome   `json:"welcome,omitempty" yaml:"welcome,omitempty"`
}

// QuestionIndex resolves a question id to its position in Questions.
func (f *Form) QuestionIndex(id QuestionID) (int, bool) {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// QuestionByID resolves a question id to its definition.
func (f *Form) QuestionByID(id QuestionID) (*Question, bool) {
	if i, ok := f.QuestionIndex(id); ok {
		return &f.Questions[i], true
	}
	return nil, false
}

// GroupFor returns the group containing the question, or nil for a
// standalone question.
func (f *Form) GroupFor(id QuestionID) *Group {
	for i := range f.Groups {
		if f.Groups[i].Contains(id) {
			return &f.Groups[i]
		}
	}
	return nil
}

// AuthIdentifierQuestions locates the designated email-role and phone-role
// questions. Either pointer is nil when the form lacks that identifier,
// which makes lazy submission creation impossible (MissingAuthIdentifierError).
func (f *Form) AuthIdentifierQuestions() (email, phone *Question) {
	for i := range f.Questions {
		q := &f.Questions[i]
		switch {
		case q.SemanticRole == RoleEmail, q.AuthIdentifier && q.Kind == KindEmail:
			if email == nil {
				email = q
			}
		case q.SemanticRole == RolePhone, q.AuthIdentifier && q.Kind == KindPhone:
			if phone == nil {
				phone = q
			}
		}
	}
	return email, phone
}
