package domain

// TransitionStrategy defines which question follows the current one.
//
// A strategy is Simple when Routes is empty: Next points at the target
// question, nil meaning end of form. It is Conditional when Routes is
// non-empty: routes are evaluated in declaration order, the first whose
// condition holds wins, and DefaultNext (nil = end) applies when none match.
type TransitionStrategy struct {
	Next        *QuestionID `json:"next,omitempty" yaml:"next,omitempty"`
	Routes      []Route     `json:"routes,omitempty" yaml:"routes,omitempty"`
	DefaultNext *QuestionID `json:"default,omitempty" yaml:"default,omitempty"`
}

// Conditional reports whether the strategy carries evaluated routes.
func (t TransitionStrategy) Conditional() bool {
	return len(t.Routes) > 0
}

// Route maps a condition over accumulated answers to a target question.
// A nil Target explicitly ends the form when the route matches.
type Route struct {
	Condition Condition   `json:"when" yaml:"when"`
	Target    *QuestionID `json:"to,omitempty" yaml:"to,omitempty"`
}

// ConditionOp enumerates the comparison operators the runtime contract
// requires from a route evaluator. The full rule DSL lives outside this
// module; these cover the reference evaluator.
type ConditionOp string

const (
	OpEquals      ConditionOp = "eq"
	OpNotEquals   ConditionOp = "neq"
	OpContains    ConditionOp = "contains"
	OpGreaterThan ConditionOp = "gt"
	OpAtLeast     ConditionOp = "gte"
	OpLessThan    ConditionOp = "lt"
	OpAtMost      ConditionOp = "lte"
	OpAnswered    ConditionOp = "answered"
)

// Condition is a single predicate over one question's accumulated answer.
type Condition struct {
	QuestionID QuestionID  `json:"question" yaml:"question"`
	Op         ConditionOp `json:"op" yaml:"op"`
	Value      any         `json:"value,omitempty" yaml:"value,omitempty"`
}

// Simple builds a Simple strategy pointing at the given question.
func Simple(next QuestionID) TransitionStrategy {
	return TransitionStrategy{Next: &next}
}

// End builds a Simple strategy that ends the form.
func End() TransitionStrategy {
	return TransitionStrategy{}
}
