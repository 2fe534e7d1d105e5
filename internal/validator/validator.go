// Package validator checks form definitions for structural problems before
// they are served: broken references, unreachable questions, malformed
// groups. Errors make a form unservable; warnings are advisory.
package validator

import (
	"fmt"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Issue is one finding, tied to the question or group that caused it.
type Issue struct {
	Ref     string
	Message string
}

func (i Issue) String() string {
	if i.Ref == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Ref, i.Message)
}

// Report collects the findings for one form.
type Report struct {
	Errors   []Issue
	Warnings []Issue
}

// OK reports whether the form is servable.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err folds the errors into one error, nil when the form is servable.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	msg := fmt.Sprintf("form has %d problem(s)", len(r.Errors))
	for _, issue := range r.Errors {
		msg += "\n- " + issue.String()
	}
	return fmt.Errorf("%s", msg)
}

func (r *Report) errorf(ref, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Ref: ref, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(ref, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Ref: ref, Message: fmt.Sprintf(format, args...)})
}

// LintForm validates a form definition.
func LintForm(form *domain.Form) *Report {
	report := &Report{}

	if form.ID == "" {
		report.errorf("", "form is missing an id")
	}
	if len(form.Questions) == 0 {
		report.errorf("", "form has no questions")
		return report
	}

	ids := make(map[domain.QuestionID]bool, len(form.Questions))
	for i := range form.Questions {
		q := &form.Questions[i]
		if q.ID == "" {
			report.errorf(fmt.Sprintf("question #%d", i), "missing id")
			continue
		}
		if ids[q.ID] {
			report.errorf(string(q.ID), "duplicate question id")
		}
		ids[q.ID] = true
	}

	for i := range form.Questions {
		lintQuestion(report, form, &form.Questions[i], ids)
	}
	lintGroups(report, form, ids)
	lintReachability(report, form)
	lintIdentifiers(report, form)

	return report
}

func lintQuestion(report *Report, form *domain.Form, q *domain.Question, ids map[domain.QuestionID]bool) {
	ref := string(q.ID)

	known := false
	for _, k := range domain.Kinds() {
		if q.Kind == k {
			known = true
			break
		}
	}
	if !known {
		report.errorf(ref, "unknown kind %q", q.Kind)
	}

	if q.Kind == domain.KindMultipleChoice {
		if q.Choice == nil || len(q.Choice.Options) == 0 {
			report.errorf(ref, "multiple_choice question has no options")
		} else if q.Choice.MaxSelections > len(q.Choice.Options) {
			report.warnf(ref, "max_selections exceeds option count")
		}
	}
	if q.Kind == domain.KindNumber && q.Number != nil {
		if q.Number.Min != nil && q.Number.Max != nil && *q.Number.Min > *q.Number.Max {
			report.errorf(ref, "numeric min is greater than max")
		}
	}

	t := q.Transition
	if t.Conditional() {
		if t.Next != nil {
			report.errorf(ref, "transition has both next and routes")
		}
		for _, route := range t.Routes {
			if route.Condition.QuestionID != "" && !ids[route.Condition.QuestionID] {
				report.errorf(ref, "route condition references unknown question %q", route.Condition.QuestionID)
			}
			if route.Target != nil && !ids[*route.Target] {
				report.errorf(ref, "route targets unknown question %q", *route.Target)
			}
		}
		if t.DefaultNext != nil && !ids[*t.DefaultNext] {
			report.errorf(ref, "default targets unknown question %q", *t.DefaultNext)
		}
	} else if t.Next != nil && !ids[*t.Next] {
		report.errorf(ref, "next targets unknown question %q", *t.Next)
	}
}

func lintGroups(report *Report, form *domain.Form, ids map[domain.QuestionID]bool) {
	seen := make(map[domain.QuestionID]string)
	groupIDs := make(map[string]bool)
	for _, g := range form.Groups {
		ref := "group " + g.ID
		if g.ID == "" {
			report.errorf("group", "missing id")
		} else if groupIDs[g.ID] {
			report.errorf(ref, "duplicate group id")
		}
		groupIDs[g.ID] = true

		if len(g.QuestionIDs) < 2 {
			report.errorf(ref, "group needs at least two questions")
		}
		for _, id := range g.QuestionIDs {
			if !ids[id] {
				report.errorf(ref, "references unknown question %q", id)
				continue
			}
			if other, ok := seen[id]; ok {
				report.errorf(ref, "question %q already belongs to group %q", id, other)
			}
			seen[id] = g.ID
		}
	}
}

// lintReachability crawls the transition graph from the first question. A
// conditional question's reachable set is every route target plus the
// default; an unreachable question is a warning since evaluators outside the
// declared routes cannot be modeled statically.
func lintReachability(report *Report, form *domain.Form) {
	if len(form.Questions) == 0 {
		return
	}
	reached := make(map[domain.QuestionID]bool)

	// Group members share a screen, so reaching one member reaches all.
	expand := func(id domain.QuestionID) []domain.QuestionID {
		if g := form.GroupFor(id); g != nil {
			return g.QuestionIDs
		}
		return []domain.QuestionID{id}
	}

	queue := expand(form.Questions[0].ID)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reached[id] {
			continue
		}
		reached[id] = true

		q, ok := form.QuestionByID(id)
		if !ok {
			continue
		}
		var targets []*domain.QuestionID
		if q.Transition.Conditional() {
			for _, route := range q.Transition.Routes {
				targets = append(targets, route.Target)
			}
			targets = append(targets, q.Transition.DefaultNext)
		} else {
			targets = append(targets, q.Transition.Next)
		}
		for _, target := range targets {
			if target == nil || reached[*target] {
				continue
			}
			queue = append(queue, expand(*target)...)
		}
	}

	for i := range form.Questions {
		if id := form.Questions[i].ID; id != "" && !reached[id] {
			report.warnf(string(id), "unreachable from the first question")
		}
	}
}

func lintIdentifiers(report *Report, form *domain.Form) {
	email, phone := form.AuthIdentifierQuestions()
	if email == nil {
		report.warnf("", "form has no email identifier question; submissions cannot be created")
	}
	if phone == nil {
		report.warnf("", "form has no phone identifier question; submissions cannot be created")
	}
	if email != nil && email.Kind != domain.KindEmail {
		report.warnf(string(email.ID), "email identifier is not an email question")
	}
	if phone != nil && phone.Kind != domain.KindPhone {
		report.warnf(string(phone.ID), "phone identifier is not a phone question")
	}
}
