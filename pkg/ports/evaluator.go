package ports

import (
	"context"

	"github.com/espalier-io/espalier/pkg/domain"
)

// RouteDecision is the outcome of evaluating a conditional strategy's routes.
//
// Matched false means no route condition held and the caller should use the
// strategy's default target. Matched true with a nil Target means the winning
// route explicitly ends the form.
type RouteDecision struct {
	Matched bool
	Target  *domain.QuestionID
}

// RouteEvaluator evaluates an ordered route list against the accumulated
// answers. Routes are checked in declaration order; the first whose condition
// holds wins. An error (including a collaborator timeout surfaced as an
// error) must be treated by callers as recoverable: navigation degrades to
// the strategy's default target, never fails.
type RouteEvaluator interface {
	Evaluate(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (RouteDecision, error)
}

// RouteEvaluatorFunc adapts a function to the RouteEvaluator interface.
type RouteEvaluatorFunc func(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (RouteDecision, error)

func (f RouteEvaluatorFunc) Evaluate(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (RouteDecision, error) {
	return f(ctx, routes, answers, form)
}
