package memory

import (
	"context"
	"fmt"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

// Evaluator is the reference RouteEvaluator. It checks routes in declaration
// order against the accumulated answers and returns the first match. An
// unanswered referenced question simply fails the condition, it is not an
// error; only an unknown operator is.
type Evaluator struct{}

// NewEvaluator creates the reference evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Evaluate(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (ports.RouteDecision, error) {
	for _, route := range routes {
		ok, err := evalCondition(route.Condition, answers)
		if err != nil {
			return ports.RouteDecision{}, err
		}
		if ok {
			return ports.RouteDecision{Matched: true, Target: route.Target}, nil
		}
	}
	return ports.RouteDecision{}, nil
}

func evalCondition(cond domain.Condition, answers []domain.Answer) (bool, error) {
	value, answered := domain.AnswerFor(answers, cond.QuestionID)

	if cond.Op == domain.OpAnswered {
		return answered && !domain.IsEmptyValue(value), nil
	}
	if !answered {
		return false, nil
	}

	switch cond.Op {
	case domain.OpEquals:
		return valuesEqual(value, cond.Value), nil
	case domain.OpNotEquals:
		return !valuesEqual(value, cond.Value), nil
	case domain.OpContains:
		want, ok := domain.StringValue(cond.Value)
		if !ok {
			return false, nil
		}
		items, ok := domain.StringsValue(value)
		if !ok {
			return false, nil
		}
		for _, item := range items {
			if item == want {
				return true, nil
			}
		}
		return false, nil
	case domain.OpGreaterThan, domain.OpAtLeast, domain.OpLessThan, domain.OpAtMost:
		got, ok1 := domain.NumberValue(value)
		want, ok2 := domain.NumberValue(cond.Value)
		if !ok1 || !ok2 {
			return false, nil
		}
		switch cond.Op {
		case domain.OpGreaterThan:
			return got > want, nil
		case domain.OpAtLeast:
			return got >= want, nil
		case domain.OpLessThan:
			return got < want, nil
		default:
			return got <= want, nil
		}
	default:
		return false, fmt.Errorf("unknown condition operator %q", cond.Op)
	}
}

// valuesEqual compares an answer against a condition value. Numbers compare
// numerically so "5" (text input) equals 5.0 (a decoded literal); everything
// else compares as strings or string sets.
func valuesEqual(got, want domain.AnswerValue) bool {
	if gn, ok := domain.NumberValue(got); ok {
		if wn, ok := domain.NumberValue(want); ok {
			return gn == wn
		}
	}
	gs, ok1 := domain.StringValue(got)
	ws, ok2 := domain.StringValue(want)
	if ok1 && ok2 {
		return gs == ws
	}
	gl, ok1 := domain.StringsValue(got)
	wl, ok2 := domain.StringsValue(want)
	if !ok1 || !ok2 || len(gl) != len(wl) {
		return false
	}
	for i := range gl {
		if gl[i] != wl[i] {
			return false
		}
	}
	return true
}
