package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/espalier-io/espalier/internal/logging"
	"github.com/espalier-io/espalier/internal/runtime"
	"github.com/espalier-io/espalier/pkg/adapters/memory"
	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/dsl"
	"github.com/espalier-io/espalier/pkg/ports"
)

func failingEvaluator(err error) ports.RouteEvaluator {
	return ports.RouteEvaluatorFunc(func(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (ports.RouteDecision, error) {
		return ports.RouteDecision{}, err
	})
}

func routingForm() *domain.Form {
	return dsl.NewForm("f", "F").
		Choice("q_team", "Team?", "eng", "sales").
		Route(dsl.Eq("q_team", "eng"), "q_stack").
		RouteEnd(dsl.Eq("q_team", "sales")).
		Default("q_wrap").
		ShortText("q_stack", "Stack?").Next("q_wrap").
		ShortText("q_wrap", "Anything else?").End().
		Build()
}

func TestResolverSimple(t *testing.T) {
	form := dsl.NewForm("f", "F").
		ShortText("q1", "A").Next("q2").
		ShortText("q2", "B").End().
		Build()
	r := runtime.NewResolver(form, nil, logging.NewNop())

	res := r.Resolve(context.Background(), &form.Questions[0], 0, nil)
	assert.False(t, res.End)
	assert.Equal(t, 1, res.NextIndex)

	res = r.Resolve(context.Background(), &form.Questions[1], 1, nil)
	assert.True(t, res.End, "nil next ends the form")
}

func TestResolverSimpleBrokenTargetFallsBackToLinear(t *testing.T) {
	missing := domain.QuestionID("q_missing")
	form := dsl.NewForm("f", "F").
		ShortText("q1", "A").Next("q2").
		ShortText("q2", "B").End().
		Build()
	form.Questions[0].Transition = domain.TransitionStrategy{Next: &missing}

	r := runtime.NewResolver(form, nil, logging.NewNop())
	res := r.Resolve(context.Background(), &form.Questions[0], 0, nil)
	assert.False(t, res.End)
	assert.Equal(t, 1, res.NextIndex)
}

func TestResolverConditional(t *testing.T) {
	form := routingForm()
	r := runtime.NewResolver(form, memory.NewEvaluator(), logging.NewNop())

	tests := []struct {
		name      string
		team      string
		wantEnd   bool
		wantIndex int
	}{
		{"route match", "eng", false, 1},
		{"end route match", "sales", true, 0},
		{"no match uses default", "ops", false, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := []domain.Answer{{QuestionID: "q_team", Value: tc.team}}
			res := r.Resolve(context.Background(), &form.Questions[0], 0, answers)
			assert.Equal(t, tc.wantEnd, res.End)
			if !tc.wantEnd {
				assert.Equal(t, tc.wantIndex, res.NextIndex)
			}
			assert.GreaterOrEqual(t, res.EvaluationTime.Nanoseconds(), int64(0))
		})
	}
}

func TestResolverNilDefaultEndsForm(t *testing.T) {
	form := dsl.NewForm("f", "F").
		ShortText("q1", "A").Route(dsl.Eq("q1", "never"), "q1").
		Build()
	r := runtime.NewResolver(form, memory.NewEvaluator(), logging.NewNop())

	answers := []domain.Answer{{QuestionID: "q1", Value: "something"}}
	res := r.Resolve(context.Background(), &form.Questions[0], 0, answers)
	assert.True(t, res.End, "no match and nil default completes the form")
}

func TestResolverEvaluatorFailureFallsBackToDefault(t *testing.T) {
	form := routingForm()
	r := runtime.NewResolver(form, failingEvaluator(errors.New("rules service down")), logging.NewNop())

	answers := []domain.Answer{{QuestionID: "q_team", Value: "eng"}}
	res := r.Resolve(context.Background(), &form.Questions[0], 0, answers)
	assert.False(t, res.End)
	assert.Equal(t, 2, res.NextIndex, "default target wins over the matched route on failure")
}

func TestResolverEvaluatorFailureWithoutDefaultUsesLinearNext(t *testing.T) {
	form := dsl.NewForm("f", "F").
		ShortText("q1", "A").Route(dsl.Answered("q1"), "q3").
		ShortText("q2", "B").Next("q3").
		ShortText("q3", "C").End().
		Build()
	r := runtime.NewResolver(form, failingEvaluator(errors.New("boom")), logging.NewNop())

	res := r.Resolve(context.Background(), &form.Questions[0], 0, nil)
	assert.False(t, res.End)
	assert.Equal(t, 1, res.NextIndex)
}

func TestResolverMissingEvaluatorUsesFallback(t *testing.T) {
	form := routingForm()
	r := runtime.NewResolver(form, nil, logging.NewNop())

	res := r.Resolve(context.Background(), &form.Questions[0], 0, nil)
	assert.False(t, res.End)
	assert.Equal(t, 2, res.NextIndex)
}

func TestResolverLinearNextClampsAtEnd(t *testing.T) {
	form := dsl.NewForm("f", "F").
		ShortText("q1", "A").Route(dsl.Answered("q1"), "q1").
		Build()
	r := runtime.NewResolver(form, failingEvaluator(errors.New("boom")), logging.NewNop())

	res := r.Resolve(context.Background(), &form.Questions[0], 0, nil)
	assert.True(t, res.End, "no default and no linear successor ends the form")
}
