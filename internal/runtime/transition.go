package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

// Resolution is the outcome of resolving a screen's transition.
type Resolution struct {
	NextIndex int
	End       bool

	// EvaluationTime is non-zero when a conditional route evaluation ran.
	EvaluationTime time.Duration
}

// Resolver computes the next question index from the last question of the
// current screen, consulting the RouteEvaluator for conditional strategies.
//
// Evaluator failures (errors, timeouts surfaced as errors) are recoverable:
// the resolver degrades to the strategy's default target, then to the linear
// next index as a last resort, logging the condition but never failing the
// navigation.
type Resolver struct {
	form      *domain.Form
	evaluator ports.RouteEvaluator
	logger    *slog.Logger
}

// NewResolver creates a resolver for an immutable form.
func NewResolver(form *domain.Form, evaluator ports.RouteEvaluator, logger *slog.Logger) *Resolver {
	return &Resolver{form: form, evaluator: evaluator, logger: logger}
}

// Resolve determines where navigation goes after the screen whose governing
// question is last. answers must include the current screen's entries.
func (r *Resolver) Resolve(ctx context.Context, last *domain.Question, currentIndex int, answers []domain.Answer) Resolution {
	strategy := last.Transition

	if !strategy.Conditional() {
		return r.toTarget(strategy.Next, currentIndex)
	}

	if r.evaluator == nil {
		r.logger.Warn("conditional transition without evaluator, using default",
			"question_id", last.ID)
		return r.fallback(strategy, currentIndex)
	}

	started := time.Now()
	decision, err := r.evaluator.Evaluate(ctx, strategy.Routes, answers, r.form)
	elapsed := time.Since(started)

	if err != nil {
		r.logger.Warn("route evaluation failed, degrading to fallback",
			"question_id", last.ID, "err", err)
		res := r.fallback(strategy, currentIndex)
		res.EvaluationTime = elapsed
		return res
	}

	var res Resolution
	if decision.Matched {
		res = r.toTarget(decision.Target, currentIndex)
	} else {
		res = r.toTarget(strategy.DefaultNext, currentIndex)
	}
	res.EvaluationTime = elapsed
	return res
}

// toTarget maps a target id (nil = end of form) to a resolution.
func (r *Resolver) toTarget(target *domain.QuestionID, currentIndex int) Resolution {
	if target == nil {
		return Resolution{End: true}
	}
	idx, ok := r.form.QuestionIndex(*target)
	if !ok {
		// Broken reference; lint catches this at publish time, but a live
		// session still degrades to the linear next question.
		r.logger.Warn("transition target not in form, using linear next",
			"target", string(*target))
		return r.linearNext(currentIndex)
	}
	return Resolution{NextIndex: idx}
}

// fallback applies the degradation chain for failed or impossible
// conditional evaluations: default target first, linear next last.
func (r *Resolver) fallback(strategy domain.TransitionStrategy, currentIndex int) Resolution {
	if strategy.DefaultNext != nil {
		return r.toTarget(strategy.DefaultNext, currentIndex)
	}
	return r.linearNext(currentIndex)
}

func (r *Resolver) linearNext(currentIndex int) Resolution {
	next := currentIndex + 1
	if next >= len(r.form.Questions) {
		return Resolution{End: true}
	}
	return Resolution{NextIndex: next}
}
