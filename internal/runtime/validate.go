package runtime

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Input format patterns. Deliberately permissive: the goal is catching
// obvious typos, not RFC-grade verification.
var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{5,}$`)
)

// ValidateQuestion checks a single value against its question's rules.
// Returns nil when valid. It never panics on unexpected value types; a type
// mismatch is reported as an ordinary validation failure.
func ValidateQuestion(q *domain.Question, value domain.AnswerValue) *domain.ValidationError {
	fail := func(format string, args ...any) *domain.ValidationError {
		return &domain.ValidationError{QuestionID: q.ID, Message: fmt.Sprintf(format, args...)}
	}

	if domain.IsEmptyValue(value) {
		if q.Required && q.Interactive() {
			return fail("this field is required")
		}
		return nil
	}

	switch q.Kind {
	case domain.KindShortText, domain.KindLongText:
		if _, ok := domain.StringValue(value); !ok {
			return fail("expected a text value")
		}
		return nil

	case domain.KindEmail:
		s, ok := domain.StringValue(value)
		if !ok || !emailPattern.MatchString(strings.TrimSpace(s)) {
			return fail("enter a valid email address")
		}
		return nil

	case domain.KindPhone:
		s, ok := domain.StringValue(value)
		if !ok || !phonePattern.MatchString(strings.TrimSpace(s)) {
			return fail("enter a valid phone number")
		}
		return nil

	case domain.KindNumber:
		n, ok := domain.NumberValue(value)
		if !ok {
			return fail("enter a number")
		}
		if q.Number != nil {
			if q.Number.Min != nil && n < *q.Number.Min {
				return fail("must be at least %v", *q.Number.Min)
			}
			if q.Number.Max != nil && n > *q.Number.Max {
				return fail("must be at most %v", *q.Number.Max)
			}
			if q.Number.Step > 0 {
				base := 0.0
				if q.Number.Min != nil {
					base = *q.Number.Min
				}
				steps := (n - base) / q.Number.Step
				if math.Abs(steps-math.Round(steps)) > 1e-9 {
					return fail("must be in increments of %v", q.Number.Step)
				}
			}
		}
		return nil

	case domain.KindMultipleChoice:
		selected, ok := domain.StringsValue(value)
		if !ok {
			return fail("expected one or more options")
		}
		if q.Choice != nil {
			max := q.Choice.MaxSelections
			if max <= 0 {
				max = 1
			}
			if len(selected) > max {
				return fail("select at most %d option(s)", max)
			}
			for _, s := range selected {
				if !containsOption(q.Choice.Options, s) {
					return fail("%q is not one of the options", s)
				}
			}
		}
		return nil

	case domain.KindLikert:
		n, ok := domain.NumberValue(value)
		if !ok {
			return fail("pick a point on the scale")
		}
		scale := q.Likert.LikertScale()
		if n != math.Trunc(n) || n < 1 || n > float64(scale) {
			return fail("pick a value between 1 and %d", scale)
		}
		return nil

	case domain.KindInformational:
		return nil

	default:
		return fail("unknown question kind %q", q.Kind)
	}
}

// ValidateScreen validates every question of a screen against the current
// answer buffer, left to right. The first failing question's error is
// surfaced; later failures are not concatenated.
func ValidateScreen(questions []domain.Question, buffer map[domain.QuestionID]domain.AnswerValue) *domain.ValidationError {
	for i := range questions {
		q := &questions[i]
		if verr := ValidateQuestion(q, buffer[q.ID]); verr != nil {
			return verr
		}
	}
	return nil
}

func containsOption(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}
