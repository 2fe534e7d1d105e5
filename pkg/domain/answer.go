package domain

import (
	"strconv"
	"time"
)

// AnswerValue is restricted to string, []string, or float64.
// The alias keeps JSON round-trips natural; the helpers below centralize the
// type switches so consumers do not sprinkle assertions.
type AnswerValue = any

// Answer records one collected value, in screen-visitation order.
type Answer struct {
	QuestionID   QuestionID  `json:"question_id"`
	QuestionText string      `json:"question_text"`
	Value        AnswerValue `json:"value"`
	AnsweredAt   time.Time   `json:"answered_at"`
}

// IsEmptyValue reports whether a value counts as "not answered".
func IsEmptyValue(v AnswerValue) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case float64:
		return false
	case int:
		return false
	default:
		return false
	}
}

// StringValue coerces a value to its string form.
func StringValue(v AnswerValue) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// StringsValue coerces a value to a string slice. A bare string becomes a
// single-element slice; []any (as produced by JSON decoding) is flattened.
func StringsValue(v AnswerValue) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case string:
		if val == "" {
			return nil, true
		}
		return []string{val}, true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// NumberValue coerces a value to float64, accepting numeric strings as
// produced by text inputs.
func NumberValue(v AnswerValue) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AnswerFor returns the value recorded for a question id, last write wins.
func AnswerFor(answers []Answer, id QuestionID) (AnswerValue, bool) {
	for i := len(answers) - 1; i >= 0; i-- {
		if answers[i].QuestionID == id {
			return answers[i].Value, true
		}
	}
	return nil, false
}
