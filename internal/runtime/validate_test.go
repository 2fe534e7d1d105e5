package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/internal/runtime"
	"github.com/espalier-io/espalier/pkg/domain"
)

func ptr(v float64) *float64 { return &v }

func TestValidateQuestion(t *testing.T) {
	choice := &domain.Question{
		ID: "q", Kind: domain.KindMultipleChoice,
		Choice: &domain.ChoiceSettings{Options: []string{"a", "b", "c"}, MaxSelections: 2},
	}
	single := &domain.Question{
		ID: "q", Kind: domain.KindMultipleChoice,
		Choice: &domain.ChoiceSettings{Options: []string{"a", "b"}},
	}
	number := &domain.Question{
		ID: "q", Kind: domain.KindNumber,
		Number: &domain.NumberSettings{Min: ptr(0), Max: ptr(100), Step: 5},
	}
	likert := &domain.Question{
		ID: "q", Kind: domain.KindLikert,
		Likert: &domain.LikertSettings{Scale: 7},
	}

	tests := []struct {
		name  string
		q     *domain.Question
		value domain.AnswerValue
		valid bool
	}{
		{"optional empty", &domain.Question{ID: "q", Kind: domain.KindShortText}, nil, true},
		{"required empty", &domain.Question{ID: "q", Kind: domain.KindShortText, Required: true}, "", false},
		{"required empty slice", &domain.Question{ID: "q", Kind: domain.KindMultipleChoice, Required: true, Choice: &domain.ChoiceSettings{Options: []string{"a"}}}, []string{}, false},
		{"required informational never blocks", &domain.Question{ID: "q", Kind: domain.KindInformational, Required: true}, nil, true},

		{"short text", &domain.Question{ID: "q", Kind: domain.KindShortText}, "hi", true},
		{"short text wrong type", &domain.Question{ID: "q", Kind: domain.KindShortText}, 3.0, false},

		{"email ok", &domain.Question{ID: "q", Kind: domain.KindEmail}, "a@b.com", true},
		{"email padded", &domain.Question{ID: "q", Kind: domain.KindEmail}, "  a@b.com  ", true},
		{"email bad", &domain.Question{ID: "q", Kind: domain.KindEmail}, "not-an-email", false},
		{"email spaces", &domain.Question{ID: "q", Kind: domain.KindEmail}, "a b@c.com", false},

		{"phone ok", &domain.Question{ID: "q", Kind: domain.KindPhone}, "+1 (555) 010-0123", true},
		{"phone bad", &domain.Question{ID: "q", Kind: domain.KindPhone}, "call me", false},

		{"number ok", number, 25.0, true},
		{"number string coerced", number, "25", true},
		{"number below min", number, -5.0, false},
		{"number above max", number, 250.0, false},
		{"number off step", number, 27.0, false},
		{"number not numeric", number, "lots", false},

		{"choice ok", choice, []string{"a", "c"}, true},
		{"choice single string", single, "b", true},
		{"choice too many", choice, []string{"a", "b", "c"}, false},
		{"choice unknown option", choice, []string{"z"}, false},
		{"choice single select max defaults to one", single, []string{"a", "b"}, false},

		{"likert ok", likert, 7.0, true},
		{"likert below", likert, 0.0, false},
		{"likert above scale", likert, 8.0, false},
		{"likert fractional", likert, 3.5, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verr := runtime.ValidateQuestion(tc.q, tc.value)
			if tc.valid {
				assert.Nil(t, verr)
			} else {
				require.NotNil(t, verr)
				assert.Equal(t, tc.q.ID, verr.QuestionID)
				assert.NotEmpty(t, verr.Message)
			}
		})
	}
}

func TestValidateScreenFirstFailureWins(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Kind: domain.KindShortText, Required: true},
		{ID: "q2", Kind: domain.KindEmail, Required: true},
	}

	verr := runtime.ValidateScreen(questions, map[domain.QuestionID]domain.AnswerValue{
		"q2": "broken",
	})
	require.NotNil(t, verr)
	assert.Equal(t, domain.QuestionID("q1"), verr.QuestionID, "leftmost failure is reported")

	verr = runtime.ValidateScreen(questions, map[domain.QuestionID]domain.AnswerValue{
		"q1": "hi",
		"q2": "broken",
	})
	require.NotNil(t, verr)
	assert.Equal(t, domain.QuestionID("q2"), verr.QuestionID)

	verr = runtime.ValidateScreen(questions, map[domain.QuestionID]domain.AnswerValue{
		"q1": "hi",
		"q2": "a@b.com",
	})
	assert.Nil(t, verr)
}
