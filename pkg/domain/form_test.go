package domain

import (
	"reflect"
	"testing"
)

func testForm() *Form {
	return &Form{
		ID:   "f1",
		Slug: "onboarding",
		Name: "Onboarding",
		Questions: []Question{
			{ID: "q_email", Kind: KindEmail, SemanticRole: RoleEmail, AuthIdentifier: true, Transition: Simple("q_phone")},
			{ID: "q_phone", Kind: KindPhone, SemanticRole: RolePhone, AuthIdentifier: true, Transition: Simple("q_bio")},
			{ID: "q_bio", Kind: KindLongText, Transition: End()},
		},
		Groups: []Group{
			{ID: "g_contact", Title: "Contact", QuestionIDs: []QuestionID{"q_email", "q_phone"}},
		},
	}
}

func TestQuestionIndex(t *testing.T) {
	f := testForm()

	tests := []struct {
		id    QuestionID
		want  int
		found bool
	}{
		{"q_email", 0, true},
		{"q_bio", 2, true},
		{"q_missing", 0, false},
	}

	for _, tt := range tests {
		got, ok := f.QuestionIndex(tt.id)
		if ok != tt.found || (ok && got != tt.want) {
			t.Errorf("QuestionIndex(%s) = (%d, %v), want (%d, %v)", tt.id, got, ok, tt.want, tt.found)
		}
	}
}

func TestGroupFor(t *testing.T) {
	f := testForm()

	if g := f.GroupFor("q_email"); g == nil || g.ID != "g_contact" {
		t.Errorf("GroupFor(q_email) = %v, want g_contact", g)
	}
	if g := f.GroupFor("q_bio"); g != nil {
		t.Errorf("GroupFor(q_bio) = %v, want nil", g)
	}
}

func TestAuthIdentifierQuestions(t *testing.T) {
	f := testForm()
	email, phone := f.AuthIdentifierQuestions()
	if email == nil || email.ID != "q_email" {
		t.Errorf("email identifier = %v, want q_email", email)
	}
	if phone == nil || phone.ID != "q_phone" {
		t.Errorf("phone identifier = %v, want q_phone", phone)
	}

	// A form without contact questions yields nil identifiers.
	bare := &Form{Questions: []Question{{ID: "q", Kind: KindShortText}}}
	email, phone = bare.AuthIdentifierQuestions()
	if email != nil || phone != nil {
		t.Errorf("expected nil identifiers, got %v / %v", email, phone)
	}
}

func TestSingleSelect(t *testing.T) {
	single := Question{Kind: KindMultipleChoice, Choice: &ChoiceSettings{Options: []string{"a", "b"}}}
	multi := Question{Kind: KindMultipleChoice, Choice: &ChoiceSettings{Options: []string{"a", "b"}, MaxSelections: 2}}
	text := Question{Kind: KindShortText}

	if !single.SingleSelect() {
		t.Error("expected single-select for max_selections 0")
	}
	if multi.SingleSelect() {
		t.Error("expected multi-select for max_selections 2")
	}
	if text.SingleSelect() {
		t.Error("short_text is never single-select")
	}
}

func TestIsEmptyValue(t *testing.T) {
	tests := []struct {
		name string
		v    AnswerValue
		want bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"string", "x", false},
		{"empty slice", []string{}, true},
		{"slice", []string{"a"}, false},
		{"zero number", float64(0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmptyValue(tt.v); got != tt.want {
				t.Errorf("IsEmptyValue(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestStringsValue(t *testing.T) {
	got, ok := StringsValue([]any{"a", "b"})
	if !ok || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("StringsValue([]any) = (%v, %v)", got, ok)
	}

	got, ok = StringsValue("solo")
	if !ok || !reflect.DeepEqual(got, []string{"solo"}) {
		t.Errorf("StringsValue(string) = (%v, %v)", got, ok)
	}

	if _, ok := StringsValue(42.0); ok {
		t.Error("StringsValue(float64) should fail")
	}
}

func TestNumberValue(t *testing.T) {
	if n, ok := NumberValue("3.5"); !ok || n != 3.5 {
		t.Errorf("NumberValue(\"3.5\") = (%v, %v)", n, ok)
	}
	if _, ok := NumberValue("abc"); ok {
		t.Error("NumberValue(\"abc\") should fail")
	}
	if n, ok := NumberValue(float64(7)); !ok || n != 7 {
		t.Errorf("NumberValue(7) = (%v, %v)", n, ok)
	}
}

func TestAnswerFor_LastWriteWins(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", Value: "old"},
		{QuestionID: "q2", Value: "other"},
		{QuestionID: "q1", Value: "new"},
	}
	v, ok := AnswerFor(answers, "q1")
	if !ok || v != "new" {
		t.Errorf("AnswerFor(q1) = (%v, %v), want new", v, ok)
	}
	if _, ok := AnswerFor(answers, "q9"); ok {
		t.Error("AnswerFor(q9) should report not found")
	}
}
