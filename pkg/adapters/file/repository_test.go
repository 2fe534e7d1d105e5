package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/pkg/adapters/file"
	"github.com/espalier-io/espalier/pkg/domain"
)

const onboardingYAML = `
id: onboarding
name: Onboarding
welcome:
  title: Welcome!
  message: A few quick questions.
groups:
  - id: contact
    title: Contact
    questions: [q_email, q_phone]
questions:
  - id: q_email
    kind: email
    text: What's your work email?
    required: true
    auth_identifier: true
    next: q_phone
  - id: q_phone
    kind: phone
    text: And your phone?
    auth_identifier: true
    next: q_team
  - id: q_team
    kind: multiple_choice
    text: Which team?
    settings:
      options: [eng, sales]
    routes:
      - when: {question: q_team, op: eq, value: eng}
        to: q_size
      - when: {question: q_team, op: eq, value: sales}
        end: true
    default: q_size
  - id: q_size
    kind: number_input
    text: Team size?
    settings:
      min: 1
      max: 500
      step: 1
    end: true
`

func writeForm(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRepositoryLoadsForm(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "onboarding.yaml", onboardingYAML)

	repo := file.NewRepository(dir)
	form, err := repo.GetBySlug(context.Background(), "onboarding")
	require.NoError(t, err)

	assert.Equal(t, "onboarding", form.ID)
	assert.Equal(t, "onboarding", form.Slug, "slug comes from the filename")
	require.NotNil(t, form.Welcome)
	assert.Equal(t, "Welcome!", form.Welcome.Title)

	require.Len(t, form.Groups, 1)
	assert.Equal(t, []domain.QuestionID{"q_email", "q_phone"}, form.Groups[0].QuestionIDs)

	require.Len(t, form.Questions, 4)

	email := form.Questions[0]
	assert.Equal(t, domain.KindEmail, email.Kind)
	assert.Equal(t, domain.RoleEmail, email.SemanticRole, "role implied by kind")
	assert.True(t, email.AuthIdentifier)
	require.NotNil(t, email.Transition.Next)
	assert.Equal(t, domain.QuestionID("q_phone"), *email.Transition.Next)

	team := form.Questions[2]
	require.NotNil(t, team.Choice)
	assert.Equal(t, []string{"eng", "sales"}, team.Choice.Options)
	require.Len(t, team.Transition.Routes, 2)
	assert.Nil(t, team.Transition.Routes[1].Target, "end: true route has no target")
	require.NotNil(t, team.Transition.DefaultNext)

	size := form.Questions[3]
	require.NotNil(t, size.Number)
	require.NotNil(t, size.Number.Min)
	assert.Equal(t, 1.0, *size.Number.Min)
	assert.Equal(t, 500.0, *size.Number.Max)
	assert.Nil(t, size.Transition.Next, "end: true means no next")
	assert.False(t, size.Transition.Conditional())
}

func TestRepositoryListSlugs(t *testing.T) {
	dir := t.TempDir()
	writeForm(t, dir, "beta.yml", "id: beta")
	writeForm(t, dir, "alpha.yaml", "id: alpha")
	writeForm(t, dir, "notes.txt", "ignore me")

	repo := file.NewRepository(dir)
	slugs, err := repo.ListSlugs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, slugs)
}

func TestRepositoryUnknownSlug(t *testing.T) {
	repo := file.NewRepository(t.TempDir())
	_, err := repo.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
}

func TestRepositoryRejectsPathTraversal(t *testing.T) {
	repo := file.NewRepository(t.TempDir())
	_, err := repo.GetBySlug(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrFormNotFound)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "name: Nameless"},
		{"unknown kind", "id: f\nquestions:\n  - id: q1\n    kind: dropdown\n    text: Hm"},
		{"settings on text question", "id: f\nquestions:\n  - id: q1\n    kind: short_text\n    text: Hm\n    settings:\n      options: [a]"},
		{"unused settings key", "id: f\nquestions:\n  - id: q1\n    kind: multiple_choice\n    text: Hm\n    settings:\n      optoins: [a]"},
		{"next and routes", "id: f\nquestions:\n  - id: q1\n    kind: short_text\n    text: Hm\n    next: q2\n    routes:\n      - when: {question: q1, op: answered}\n        to: q2"},
		{"route without target", "id: f\nquestions:\n  - id: q1\n    kind: short_text\n    text: Hm\n    routes:\n      - when: {question: q1, op: answered}"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := file.Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}
