package memory

import (
	"context"
	"strconv"
	"strings"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Generator is a ContentGenerator that expands {{question_id}} placeholders
// in the prompt with the accumulated answer values. It gives informational
// screens answer-aware text without any external service.
type Generator struct{}

// NewGenerator creates the template generator.
func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Generate(ctx context.Context, formID, prompt string, priorAnswers []domain.Answer) (string, error) {
	out := prompt
	for _, a := range priorAnswers {
		placeholder := "{{" + string(a.QuestionID) + "}}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, renderValue(a.Value))
	}
	return out, nil
}

func renderValue(v domain.AnswerValue) string {
	if s, ok := domain.StringValue(v); ok {
		return s
	}
	if items, ok := domain.StringsValue(v); ok {
		return strings.Join(items, ", ")
	}
	if n, ok := domain.NumberValue(v); ok {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return ""
}
