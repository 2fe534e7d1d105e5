package ports

import (
	"context"

	"github.com/espalier-io/espalier/pkg/domain"
)

// ContentGenerator produces the text for informational screens. The runtime
// calls it once per informational question id per session and caches the
// result; a cache hit skips the call entirely, including on back/forward
// revisits. Timeouts are the generator's responsibility and must surface as
// ordinary errors so the runtime can fall back to the question's static text.
type ContentGenerator interface {
	Generate(ctx context.Context, formID, prompt string, priorAnswers []domain.Answer) (string, error)
}

// ContentGeneratorFunc adapts a function to the ContentGenerator interface.
type ContentGeneratorFunc func(ctx context.Context, formID, prompt string, priorAnswers []domain.Answer) (string, error)

func (f ContentGeneratorFunc) Generate(ctx context.Context, formID, prompt string, priorAnswers []domain.Answer) (string, error) {
	return f(ctx, formID, prompt, priorAnswers)
}
