package runtime

import (
	"context"
	"time"

	"github.com/espalier-io/espalier/pkg/domain"
)

// ScreenQuestion pairs a question with its staged value and, for
// informational questions, the generated content.
type ScreenQuestion struct {
	Question domain.Question
	Value    domain.AnswerValue
	Content  string
}

// Snapshot is a render-ready view of the session at one instant. It carries
// everything a host (terminal runner, HTTP adapter) needs without reaching
// into the controller's state.
type Snapshot struct {
	SessionID string
	FormID    string
	FormName  string

	Index        int
	ScreenNumber int
	TotalScreens int
	Progress     float64

	GroupID    string
	GroupTitle string
	Questions  []ScreenQuestion

	ValidationError *domain.ValidationError
	Completed       bool
	CanGoBack       bool

	AutoAdvance      bool
	AutoAdvanceDelay time.Duration
}

// Snapshot builds the current view. Informational content is generated on
// first render of each question id and cached for the session; generation
// failures degrade to the question's static text.
func (c *Controller) Snapshot(ctx context.Context) *Snapshot {
	c.mu.Lock()
	idx := c.currentLocked()
	screen := c.indexer.ScreenQuestions(idx)
	snap := &Snapshot{
		SessionID:        c.sessionID,
		FormID:           c.form.ID,
		FormName:         c.form.Name,
		Index:            idx,
		ScreenNumber:     c.indexer.NumberOf(idx),
		TotalScreens:     c.indexer.Total(),
		Progress:         c.indexer.Progress(idx, c.interacted),
		ValidationError:  c.validationErr,
		Completed:        c.completed,
		CanGoBack:        len(c.history) > 1,
		AutoAdvance:      c.autoAdvanceEligibleLocked(screen),
		AutoAdvanceDelay: c.autoAdvanceDelay,
	}
	if c.completed {
		snap.Progress = 1
	}
	if g := c.form.GroupFor(c.form.Questions[idx].ID); g != nil {
		snap.GroupID = g.ID
		snap.GroupTitle = g.Title
	}

	buffered := make(map[domain.QuestionID]domain.AnswerValue, len(c.buffer))
	for k, v := range c.buffer {
		buffered[k] = v
	}
	prior := c.answers.All()
	c.mu.Unlock()

	snap.Questions = make([]ScreenQuestion, 0, len(screen))
	for i := range screen {
		q := screen[i]
		sq := ScreenQuestion{Question: q, Value: buffered[q.ID]}
		if q.Kind == domain.KindInformational {
			sq.Content = c.informationalContent(ctx, &q, prior)
		}
		snap.Questions = append(snap.Questions, sq)
	}
	return snap
}

// autoAdvanceEligibleLocked reports whether the host should fire Next
// automatically: a lone single-select choice screen with a staged value,
// unless the screen was just reached via Back.
func (c *Controller) autoAdvanceEligibleLocked(screen []domain.Question) bool {
	if c.completed || c.suppressAutoAdvance || len(screen) != 1 {
		return false
	}
	q := &screen[0]
	return q.SingleSelect() && !domain.IsEmptyValue(c.buffer[q.ID])
}

// informationalContent generates (once per question id per session) the
// text for an informational screen. Failures fall back to the static text
// and are cached too, so the generator is invoked at most once per id.
func (c *Controller) informationalContent(ctx context.Context, q *domain.Question, prior []domain.Answer) string {
	c.mu.Lock()
	if cached, ok := c.content[q.ID]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	text := q.Text
	if c.generator != nil {
		prompt := q.Prompt
		if prompt == "" {
			prompt = q.Text
		}
		generated, err := c.generator.Generate(ctx, c.form.ID, prompt, prior)
		if err != nil {
			c.logger.Warn("content generation failed, using static text",
				"question_id", string(q.ID), "err", err)
		} else if generated != "" {
			text = generated
		}
	}

	c.mu.Lock()
	c.content[q.ID] = text
	c.mu.Unlock()
	return text
}
