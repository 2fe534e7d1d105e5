package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

const mask = "***"

type piiMiddleware struct {
	next     ports.SubmissionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before saving, the values
// of answers whose question id matches one of the patterns. The submission's
// extracted contact fields are always masked. The in-memory record handed in
// by the caller is never touched.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		compiled, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("mask pattern %q: %w", p, err)
		}
		patterns[i] = compiled
	}
	return func(next ports.SubmissionStore) ports.SubmissionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sub *domain.Submission) error {
	cloned := sub.Clone()
	for i := range cloned.Answers {
		if m.matches(string(cloned.Answers[i].QuestionID)) {
			cloned.Answers[i].Value = mask
		}
	}
	if cloned.Email != "" {
		cloned.Email = mask
	}
	if cloned.Phone != "" {
		cloned.Phone = mask
	}
	return m.next.Save(ctx, cloned)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Load(ctx context.Context, submissionID string) (*domain.Submission, error) {
	return m.next.Load(ctx, submissionID)
}

func (m *piiMiddleware) FindBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	return m.next.FindBySession(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, submissionID string) error {
	return m.next.Delete(ctx, submissionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
