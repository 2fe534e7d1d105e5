// Package persistence bridges the navigation controller's incremental sync
// contract onto a SubmissionStore, and hosts the store middleware (PII
// masking, encryption at rest) in its middleware subpackage.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

// StoreSync implements ports.SubmissionSync over a SubmissionStore using
// load-modify-save. Updates fully replace the stored record, which keeps the
// adapter last-write-wins safe without version counters.
type StoreSync struct {
	store ports.SubmissionStore
	now   func() time.Time
}

// Option configures a StoreSync.
type Option func(*StoreSync)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *StoreSync) { s.now = now }
}

// NewStoreSync wraps a SubmissionStore.
func NewStoreSync(store ports.SubmissionStore, opts ...Option) *StoreSync {
	s := &StoreSync{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StoreSync) Create(ctx context.Context, sessionID, formID string, answers []domain.Answer, ids domain.Identifiers) (string, error) {
	// Guard against a retried create after a lost response: the session may
	// already own a submission.
	if existing, err := s.store.FindBySession(ctx, sessionID); err == nil {
		return existing.ID, nil
	}

	now := s.now().UTC()
	sub := &domain.Submission{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		FormID:    formID,
		Answers:   answers,
		Status:    domain.StatusInProgress,
		Email:     ids.Email,
		Phone:     ids.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(answers) > 0 {
		last := answers[len(answers)-1]
		sub.CurrentQuestionID = last.QuestionID
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}
	return sub.ID, nil
}

func (s *StoreSync) Update(ctx context.Context, submissionID string, answers []domain.Answer, currentID domain.QuestionID, currentIndex int, ids domain.Identifiers) error {
	sub, err := s.store.Load(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	sub.Answers = answers
	sub.CurrentQuestionID = currentID
	sub.CurrentQuestionIndex = currentIndex
	sub.Email = ids.Email
	sub.Phone = ids.Phone
	sub.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sub); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

func (s *StoreSync) Complete(ctx context.Context, submissionID string) error {
	sub, err := s.store.Load(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}
	sub.Status = domain.StatusCompleted
	sub.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, sub); err != nil {
		return fmt.Errorf("complete submission: %w", err)
	}
	return nil
}
