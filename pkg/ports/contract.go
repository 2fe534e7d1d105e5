package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/pkg/domain"
)

// RunSubmissionStoreContract runs a suite of tests to verify that a
// SubmissionStore implementation adheres to the defined interface contract.
func RunSubmissionStoreContract(t *testing.T, store SubmissionStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000")

	newSubmission := func(id, sessionID string) *domain.Submission {
		return &domain.Submission{
			ID:                id,
			SessionID:         sessionID,
			FormID:            "form-contract",
			Status:            domain.StatusInProgress,
			CurrentQuestionID: "q1",
			Answers: []domain.Answer{
				{QuestionID: "q1", QuestionText: "Email?", Value: "a@b.com", AnsweredAt: time.Now().UTC()},
			},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		sub := newSubmission("sub-"+suffix, "sess-"+suffix)
		require.NoError(t, store.Save(ctx, sub))
		defer func() { _ = store.Delete(ctx, sub.ID) }()

		loaded, err := store.Load(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.SessionID, loaded.SessionID)
		assert.Equal(t, sub.Status, loaded.Status)
		require.Len(t, loaded.Answers, 1)
		assert.Equal(t, domain.QuestionID("q1"), loaded.Answers[0].QuestionID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+suffix)
		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})

	t.Run("FindBySession", func(t *testing.T) {
		sub := newSubmission("sub-fbs-"+suffix, "sess-fbs-"+suffix)
		require.NoError(t, store.Save(ctx, sub))
		defer func() { _ = store.Delete(ctx, sub.ID) }()

		found, err := store.FindBySession(ctx, sub.SessionID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, found.ID)

		_, err = store.FindBySession(ctx, "no-such-session-"+suffix)
		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})

	t.Run("Save Is Last Write Wins", func(t *testing.T) {
		sub := newSubmission("sub-lww-"+suffix, "sess-lww-"+suffix)
		require.NoError(t, store.Save(ctx, sub))
		defer func() { _ = store.Delete(ctx, sub.ID) }()

		sub.Status = domain.StatusCompleted
		sub.Answers = append(sub.Answers, domain.Answer{QuestionID: "q2", Value: "yes"})
		require.NoError(t, store.Save(ctx, sub))

		loaded, err := store.Load(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		assert.Len(t, loaded.Answers, 2)
	})

	t.Run("Delete", func(t *testing.T) {
		sub := newSubmission("sub-del-"+suffix, "sess-del-"+suffix)
		require.NoError(t, store.Save(ctx, sub))
		require.NoError(t, store.Delete(ctx, sub.ID))

		_, err := store.Load(ctx, sub.ID)
		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
		_, err = store.FindBySession(ctx, sub.SessionID)
		assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		a := newSubmission("sub-l1-"+suffix, "sess-l1-"+suffix)
		b := newSubmission("sub-l2-"+suffix, "sess-l2-"+suffix)
		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))
		defer func() {
			_ = store.Delete(ctx, a.ID)
			_ = store.Delete(ctx, b.ID)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, a.ID)
		assert.Contains(t, ids, b.ID)
	})
}
