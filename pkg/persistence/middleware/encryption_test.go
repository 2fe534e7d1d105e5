package middleware_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/pkg/adapters/memory"
	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/persistence/middleware"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStore()
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(1)})(backing)

	sub := &domain.Submission{
		ID:        "sub-1",
		SessionID: "sess-1",
		FormID:    "f",
		Email:     "a@b.com",
		Status:    domain.StatusInProgress,
		Answers: []domain.Answer{
			{QuestionID: "q_email", Value: "a@b.com"},
			{QuestionID: "q_langs", Value: []string{"go"}},
		},
	}
	require.NoError(t, store.Save(ctx, sub))

	// At rest: only the opaque envelope, no plaintext answers or contacts.
	raw, err := backing.Load(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, raw.Answers, 1)
	assert.Equal(t, domain.QuestionID("__encrypted__"), raw.Answers[0].QuestionID)
	assert.Empty(t, raw.Email)
	assert.Equal(t, domain.StatusInProgress, raw.Status, "status stays visible for monitoring")

	loaded, err := store.Load(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", loaded.Email)
	require.Len(t, loaded.Answers, 2)
	assert.Equal(t, "a@b.com", loaded.Answers[0].Value)

	bySession, err := store.FindBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", bySession.ID)
	assert.Equal(t, "a@b.com", bySession.Email)
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStore()
	oldKey, newKey := testKey(1), testKey(2)

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(backing)
	sub := &domain.Submission{ID: "sub-1", SessionID: "sess-1", Answers: []domain.Answer{{QuestionID: "q", Value: "v"}}}
	require.NoError(t, oldStore.Save(ctx, sub))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(backing)

	loaded, err := rotated.Load(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Answers[0].Value)

	// Without the fallback the old record is unreadable.
	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(backing)
	_, err = strict.Load(ctx, "sub-1")
	assert.Error(t, err)
}

func TestEncryptionRejectsPlaintextRecords(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStore()
	require.NoError(t, backing.Save(ctx, &domain.Submission{
		ID:      "sub-plain",
		Answers: []domain.Answer{{QuestionID: "q", Value: "v"}},
	}))

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: testKey(1)})(backing)
	_, err := store.Load(ctx, "sub-plain")
	assert.Error(t, err)
}

func TestEncryptionShortKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}
