package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

const envelopeKey domain.QuestionID = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SubmissionStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores submissions as
// AES-GCM envelopes. The stored record keeps only the fields needed for
// indexing and monitoring (id, session id, form id, status, timestamps); the
// answers and contact fields live inside the ciphertext.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SubmissionStore) ports.SubmissionStore {
		return &encryptionMiddleware{next: next, config: config}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, sub *domain.Submission) error {
	plainText, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt submission: %w", err)
	}

	envelope := &domain.Submission{
		ID:        sub.ID,
		SessionID: sub.SessionID,
		FormID:    sub.FormID,
		Status:    sub.Status,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
		Answers: []domain.Answer{{
			QuestionID: envelopeKey,
			Value:      base64.StdEncoding.EncodeToString(ciphertext),
		}},
	}
	return m.next.Save(ctx, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, submissionID string) (*domain.Submission, error) {
	envelope, err := m.next.Load(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) FindBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	envelope, err := m.next.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) open(envelope *domain.Submission) (*domain.Submission, error) {
	if len(envelope.Answers) != 1 || envelope.Answers[0].QuestionID != envelopeKey {
		// Fail secure: with encryption configured, a plaintext record is
		// treated as corrupt rather than passed through.
		return nil, errors.New("submission is missing encrypted data envelope")
	}
	encoded, ok := domain.StringValue(envelope.Answers[0].Value)
	if !ok {
		return nil, errors.New("encrypted envelope is not a string")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt submission: %w", err)
	}

	var sub domain.Submission
	if err := json.Unmarshal(plainText, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted submission: %w", err)
	}
	return &sub, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, submissionID string) error {
	return m.next.Delete(ctx, submissionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
