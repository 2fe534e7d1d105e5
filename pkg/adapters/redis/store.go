// Package redis implements the SubmissionStore and DistributedLocker ports
// on Redis, for multi-instance deployments where sessions may resume on a
// different host than the one that created them.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/espalier-io/espalier/pkg/domain"
)

// Store implements ports.SubmissionStore using Redis. Submissions are stored
// as JSON under one key per id, with a session-to-id mapping key and a ZSET
// index for listing. All three writes share a pipeline.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for submissions. Zero means keep forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "espalier:submission:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying connection so other adapters (the locker)
// can share it.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(submissionID string) string {
	return s.prefix + submissionID
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the submission, updates the session mapping and the index.
func (s *Store) Save(ctx context.Context, sub *domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(sub.ID), data, s.ttl)
	if sub.SessionID != "" {
		pipe.Set(ctx, s.sessionKey(sub.SessionID), sub.ID, s.ttl)
	}

	// Index score is the expiry instant so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sub.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a submission by id.
func (s *Store) Load(ctx context.Context, submissionID string) (*domain.Submission, error) {
	val, err := s.client.Get(ctx, s.key(submissionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var sub domain.Submission
	if err := json.Unmarshal([]byte(val), &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission: %w", err)
	}
	return &sub, nil
}

// FindBySession follows the session mapping to the submission.
func (s *Store) FindBySession(ctx context.Context, sessionID string) (*domain.Submission, error) {
	id, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get session mapping: %w", err)
	}
	return s.Load(ctx, id)
}

// Delete removes the submission, its session mapping and its index entry.
func (s *Store) Delete(ctx context.Context, submissionID string) error {
	sub, err := s.Load(ctx, submissionID)
	if err != nil {
		if err == domain.ErrSubmissionNotFound {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(submissionID))
	if sub.SessionID != "" {
		pipe.Del(ctx, s.sessionKey(sub.SessionID))
	}
	pipe.ZRem(ctx, s.indexKey(), submissionID)

	_, err = pipe.Exec(ctx)
	return err
}

// List returns stored submission ids, lazily pruning expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired submissions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
