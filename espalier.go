// Package espalier is a runtime for dynamic, branching forms: declarative
// definitions, screen-at-a-time navigation with validation, conditional
// routing, exact back-navigation restoration, and lazy incremental
// persistence of submissions.
package espalier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/espalier-io/espalier/internal/runtime"
	"github.com/espalier-io/espalier/internal/validator"
	"github.com/espalier-io/espalier/pkg/adapters/memory"
	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/persistence"
	"github.com/espalier-io/espalier/pkg/ports"
	"github.com/espalier-io/espalier/pkg/session"
)

// Snapshot is the render-ready view of a session, re-exported so hosts only
// need the root package.
type Snapshot = runtime.Snapshot

// ScreenQuestion pairs a question with its staged value on a snapshot.
type ScreenQuestion = runtime.ScreenQuestion

// Sentinel errors re-exported for consumers that only import the root
// package.
var (
	ErrFormNotFound      = domain.ErrFormNotFound
	ErrSessionNotFound   = domain.ErrSessionNotFound
	ErrOperationInFlight = domain.ErrOperationInFlight
	ErrSessionCompleted  = domain.ErrSessionCompleted
	ErrNoHistory         = domain.ErrNoHistory
)

// Engine is the high-level entry point. It resolves forms, lints them on
// first use, and owns the live sessions.
type Engine struct {
	repo      ports.FormRepository
	evaluator ports.RouteEvaluator
	syncer    ports.SubmissionSync
	generator ports.ContentGenerator
	analytics ports.AnalyticsSink
	locker    ports.DistributedLocker
	logger    *slog.Logger

	sessions *session.Manager

	autoAdvanceDelay time.Duration
	idleTimeout      time.Duration
	skipLint         bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithFormRepository injects the form source.
func WithFormRepository(repo ports.FormRepository) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithForms serves the given in-memory forms, keyed by slug.
func WithForms(forms ...*domain.Form) Option {
	return func(e *Engine) {
		e.repo = memory.NewRepository(forms...)
	}
}

// WithRouteEvaluator replaces the reference evaluator.
func WithRouteEvaluator(eval ports.RouteEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = eval
	}
}

// WithSubmissionStore persists submissions to the store via the built-in
// load-modify-save sync adapter.
func WithSubmissionStore(store ports.SubmissionStore) Option {
	return func(e *Engine) {
		e.syncer = persistence.NewStoreSync(store)
	}
}

// WithSubmissionSync injects a custom persistence contract, bypassing the
// store adapter (e.g. a remote API client).
func WithSubmissionSync(sync ports.SubmissionSync) Option {
	return func(e *Engine) {
		e.syncer = sync
	}
}

// WithContentGenerator enables generated text on informational screens.
func WithContentGenerator(gen ports.ContentGenerator) Option {
	return func(e *Engine) {
		e.generator = gen
	}
}

// WithAnalytics wires an analytics sink for lifecycle events.
func WithAnalytics(sink ports.AnalyticsSink) Option {
	return func(e *Engine) {
		e.analytics = sink
	}
}

// WithDistributedLocker extends session locking across instances.
func WithDistributedLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithAutoAdvanceDelay sets the pause hosts should apply before honoring an
// auto-advance snapshot.
func WithAutoAdvanceDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.autoAdvanceDelay = d
	}
}

// WithIdleTimeout sets how long a session may sit untouched before it is
// considered abandoned. Zero disables abandonment tracking.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.idleTimeout = d
	}
}

// WithoutLint skips form linting on session start. Meant for tests that
// exercise deliberately odd forms.
func WithoutLint() Option {
	return func(e *Engine) {
		e.skipLint = true
	}
}

// New initializes an Engine. Without options it serves nothing: at minimum
// wire a form source via WithFormRepository or WithForms.
func New(opts ...Option) *Engine {
	e := &Engine{
		autoAdvanceDelay: 750 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.repo == nil {
		e.repo = memory.NewRepository()
	}
	if e.evaluator == nil {
		e.evaluator = memory.NewEvaluator()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(sessionOpts...)

	return e
}

// Forms lists the available form slugs.
func (e *Engine) Forms(ctx context.Context) ([]string, error) {
	return e.repo.ListSlugs(ctx)
}

// Form resolves a slug to its definition.
func (e *Engine) Form(ctx context.Context, slug string) (*domain.Form, error) {
	return e.repo.GetBySlug(ctx, slug)
}

// StartSession resolves the slug, lints the form, and spins up a live
// session. An empty sessionID gets a generated one. The returned session has
// already emitted its form-viewed event and renders the first screen.
func (e *Engine) StartSession(ctx context.Context, slug, sessionID string) (*Session, error) {
	form, err := e.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !e.skipLint {
		if err := validator.LintForm(form).Err(); err != nil {
			return nil, fmt.Errorf("form %q: %w", slug, err)
		}
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctrl := runtime.NewController(runtime.Config{
		Form:             form,
		SessionID:        sessionID,
		Evaluator:        e.evaluator,
		Syncer:           e.syncer,
		Generator:        e.generator,
		Analytics:        e.analytics,
		Logger:           e.logger,
		AutoAdvanceDelay: e.autoAdvanceDelay,
		IdleTimeout:      e.idleTimeout,
	})
	e.sessions.Put(sessionID, ctrl)
	ctrl.Start(ctx)

	return &Session{engine: e, ctrl: ctrl}, nil
}

// Session returns a handle to a live session.
func (e *Engine) Session(sessionID string) (*Session, error) {
	ctrl, err := e.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return &Session{engine: e, ctrl: ctrl}, nil
}

// EndSession drops a live session. In-progress submissions stay persisted;
// ending an unknown session is a no-op.
func (e *Engine) EndSession(sessionID string) {
	e.sessions.Remove(sessionID)
}

// Sessions lists the live session ids.
func (e *Engine) Sessions() []string {
	return e.sessions.List()
}

// Session is a handle to one live form session.
type Session struct {
	engine *Engine
	ctrl   *runtime.Controller
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.ctrl.SessionID()
}

// Form returns the definition this session runs.
func (s *Session) Form() *domain.Form {
	return s.ctrl.Form()
}

// Snapshot renders the current screen.
func (s *Session) Snapshot(ctx context.Context) *runtime.Snapshot {
	return s.ctrl.Snapshot(ctx)
}

// SetValue stages an answer for a question on the current screen.
func (s *Session) SetValue(ctx context.Context, id domain.QuestionID, value domain.AnswerValue) error {
	return s.ctrl.SetValue(ctx, id, value)
}

// Next validates the current screen and advances. A Next racing another
// Next or Back on the same session fails with ErrOperationInFlight rather
// than queueing; hosts that need cross-instance serialization instead wrap
// whole operations in WithLock.
func (s *Session) Next(ctx context.Context) (*runtime.Snapshot, error) {
	return s.ctrl.Next(ctx)
}

// Back retreats to the previously visited screen.
func (s *Session) Back(ctx context.Context) (*runtime.Snapshot, error) {
	return s.ctrl.Back(ctx)
}

// WithLock runs fn while holding this session's lock, including the
// distributed lock when one is configured.
func (s *Session) WithLock(ctx context.Context, fn func(context.Context) error) error {
	return s.engine.sessions.WithLock(ctx, s.ID(), fn)
}
