package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

// Config wires a Controller's collaborators. Form and SessionID are
// mandatory; every collaborator is optional and degrades to a no-op.
type Config struct {
	Form      *domain.Form
	SessionID string

	Evaluator ports.RouteEvaluator
	Syncer    ports.SubmissionSync
	Generator ports.ContentGenerator
	Analytics ports.AnalyticsSink
	Logger    *slog.Logger

	// AutoAdvanceDelay is the pause hosts should honor before firing the
	// automatic Next on an answered single-select screen.
	AutoAdvanceDelay time.Duration

	// IdleTimeout arms the abandonment watcher; zero disables it.
	IdleTimeout time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller owns the navigation state machine for one fill-out session:
// the current index, the history stack, the per-screen answer buffer, the
// validation state, and the advance/retreat transitions.
//
// All state transitions are triggered by discrete calls and run to
// completion; a single-active-operation guard rejects re-entrant Next/Back
// calls with domain.ErrOperationInFlight while one is in flight.
type Controller struct {
	form      *domain.Form
	sessionID string
	indexer   *Indexer
	resolver  *Resolver
	answers   *Store

	syncer    ports.SubmissionSync
	generator ports.ContentGenerator
	analytics ports.AnalyticsSink
	logger    *slog.Logger

	autoAdvanceDelay time.Duration
	idleTimeout      time.Duration
	now              func() time.Time

	mu   sync.Mutex
	busy bool

	history []int
	// marks[i] is the answer-log length at the moment history[i] was
	// entered, i.e. before that screen contributed any answers. Advancing
	// truncates to the current mark before appending, which keeps a
	// re-advance after Back from duplicating the screen's entries.
	marks []int
	// replay holds the indices popped by Back, newest last. A forward pass
	// across a previously resolved boundary replays this recorded trail
	// instead of re-invoking the route evaluator; an explicit value change
	// discards it.
	replay []int

	buffer              map[domain.QuestionID]domain.AnswerValue
	validationErr       *domain.ValidationError
	suppressAutoAdvance bool
	interacted          bool
	completed           bool
	abandoned           bool

	submissionID string
	identifiers  domain.Identifiers
	content      map[domain.QuestionID]string

	idleTimer *time.Timer
}

// NewController creates the state machine for one session, positioned at
// the form's first question with history seeded accordingly.
func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		form:             cfg.Form,
		sessionID:        cfg.SessionID,
		indexer:          NewIndexer(cfg.Form),
		resolver:         NewResolver(cfg.Form, cfg.Evaluator, logger),
		answers:          NewStore(),
		syncer:           cfg.Syncer,
		generator:        cfg.Generator,
		analytics:        cfg.Analytics,
		logger:           logger.With("session_id", cfg.SessionID, "form_id", cfg.Form.ID),
		autoAdvanceDelay: cfg.AutoAdvanceDelay,
		idleTimeout:      cfg.IdleTimeout,
		now:              now,
		history:          []int{0},
		marks:            []int{0},
		buffer:           make(map[domain.QuestionID]domain.AnswerValue),
		content:          make(map[domain.QuestionID]string),
	}

	if c.idleTimeout > 0 {
		c.idleTimer = time.AfterFunc(c.idleTimeout, c.fireAbandoned)
	}
	return c
}

// Start emits the session-opening analytics and returns the first snapshot.
func (c *Controller) Start(ctx context.Context) *Snapshot {
	c.emit(ctx, domain.EventFormViewed, nil)
	c.mu.Lock()
	idx := c.currentLocked()
	c.mu.Unlock()
	c.emit(ctx, domain.EventQuestionViewed, map[string]any{
		domain.PayloadQuestionID: string(c.form.Questions[idx].ID),
		domain.PayloadScreen:     c.indexer.NumberOf(idx),
	})
	return c.Snapshot(ctx)
}

// SessionID returns the session this controller drives.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Form returns the immutable form definition.
func (c *Controller) Form() *domain.Form {
	return c.form
}

// SetValue stages a value for a question on the current screen. A changed
// value clears the auto-advance suppression and discards the recorded
// forward trail, forcing fresh route evaluation on the next advance.
func (c *Controller) SetValue(ctx context.Context, id domain.QuestionID, value domain.AnswerValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.completed {
		return domain.ErrSessionCompleted
	}
	c.touchLocked()

	screen := c.indexer.ScreenQuestions(c.currentLocked())
	onScreen := false
	for i := range screen {
		if screen[i].ID == id {
			onScreen = true
			break
		}
	}
	if !onScreen {
		return &domain.ValidationError{QuestionID: id, Message: "question is not on the current screen"}
	}

	if !valueEqual(c.buffer[id], value) {
		c.buffer[id] = value
		c.suppressAutoAdvance = false
		c.replay = nil
	}
	c.validationErr = nil
	c.interacted = c.anyNonEmptyLocked()
	return nil
}

// Next validates the current screen, records its answers, resolves the
// transition, and advances. A validation failure keeps the machine in place
// and is reported through the returned snapshot, not the error.
func (c *Controller) Next(ctx context.Context) (*Snapshot, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return nil, domain.ErrSessionCompleted
	}
	c.touchLocked()

	idx := c.currentLocked()
	screen := c.indexer.ScreenQuestions(idx)

	if verr := ValidateScreen(screen, c.buffer); verr != nil {
		c.validationErr = verr
		c.mu.Unlock()
		return c.Snapshot(ctx), nil
	}

	// Record this screen's answers. Truncating to the screen's entry mark
	// first replaces any entries left behind by an earlier pass.
	answeredAt := c.now().UTC()
	var collected []domain.Answer
	for i := range screen {
		q := &screen[i]
		if !q.Interactive() {
			continue
		}
		v := c.buffer[q.ID]
		if domain.IsEmptyValue(v) {
			continue
		}
		collected = append(collected, domain.Answer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Value:        v,
			AnsweredAt:   answeredAt,
		})
	}
	c.answers.TruncateTo(c.marks[len(c.marks)-1])
	c.answers.Append(collected...)
	allAnswers := c.answers.All()

	c.refreshIdentifiersLocked(screen)
	ids := c.identifiers
	needCreate := c.submissionID == "" && len(collected) > 0

	var res Resolution
	replayed := false
	if n := len(c.replay); n > 0 {
		res = Resolution{NextIndex: c.replay[n-1]}
		c.replay = c.replay[:n-1]
		replayed = true
	}
	last := c.indexer.LastOfScreen(idx)
	c.mu.Unlock()

	if needCreate {
		c.createSubmission(ctx, allAnswers, ids)
	}

	if !replayed {
		res = c.resolver.Resolve(ctx, last, idx, allAnswers)
	}

	for _, a := range collected {
		c.emit(ctx, domain.EventQuestionAnswered, map[string]any{
			domain.PayloadQuestionID: string(a.QuestionID),
		})
	}

	if res.End {
		return c.complete(ctx, allAnswers, ids), nil
	}

	c.mu.Lock()
	c.history = append(c.history, res.NextIndex)
	c.marks = append(c.marks, c.answers.Len())
	c.buffer = make(map[domain.QuestionID]domain.AnswerValue)
	c.validationErr = nil
	c.suppressAutoAdvance = false
	c.interacted = false
	subID := c.submissionID
	nextIdx := res.NextIndex
	c.mu.Unlock()

	if subID != "" {
		c.syncUpdate(ctx, subID, allAnswers, nextIdx, ids)
	}

	progressPayload := map[string]any{
		domain.PayloadQuestionID: string(c.form.Questions[nextIdx].ID),
		domain.PayloadScreen:     c.indexer.NumberOf(nextIdx),
	}
	if res.EvaluationTime > 0 {
		progressPayload[domain.PayloadDuration] = res.EvaluationTime.Seconds()
	}
	c.emit(ctx, domain.EventQuestionProgressed, progressPayload)
	c.emit(ctx, domain.EventQuestionViewed, map[string]any{
		domain.PayloadQuestionID: string(c.form.Questions[nextIdx].ID),
		domain.PayloadScreen:     c.indexer.NumberOf(nextIdx),
	})

	return c.Snapshot(ctx), nil
}

// Back pops the history stack, restores the target screen's answer buffer
// from the log without removing its entries, and truncates everything
// recorded after the target. Auto-advance stays suppressed on the restored
// screen until the user changes a value.
func (c *Controller) Back(ctx context.Context) (*Snapshot, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return nil, domain.ErrSessionCompleted
	}
	c.touchLocked()

	if len(c.history) <= 1 {
		c.mu.Unlock()
		return nil, domain.ErrNoHistory
	}

	d := len(c.history) - 1
	popped := c.history[d]
	poppedMark := c.marks[d]
	c.history = c.history[:d]
	c.marks = c.marks[:d]
	c.replay = append(c.replay, popped)

	c.answers.TruncateTo(poppedMark)

	target := c.currentLocked()
	screen := c.indexer.ScreenQuestions(target)
	screenIDs := make([]domain.QuestionID, len(screen))
	for i := range screen {
		screenIDs[i] = screen[i].ID
	}
	c.buffer = c.answers.ValuesFor(screenIDs)
	c.suppressAutoAdvance = true
	c.validationErr = nil
	c.interacted = c.anyNonEmptyLocked()

	allAnswers := c.answers.All()
	subID := c.submissionID
	ids := c.identifiers
	c.mu.Unlock()

	if subID != "" {
		c.syncUpdate(ctx, subID, allAnswers, target, ids)
	}

	c.emit(ctx, domain.EventQuestionBacktracked, map[string]any{
		domain.PayloadQuestionID: string(c.form.Questions[target].ID),
		domain.PayloadScreen:     c.indexer.NumberOf(target),
	})

	return c.Snapshot(ctx), nil
}

// Close stops the abandonment watcher. It does not emit any event.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

// complete marks the session finished and drives the best-effort final
// persistence. The Completing state is terminal.
func (c *Controller) complete(ctx context.Context, answers []domain.Answer, ids domain.Identifiers) *Snapshot {
	c.mu.Lock()
	c.completed = true
	c.validationErr = nil
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	subID := c.submissionID
	idx := c.currentLocked()
	c.mu.Unlock()

	if subID != "" {
		c.syncUpdate(ctx, subID, answers, idx, ids)
		if err := c.syncer.Complete(ctx, subID); err != nil {
			c.logger.Warn("submission completion failed", "submission_id", subID, "err", err)
		}
	}

	c.emit(ctx, domain.EventFormCompleted, nil)
	return c.Snapshot(ctx)
}

// createSubmission performs the lazy create. A form without designated
// email/phone identifier questions is a configuration defect: submission
// creation is skipped and logged, but the session continues.
func (c *Controller) createSubmission(ctx context.Context, answers []domain.Answer, ids domain.Identifiers) {
	if c.syncer == nil {
		return
	}

	email, phone := c.form.AuthIdentifierQuestions()
	if email == nil || phone == nil {
		var missing []domain.SemanticRole
		if email == nil {
			missing = append(missing, domain.RoleEmail)
		}
		if phone == nil {
			missing = append(missing, domain.RolePhone)
		}
		err := &domain.MissingAuthIdentifierError{FormID: c.form.ID, Missing: missing}
		c.logger.Error("cannot create submission", "err", err)
		return
	}

	subID, err := c.syncer.Create(ctx, c.sessionID, c.form.ID, answers, ids)
	if err != nil {
		c.logger.Warn("submission creation failed, will retry on next advance", "err", err)
		return
	}

	c.mu.Lock()
	c.submissionID = subID
	c.mu.Unlock()
}

func (c *Controller) syncUpdate(ctx context.Context, subID string, answers []domain.Answer, index int, ids domain.Identifiers) {
	if c.syncer == nil {
		return
	}
	current := c.form.Questions[index].ID
	if err := c.syncer.Update(ctx, subID, answers, current, index, ids); err != nil {
		c.logger.Warn("submission update failed", "submission_id", subID, "err", err)
	}
}

// refreshIdentifiersLocked pulls contact values from the current buffer for
// any auth-identifier question on the screen.
func (c *Controller) refreshIdentifiersLocked(screen []domain.Question) {
	for i := range screen {
		q := &screen[i]
		s, ok := domain.StringValue(c.buffer[q.ID])
		if !ok || s == "" {
			continue
		}
		switch {
		case q.SemanticRole == domain.RoleEmail, q.AuthIdentifier && q.Kind == domain.KindEmail:
			c.identifiers.Email = s
		case q.SemanticRole == domain.RolePhone, q.AuthIdentifier && q.Kind == domain.KindPhone:
			c.identifiers.Phone = s
		}
	}
}

// begin acquires the single-active-operation guard.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return domain.ErrOperationInFlight
	}
	c.busy = true
	return nil
}

func (c *Controller) end() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) currentLocked() int {
	return c.history[len(c.history)-1]
}

func (c *Controller) anyNonEmptyLocked() bool {
	for _, v := range c.buffer {
		if !domain.IsEmptyValue(v) {
			return true
		}
	}
	return false
}

// touchLocked resets the abandonment watcher after user interaction.
func (c *Controller) touchLocked() {
	if c.idleTimer != nil && !c.abandoned {
		c.idleTimer.Reset(c.idleTimeout)
	}
}

func (c *Controller) fireAbandoned() {
	c.mu.Lock()
	if c.completed || c.abandoned {
		c.mu.Unlock()
		return
	}
	c.abandoned = true
	c.mu.Unlock()
	c.emit(context.Background(), domain.EventFormAbandoned, nil)
}

// emit sends a lifecycle event. Sinks are fire-and-forget; a nil sink is a
// no-op.
func (c *Controller) emit(ctx context.Context, event string, payload map[string]any) {
	if c.analytics == nil {
		return
	}
	merged := map[string]any{
		domain.PayloadFormID:    c.form.ID,
		domain.PayloadSessionID: c.sessionID,
	}
	for k, v := range payload {
		merged[k] = v
	}
	c.analytics.Emit(ctx, event, merged)
}

func valueEqual(a, b domain.AnswerValue) bool {
	as, aok := domain.StringsValue(a)
	bs, bok := domain.StringsValue(b)
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if as[i] != bs[i] {
				return false
			}
		}
		return true
	}
	an, aok := domain.NumberValue(a)
	bn, bok := domain.NumberValue(b)
	if aok && bok {
		return an == bn
	}
	return a == nil && b == nil
}
