package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/internal/runtime"
	"github.com/espalier-io/espalier/pkg/adapters/memory"
	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/dsl"
	"github.com/espalier-io/espalier/pkg/persistence"
	"github.com/espalier-io/espalier/pkg/ports"
)

// recorder captures emitted analytics events. Safe for concurrent use since
// the abandonment watcher fires from a timer goroutine.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(ctx context.Context, event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.names() {
		if e == event {
			n++
		}
	}
	return n
}

// sessionForm is the canonical fixture: a contact group, a conditional
// choice, a generated informational screen, and a free-text wrap-up.
func sessionForm() *domain.Form {
	return dsl.NewForm("onboarding", "Onboarding").
		Email("q_email", "Work email?").Required().AuthIdentifier().Next("q_phone").
		Phone("q_phone", "Phone?").AuthIdentifier().Next("q_team").
		Choice("q_team", "Which team?", "eng", "sales").
		Route(dsl.Eq("q_team", "eng"), "q_info").
		RouteEnd(dsl.Eq("q_team", "sales")).
		Default("q_done").
		Info("q_info", "Welcome aboard!").Prompt("Welcome {{q_email}}!").Next("q_done").
		ShortText("q_done", "Anything else?").End().
		Group("contact", "Contact", "q_email", "q_phone").
		Build()
}

type fixture struct {
	ctrl  *runtime.Controller
	store *memory.Store
	sink  *recorder
}

func newFixture(t *testing.T, mutate func(*runtime.Config)) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), sink: &recorder{}}
	cfg := runtime.Config{
		Form:      sessionForm(),
		SessionID: "sess-1",
		Evaluator: memory.NewEvaluator(),
		Syncer:    persistence.NewStoreSync(f.store),
		Generator: memory.NewGenerator(),
		Analytics: f.sink,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.ctrl = runtime.NewController(cfg)
	t.Cleanup(f.ctrl.Close)
	return f
}

func setValues(t *testing.T, ctrl *runtime.Controller, values map[domain.QuestionID]domain.AnswerValue) {
	t.Helper()
	for id, v := range values {
		require.NoError(t, ctrl.SetValue(context.Background(), id, v))
	}
}

func advance(t *testing.T, ctrl *runtime.Controller) *runtime.Snapshot {
	t.Helper()
	snap, err := ctrl.Next(context.Background())
	require.NoError(t, err)
	require.Nil(t, snap.ValidationError)
	return snap
}

func submission(t *testing.T, store *memory.Store, sessionID string) *domain.Submission {
	t.Helper()
	sub, err := store.FindBySession(context.Background(), sessionID)
	require.NoError(t, err)
	return sub
}

func TestControllerEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	snap := f.ctrl.Start(ctx)
	assert.Equal(t, 1, snap.ScreenNumber)
	assert.Equal(t, 4, snap.TotalScreens)
	assert.Equal(t, "contact", snap.GroupID)
	require.Len(t, snap.Questions, 2)
	assert.False(t, snap.CanGoBack)
	assert.Equal(t, 0.25, snap.Progress)

	// No submission exists before the first collected answer.
	_, err := f.store.FindBySession(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "ada@espalier.io",
		"q_phone": "+1 555 0100",
	})
	snap = advance(t, f.ctrl)
	assert.Equal(t, 2, snap.ScreenNumber)
	assert.True(t, snap.CanGoBack)

	// Lazy create happened, with identifiers extracted.
	sub := submission(t, f.store, "sess-1")
	assert.Equal(t, "ada@espalier.io", sub.Email)
	assert.Equal(t, "+1 555 0100", sub.Phone)
	assert.Equal(t, domain.StatusInProgress, sub.Status)
	assert.Len(t, sub.Answers, 2)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	snap = advance(t, f.ctrl)
	assert.Equal(t, 3, snap.ScreenNumber)
	require.Len(t, snap.Questions, 1)
	assert.Equal(t, domain.KindInformational, snap.Questions[0].Question.Kind)
	assert.Equal(t, "Welcome ada@espalier.io!", snap.Questions[0].Content)

	// Informational screens advance with no input.
	snap = advance(t, f.ctrl)
	assert.Equal(t, 4, snap.ScreenNumber)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_done": "ship it"})
	snap = advance(t, f.ctrl)
	assert.True(t, snap.Completed)
	assert.Equal(t, 1.0, snap.Progress)

	sub = submission(t, f.store, "sess-1")
	assert.Equal(t, domain.StatusCompleted, sub.Status)
	assert.Len(t, sub.Answers, 4)

	events := f.sink.names()
	assert.Equal(t, domain.EventFormViewed, events[0])
	assert.Equal(t, 1, f.sink.count(domain.EventFormCompleted))
	assert.Equal(t, 4, f.sink.count(domain.EventQuestionAnswered))

	// The session is terminal.
	_, err = f.ctrl.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	_, err = f.ctrl.Back(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
	err = f.ctrl.SetValue(ctx, "q_done", "more")
	assert.ErrorIs(t, err, domain.ErrSessionCompleted)
}

func TestControllerConditionalEndRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.Start(context.Background())

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "sales"})

	snap := advance(t, f.ctrl)
	assert.True(t, snap.Completed, "matched end route completes the form")
	assert.Equal(t, domain.StatusCompleted, submission(t, f.store, "sess-1").Status)
}

func TestControllerValidationFailureStaysPut(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	// Group validation reports the leftmost failing member.
	snap, err := f.ctrl.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.ValidationError)
	assert.Equal(t, domain.QuestionID("q_email"), snap.ValidationError.QuestionID)
	assert.Equal(t, 1, snap.ScreenNumber)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_email": "not-an-email"})
	snap, err = f.ctrl.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.ValidationError)
	assert.Equal(t, domain.QuestionID("q_email"), snap.ValidationError.QuestionID)

	// Staging a value clears the error from the snapshot.
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_email": "a@b.com"})
	assert.Nil(t, f.ctrl.Snapshot(ctx).ValidationError)

	// Nothing was persisted while validation failed.
	_, err = f.store.FindBySession(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}

func TestControllerBackRestoresAnswers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	advance(t, f.ctrl)

	// Back to the choice screen: its own answer is restored.
	snap, err := f.ctrl.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ScreenNumber)
	require.Len(t, snap.Questions, 1)
	assert.Equal(t, "eng", snap.Questions[0].Value)

	// Back to the contact group: both values restored.
	snap, err = f.ctrl.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ScreenNumber)
	assert.Equal(t, "a@b.com", snap.Questions[0].Value)
	assert.Equal(t, "+1 555 0100", snap.Questions[1].Value)
	assert.False(t, snap.CanGoBack)

	// Bottom of the stack.
	_, err = f.ctrl.Back(ctx)
	assert.ErrorIs(t, err, domain.ErrNoHistory)

	assert.Equal(t, 2, f.sink.count(domain.EventQuestionBacktracked))
}

func TestControllerReAdvanceDoesNotDuplicateAnswers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	advance(t, f.ctrl)

	_, err := f.ctrl.Back(ctx)
	require.NoError(t, err)
	_, err = f.ctrl.Back(ctx)
	require.NoError(t, err)

	// Re-advance the same path without changing anything.
	advance(t, f.ctrl)
	advance(t, f.ctrl)

	sub := submission(t, f.store, "sess-1")
	seen := make(map[domain.QuestionID]int)
	for _, a := range sub.Answers {
		seen[a.QuestionID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "answer %s recorded %d times", id, n)
	}
}

func TestControllerReplaySkipsReEvaluation(t *testing.T) {
	evaluations := 0
	f := newFixture(t, func(cfg *runtime.Config) {
		inner := memory.NewEvaluator()
		cfg.Evaluator = ports.RouteEvaluatorFunc(func(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (ports.RouteDecision, error) {
			evaluations++
			return inner.Evaluate(ctx, routes, answers, form)
		})
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	advance(t, f.ctrl)
	require.Equal(t, 1, evaluations, "only the conditional screen consults the evaluator")

	_, err := f.ctrl.Back(ctx)
	require.NoError(t, err)

	// Unchanged answers: the recorded trail is replayed, not re-evaluated.
	snap := advance(t, f.ctrl)
	assert.Equal(t, 3, snap.ScreenNumber)
	assert.Equal(t, 1, evaluations)

	// A changed answer discards the trail and forces re-evaluation.
	_, err = f.ctrl.Back(ctx)
	require.NoError(t, err)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "sales"})
	snap, err = f.ctrl.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, evaluations)
	assert.True(t, snap.Completed, "sales routes straight to the end")
}

func TestControllerAutoAdvance(t *testing.T) {
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.AutoAdvanceDelay = 300 * time.Millisecond
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	snap := f.ctrl.Snapshot(ctx)
	assert.False(t, snap.AutoAdvance, "group screens never auto-advance")

	advance(t, f.ctrl)
	snap = f.ctrl.Snapshot(ctx)
	assert.False(t, snap.AutoAdvance, "no value staged yet")

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	snap = f.ctrl.Snapshot(ctx)
	assert.True(t, snap.AutoAdvance)
	assert.Equal(t, 300*time.Millisecond, snap.AutoAdvanceDelay)

	// Returning via Back suppresses auto-advance even though the restored
	// value would otherwise qualify.
	advance(t, f.ctrl)
	_, err := f.ctrl.Back(ctx)
	require.NoError(t, err)
	snap = f.ctrl.Snapshot(ctx)
	assert.Equal(t, "eng", snap.Questions[0].Value)
	assert.False(t, snap.AutoAdvance)

	// Re-staging the same value keeps the suppression; a change lifts it.
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	assert.False(t, f.ctrl.Snapshot(ctx).AutoAdvance)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "sales"})
	assert.True(t, f.ctrl.Snapshot(ctx).AutoAdvance)
}

func TestControllerSingleActiveOperation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.Evaluator = ports.RouteEvaluatorFunc(func(ctx context.Context, routes []domain.Route, answers []domain.Answer, form *domain.Form) (ports.RouteDecision, error) {
			close(entered)
			<-release
			return ports.RouteDecision{}, nil
		})
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.ctrl.Next(ctx)
	}()
	<-entered

	_, err := f.ctrl.Next(ctx)
	assert.ErrorIs(t, err, domain.ErrOperationInFlight)
	_, err = f.ctrl.Back(ctx)
	assert.ErrorIs(t, err, domain.ErrOperationInFlight)

	close(release)
	<-done

	// Exactly one submission was created despite the racing calls.
	subs, err := f.store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestControllerMissingIdentifiersSkipsSubmission(t *testing.T) {
	form := dsl.NewForm("bare", "Bare").
		ShortText("q1", "Name?").Required().Next("q2").
		ShortText("q2", "Color?").End().
		Build()
	store := memory.NewStore()
	ctrl := runtime.NewController(runtime.Config{
		Form:      form,
		SessionID: "sess-bare",
		Syncer:    persistence.NewStoreSync(store),
	})
	t.Cleanup(ctrl.Close)
	ctx := context.Background()

	require.NoError(t, ctrl.SetValue(ctx, "q1", "Ada"))
	snap, err := ctrl.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, snap.ValidationError)
	assert.Equal(t, 2, snap.ScreenNumber, "navigation continues without persistence")

	_, err = store.FindBySession(ctx, "sess-bare")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}

func TestControllerSyncFailuresDoNotBlockNavigation(t *testing.T) {
	failing := &failingSync{}
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.Syncer = failing
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	snap := advance(t, f.ctrl)
	assert.Equal(t, 2, snap.ScreenNumber)
	assert.Equal(t, 1, failing.creates)

	// The failed create is retried on the following advance.
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	snap = advance(t, f.ctrl)
	assert.Equal(t, 3, snap.ScreenNumber)
	assert.Equal(t, 2, failing.creates)
}

type failingSync struct {
	creates int
}

func (s *failingSync) Create(ctx context.Context, sessionID, formID string, answers []domain.Answer, ids domain.Identifiers) (string, error) {
	s.creates++
	return "", errors.New("datastore unavailable")
}

func (s *failingSync) Update(ctx context.Context, submissionID string, answers []domain.Answer, currentID domain.QuestionID, currentIndex int, ids domain.Identifiers) error {
	return errors.New("datastore unavailable")
}

func (s *failingSync) Complete(ctx context.Context, submissionID string) error {
	return errors.New("datastore unavailable")
}

func TestControllerContentGeneratedOncePerQuestion(t *testing.T) {
	calls := 0
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.Generator = ports.ContentGeneratorFunc(func(ctx context.Context, formID, prompt string, prior []domain.Answer) (string, error) {
			calls++
			return "generated text", nil
		})
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	snap := advance(t, f.ctrl)
	assert.Equal(t, "generated text", snap.Questions[0].Content)

	f.ctrl.Snapshot(ctx)
	f.ctrl.Snapshot(ctx)
	assert.Equal(t, 1, calls, "content is cached per question id for the session")
}

func TestControllerContentFailureFallsBackToStaticText(t *testing.T) {
	calls := 0
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.Generator = ports.ContentGeneratorFunc(func(ctx context.Context, formID, prompt string, prior []domain.Answer) (string, error) {
			calls++
			return "", errors.New("model overloaded")
		})
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	snap := advance(t, f.ctrl)
	assert.Equal(t, "Welcome aboard!", snap.Questions[0].Content)

	f.ctrl.Snapshot(ctx)
	assert.Equal(t, 1, calls, "failures are cached too, no retry storm")
}

func TestControllerAbandonment(t *testing.T) {
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.IdleTimeout = 200 * time.Millisecond
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	// Interaction keeps the session alive.
	time.Sleep(120 * time.Millisecond)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_email": "a@b.com"})
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, f.sink.count(domain.EventFormAbandoned))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, f.sink.count(domain.EventFormAbandoned))

	// The event fires at most once.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, f.sink.count(domain.EventFormAbandoned))
}

func TestControllerCompletionStopsAbandonment(t *testing.T) {
	f := newFixture(t, func(cfg *runtime.Config) {
		cfg.IdleTimeout = 100 * time.Millisecond
	})
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "sales"})
	snap := advance(t, f.ctrl)
	require.True(t, snap.Completed)

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 0, f.sink.count(domain.EventFormAbandoned))
}

func TestControllerInformationalOnlyAnswersAreNotRecorded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.ctrl.Start(ctx)

	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{
		"q_email": "a@b.com",
		"q_phone": "+1 555 0100",
	})
	advance(t, f.ctrl)
	setValues(t, f.ctrl, map[domain.QuestionID]domain.AnswerValue{"q_team": "eng"})
	advance(t, f.ctrl)
	advance(t, f.ctrl) // informational screen

	sub := submission(t, f.store, "sess-1")
	for _, a := range sub.Answers {
		assert.NotEqual(t, domain.QuestionID("q_info"), a.QuestionID)
	}
}
