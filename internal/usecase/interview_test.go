package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain/mocks"
	"github.com/fairyhunter13/ai-screening-interview/internal/usecase"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubDetector struct{ sig domain.PasteSignal }

func (d stubDetector) Detect(_, fragment, _ string) (domain.PasteSignal, bool) {
	if len(fragment) < 5 {
		return domain.PasteSignal{}, false
	}
	return d.sig, true
}

type harness struct {
	questions *mocks.QuestionRepository
	settings  *mocks.SettingsRepository
	results   *mocks.ResultRepository
	cands     *mocks.CandidateRepository
	status    *mocks.StatusNotifier
	pub       *mocks.ResultPublisher
	lock      *mocks.SessionLock
	oracle    *mocks.ScoringOracle
	clock     *fakeClock
	detector  usecase.PasteDetector
}

func newHarness(t *testing.T) *harness {
	return &harness{
		questions: mocks.NewQuestionRepository(t),
		settings:  mocks.NewSettingsRepository(t),
		results:   mocks.NewResultRepository(t),
		cands:     mocks.NewCandidateRepository(t),
		status:    mocks.NewStatusNotifier(t),
		pub:       mocks.NewResultPublisher(t),
		lock:      mocks.NewSessionLock(t),
		oracle:    mocks.NewScoringOracle(t),
		clock:     &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
}

func (h *harness) service() *usecase.InterviewService {
	return usecase.NewInterviewService(usecase.InterviewDeps{
		Questions:  h.questions,
		Settings:   h.settings,
		Results:    h.results,
		Candidates: usecase.NewCandidateDirectory(h.cands),
		Status:     h.status,
		Publishers: []usecase.NamedPublisher{{Name: "webhook", Publisher: h.pub}},
		Lock:       h.lock,
		Detector:   h.detector,
		Evaluator:  usecase.NewAnswerEvaluator(h.oracle, usecase.DefaultScoringPolicy(), time.Second),
	}, usecase.InterviewOptions{CompanyName: "Acme", Clock: h.clock.Now})
}

func settingsWith(n int) domain.Settings {
	s := domain.DefaultSettings()
	s.QuestionCount = n
	return s
}

func (h *harness) expectLoads(key string, n int) {
	h.lock.On("Acquire", mock.Anything, key, 2*time.Hour).Return(true, nil).Once()
	h.questions.On("ListQuestions", mock.Anything).Return(buildPool(3, 3, 3), nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(n), nil).Once()
	h.cands.On("Get", mock.Anything, key).Return(domain.Candidate{Key: key, FullName: "Ada Lovelace"}, nil).Once()
	h.results.On("FindByCandidate", mock.Anything, key).Return(domain.SessionResult{}, domain.ErrNotFound).Once()
}

func strongScore() domain.OracleScore {
	return domain.OracleScore{TechnicalAccuracy: 90, ProblemSolving: 88, Communication: 92, Documentation: 86, Feedback: "great"}
}

func TestInterview_FullFlow(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-1", 2)
	h.oracle.On("Score", mock.Anything, mock.Anything).Return(strongScore(), nil).Twice()
	h.status.On("NotifyStatus", mock.Anything, "c-1", domain.StatusInProgress).Return(nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(2), nil).Once()
	h.results.On("Save", mock.Anything, mock.MatchedBy(func(r domain.SessionResult) bool {
		return r.CandidateKey == "c-1" && len(r.DetailedAnswers) == 2 && r.Status == domain.StatusPassed && r.AverageScore == 89
	})).Return(nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-1", domain.StatusPassed).Return(nil).Once()
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	h.lock.On("Release", mock.Anything, "c-1").Return(nil).Once()

	svc := h.service()
	ctx := context.Background()

	r, err := svc.Start(ctx, " c-1 ")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseAwaitingFirstAnswer, r.Phase)
	assert.Contains(t, r.Message, "Welcome to Acme's Interactive AI Screening Interview for Ada Lovelace!")
	assert.Contains(t, r.Message, "I'll ask you 2 questions")
	assert.Contains(t, r.Message, "**Question 1:**")
	assert.Equal(t, 2, r.QuestionCount)
	assert.Equal(t, 30*60, r.TimeRemainingSeconds)

	// resuming does not reload anything
	again, err := svc.Start(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, r.Message, again.Message)

	r, err = svc.SubmitAnswer(ctx, "c-1", "  I would check the logs first.  ")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseInProgress, r.Phase)
	require.NotNil(t, r.Question)
	assert.Equal(t, 2, r.Question.ID)
	assert.Equal(t, "**Question 2:** "+r.Question.Text, r.Message)
	assert.Equal(t, 1, r.Answered)

	r, err = svc.SubmitAnswer(ctx, "c-1", "Then escalate with a clear summary.")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	assert.Equal(t, usecase.CompletedMessage, r.Message)
	assert.Nil(t, r.Question)

	require.NoError(t, svc.Close(ctx))

	r, err = svc.SubmitAnswer(ctx, "c-1", "one more")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.Equal(t, usecase.ClosedMessage, r.Message)

	r, err = svc.Start(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	assert.Equal(t, usecase.ClosedMessage, r.Message)
}

func TestInterview_AlreadySubmitted(t *testing.T) {
	h := newHarness(t)
	h.lock.On("Acquire", mock.Anything, "c-2", 2*time.Hour).Return(true, nil).Once()
	h.lock.On("Release", mock.Anything, "c-2").Return(nil).Once()
	h.questions.On("ListQuestions", mock.Anything).Return(buildPool(1, 1, 1), nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(2), nil).Once()
	h.cands.On("Get", mock.Anything, "c-2").Return(domain.Candidate{}, errors.New("crm down")).Once()
	prior := domain.SessionResult{CandidateKey: "c-2", CompletedAt: time.Date(2025, 11, 3, 15, 0, 0, 0, time.UTC)}
	h.results.On("FindByCandidate", mock.Anything, "c-2").Return(prior, nil).Once()

	svc := h.service()
	r, err := svc.Start(context.Background(), "c-2")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseAlreadySubmitted, r.Phase)
	assert.Contains(t, r.Message, "Your previous interview was completed on: November 3, 2025")
	assert.Nil(t, r.Question)

	_, err = svc.SubmitAnswer(context.Background(), "c-2", "hello")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestInterview_SettingsUnavailableAtSave(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-3", 1)
	h.oracle.On("Score", mock.Anything, mock.Anything).Return(strongScore(), nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-3", domain.StatusInProgress).Return(nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(domain.Settings{}, errors.New("connection reset")).Once()
	h.lock.On("Release", mock.Anything, "c-3").Return(nil).Once()
	// no Save, no final status and no Publish expected

	svc := h.service()
	_, err := svc.Start(context.Background(), "c-3")
	require.NoError(t, err)
	r, err := svc.SubmitAnswer(context.Background(), "c-3", "answer")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	require.NoError(t, svc.Close(context.Background()))
}

func TestInterview_SettingsUnavailableAtStartUsesDefaults(t *testing.T) {
	h := newHarness(t)
	h.lock.On("Acquire", mock.Anything, "c-4", 2*time.Hour).Return(true, nil).Once()
	h.questions.On("ListQuestions", mock.Anything).Return(buildPool(20, 20, 20), nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(domain.Settings{}, errors.New("timeout")).Once()
	h.cands.On("Get", mock.Anything, "c-4").Return(domain.Candidate{Key: "c-4"}, nil).Once()
	h.results.On("FindByCandidate", mock.Anything, "c-4").Return(domain.SessionResult{}, domain.ErrNotFound).Once()

	r, err := h.service().Start(context.Background(), "c-4")
	require.NoError(t, err)
	assert.Equal(t, 10, r.QuestionCount)
}

func TestInterview_SubmissionInFlight(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-5", 2)
	h.status.On("NotifyStatus", mock.Anything, "c-5", domain.StatusInProgress).Return(nil).Once()
	release := make(chan struct{})
	h.oracle.On("Score", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(strongScore(), nil).Once()

	svc := h.service()
	_, err := svc.Start(context.Background(), "c-5")
	require.NoError(t, err)

	done := make(chan usecase.Reply, 1)
	go func() {
		r, err := svc.SubmitAnswer(context.Background(), "c-5", "first")
		assert.NoError(t, err)
		done <- r
	}()
	require.Eventually(t, func() bool {
		v, err := svc.View("c-5")
		return err == nil && v.Pending
	}, time.Second, 5*time.Millisecond)

	_, err = svc.SubmitAnswer(context.Background(), "c-5", "double click")
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(release)
	r := <-done
	assert.Equal(t, 1, r.Answered)
	require.NoError(t, svc.Close(context.Background()))
}

func TestInterview_PasteSignalZeroesAnswer(t *testing.T) {
	h := newHarness(t)
	h.detector = stubDetector{sig: domain.PasteSignal{WasPasted: true, PastedLength: 400, IsLikelyGenerated: true, ConfidencePercent: 72}}
	h.expectLoads("c-6", 1)
	h.status.On("NotifyStatus", mock.Anything, "c-6", domain.StatusInProgress).Return(nil).Once()
	h.oracle.On("Score", mock.Anything, mock.MatchedBy(func(req domain.OracleRequest) bool {
		return req.Paste != nil && req.Paste.ConfidencePercent == 72
	})).Return(strongScore(), nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(1), nil).Once()
	h.results.On("Save", mock.Anything, mock.MatchedBy(func(r domain.SessionResult) bool {
		a := r.DetailedAnswers[0]
		return r.AnyIntegrityViolation && r.Status == domain.StatusFailed &&
			a.OverallScore == 0 && a.CopyPasteDetected && a.Feedback == usecase.PasteViolationFeedback
	})).Return(nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-6", domain.StatusFailed).Return(nil).Once()
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("webhook 502")).Once()
	h.lock.On("Release", mock.Anything, "c-6").Return(nil).Once()

	svc := h.service()
	ctx := context.Background()
	_, err := svc.Start(ctx, "c-6")
	require.NoError(t, err)

	sig, err := svc.RecordPaste(ctx, "c-6", "", "abc", "abc")
	require.NoError(t, err)
	assert.Nil(t, sig)

	sig, err = svc.RecordPaste(ctx, "c-6", "", "a long pasted fragment", "a long pasted fragment")
	require.NoError(t, err)
	require.NotNil(t, sig)

	r, err := svc.SubmitAnswer(ctx, "c-6", "a long pasted fragment")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	require.NoError(t, svc.Close(ctx))
}

func TestInterview_LockHeldElsewhere(t *testing.T) {
	h := newHarness(t)
	h.lock.On("Acquire", mock.Anything, "c-7", 2*time.Hour).Return(false, nil).Once()

	_, err := h.service().Start(context.Background(), "c-7")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInterview_LockOutageIsTolerated(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-8", 2)
	h.lock.ExpectedCalls = nil
	h.lock.On("Acquire", mock.Anything, "c-8", 2*time.Hour).Return(false, errors.New("redis: connection refused")).Once()

	r, err := h.service().Start(context.Background(), "c-8")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseAwaitingFirstAnswer, r.Phase)
}

func TestInterview_QuestionsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.lock.On("Acquire", mock.Anything, "c-9", 2*time.Hour).Return(true, nil).Once()
	h.lock.On("Release", mock.Anything, "c-9").Return(nil).Once()
	h.questions.On("ListQuestions", mock.Anything).Return(nil, errors.New("relation does not exist")).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(2), nil).Once()
	h.cands.On("Get", mock.Anything, "c-9").Return(domain.Candidate{Key: "c-9"}, nil).Once()
	h.results.On("FindByCandidate", mock.Anything, "c-9").Return(domain.SessionResult{}, domain.ErrNotFound).Once()

	svc := h.service()
	_, err := svc.Start(context.Background(), "c-9")
	require.Error(t, err)
	_, err = svc.View("c-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterview_ConcurrentStartsShareInitialization(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-10", 2)
	h.questions.ExpectedCalls = nil
	h.questions.On("ListQuestions", mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(30 * time.Millisecond) }).
		Return(buildPool(3, 3, 3), nil).Once()

	svc := h.service()
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Start(context.Background(), "c-10")
			assert.NoError(t, err)
			assert.Equal(t, usecase.PhaseAwaitingFirstAnswer, r.Phase)
		}()
	}
	wg.Wait()
}

func TestInterview_InputValidation(t *testing.T) {
	svc := newHarness(t).service()
	_, err := svc.Start(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.SubmitAnswer(context.Background(), "x", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.SubmitAnswer(context.Background(), "x", "hi")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.RecordPaste(context.Background(), "x", "", "abc", "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterview_SweepEvictsIdleSessions(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-11", 2)
	h.lock.On("Release", mock.Anything, "c-11").Return(nil).Once()

	svc := h.service()
	_, err := svc.Start(context.Background(), "c-11")
	require.NoError(t, err)

	assert.Zero(t, svc.Sweep(time.Hour))
	h.clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, svc.Sweep(time.Hour))

	_, err = svc.View("c-11")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the candidate cache goes with the session; the next start refetches
	h.expectLoads("c-11", 2)
	_, err = svc.Start(context.Background(), "c-11")
	require.NoError(t, err)
}

func TestInterview_ResultSaveFailureStillCompletes(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-12", 1)
	h.oracle.On("Score", mock.Anything, mock.Anything).Return(strongScore(), nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-12", domain.StatusInProgress).Return(nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(1), nil).Once()
	h.results.On("Save", mock.Anything, mock.Anything).Return(errors.New("pq: connection reset")).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-12", domain.StatusPassed).Return(nil).Once()
	h.pub.On("Publish", mock.Anything, mock.MatchedBy(func(r domain.SessionResult) bool {
		return r.CandidateKey == "c-12" && r.Status == domain.StatusPassed
	})).Return(nil).Once()
	h.lock.On("Release", mock.Anything, "c-12").Return(nil).Once()

	svc := h.service()
	ctx := context.Background()
	_, err := svc.Start(ctx, "c-12")
	require.NoError(t, err)

	r, err := svc.SubmitAnswer(ctx, "c-12", "Profile first, then fix the hot path.")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	assert.Equal(t, usecase.CompletedMessage, r.Message)
	require.NoError(t, svc.Close(ctx))
}

func TestInterview_FinalStatusFailureStillCompletes(t *testing.T) {
	h := newHarness(t)
	h.expectLoads("c-13", 1)
	h.oracle.On("Score", mock.Anything, mock.Anything).Return(strongScore(), nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-13", domain.StatusInProgress).Return(nil).Once()
	h.settings.On("GetSettings", mock.Anything).Return(settingsWith(1), nil).Once()
	h.results.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	h.status.On("NotifyStatus", mock.Anything, "c-13", domain.StatusPassed).Return(errors.New("status api 503")).Once()
	h.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	h.lock.On("Release", mock.Anything, "c-13").Return(nil).Once()

	svc := h.service()
	ctx := context.Background()
	_, err := svc.Start(ctx, "c-13")
	require.NoError(t, err)

	r, err := svc.SubmitAnswer(ctx, "c-13", "Roll back, then bisect the deploy.")
	require.NoError(t, err)
	assert.Equal(t, usecase.PhaseCompleted, r.Phase)
	assert.Equal(t, usecase.CompletedMessage, r.Message)
	require.NoError(t, svc.Close(ctx))
}
