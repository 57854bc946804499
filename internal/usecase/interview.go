package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	obsctx "github.com/fairyhunter13/ai-screening-interview/internal/observability"
	"github.com/fairyhunter13/ai-screening-interview/pkg/textx"
)

// PasteDetector is the part of integrity.Detector the service needs.
type PasteDetector interface {
	Detect(prior, fragment, combined string) (domain.PasteSignal, bool)
}

// NamedPublisher labels a result sink for logs and metrics.
type NamedPublisher struct {
	Name      string
	Publisher domain.ResultPublisher
}

// InterviewDeps are the collaborators of InterviewService. Lock, Status and
// Publishers may be empty.
type InterviewDeps struct {
	Questions  domain.QuestionRepository
	Settings   domain.SettingsRepository
	Results    domain.ResultRepository
	Candidates *CandidateDirectory
	Status     domain.StatusNotifier
	Publishers []NamedPublisher
	Lock       domain.SessionLock
	Selector   *QuestionSelector
	Detector   PasteDetector
	Evaluator  AnswerEvaluator
	Aggregator ResultAggregator
}

// InterviewOptions tune the service.
type InterviewOptions struct {
	CompanyName     string
	LockTTL         time.Duration
	DeliveryTimeout time.Duration
	Clock           func() time.Time
}

// Reply is what the candidate sees after starting or answering.
type Reply struct {
	Phase                Phase            `json:"phase"`
	Message              string           `json:"message"`
	Question             *domain.Question `json:"question,omitempty"`
	Answered             int              `json:"answered"`
	QuestionCount        int              `json:"question_count"`
	TimeRemainingSeconds int              `json:"time_remaining_seconds"`
}

// InterviewService owns the live sessions of this process.
type InterviewService struct {
	deps InterviewDeps
	opts InterviewOptions

	mu       sync.Mutex
	sessions map[string]*Session
	starting singleflight.Group
	inflight sync.WaitGroup
}

// NewInterviewService wires an InterviewService.
func NewInterviewService(deps InterviewDeps, opts InterviewOptions) *InterviewService {
	if opts.CompanyName == "" {
		opts.CompanyName = "Scaled Inc"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Hour
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if deps.Selector == nil {
		deps.Selector = NewQuestionSelector(nil)
	}
	if deps.Candidates == nil {
		deps.Candidates = NewCandidateDirectory(nil)
	}
	if deps.Aggregator.Thresholds == (domain.LevelThresholds{}) {
		deps.Aggregator = NewResultAggregator(deps.Evaluator.Policy.Thresholds)
	}
	return &InterviewService{deps: deps, opts: opts, sessions: map[string]*Session{}}
}

func (svc *InterviewService) lookup(key string) *Session {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.sessions[key]
}

func (svc *InterviewService) register(s *Session) {
	svc.mu.Lock()
	svc.sessions[s.key] = s
	svc.mu.Unlock()
	observability.SessionsActive.Inc()
}

// Start opens (or resumes) the session for candidateKey.
func (svc *InterviewService) Start(ctx context.Context, candidateKey string) (Reply, error) {
	key := strings.TrimSpace(candidateKey)
	if key == "" {
		return Reply{}, fmt.Errorf("op=interview.Start: %w: candidate key required", domain.ErrInvalidArgument)
	}
	if s := svc.lookup(key); s != nil {
		return svc.startReply(s), nil
	}
	v, err, _ := svc.starting.Do(key, func() (any, error) {
		if s := svc.lookup(key); s != nil {
			return s, nil
		}
		return svc.initialize(ctx, key)
	})
	if err != nil {
		return Reply{}, fmt.Errorf("op=interview.Start: %w", err)
	}
	return svc.startReply(v.(*Session)), nil
}

func (svc *InterviewService) initialize(ctx context.Context, key string) (*Session, error) {
	ctx, lg := obsctx.WithCandidate(ctx, key)

	if svc.deps.Lock != nil {
		ok, err := svc.deps.Lock.Acquire(ctx, key, svc.opts.LockTTL)
		switch {
		case err != nil:
			// a lock outage must not keep candidates out
			lg.Warn("session lock unavailable; continuing without it", slog.Any("error", err))
		case !ok:
			return nil, fmt.Errorf("%w: an interview for this candidate is already running", domain.ErrConflict)
		}
	}

	var (
		pool     []domain.Question
		poolErr  error
		settings = domain.DefaultSettings()
		cand     *domain.Candidate
		prior    *domain.SessionResult
	)
	// errors are recorded rather than returned so one failed load never cancels the others
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pool, poolErr = svc.deps.Questions.ListQuestions(gctx)
		return nil
	})
	g.Go(func() error {
		if svc.deps.Settings == nil {
			return nil
		}
		st, err := svc.deps.Settings.GetSettings(gctx)
		if err != nil {
			lg.Warn("interview settings unavailable at start; using defaults", slog.Any("error", err))
			return nil
		}
		settings = st
		return nil
	})
	g.Go(func() error {
		c, err := svc.deps.Candidates.Get(gctx, key)
		if err != nil {
			lg.Warn("candidate lookup failed; continuing anonymously", slog.Any("error", err))
			return nil
		}
		cand = &c
		return nil
	})
	g.Go(func() error {
		if svc.deps.Results == nil {
			return nil
		}
		r, err := svc.deps.Results.FindByCandidate(gctx, key)
		switch {
		case err == nil:
			prior = &r
		case errors.Is(err, domain.ErrNotFound):
		default:
			lg.Warn("duplicate submission check failed; continuing", slog.Any("error", err))
		}
		return nil
	})
	_ = g.Wait()

	s := newSession(key, svc.opts.Clock)
	s.settings = settings
	if cand != nil {
		s.candidate = *cand
	}

	if prior != nil {
		s.prior = prior
		_ = s.apply(DuplicateFound{})
		svc.releaseLock(key)
		svc.register(s)
		observability.RecordSession("already_submitted")
		lg.Info("candidate already submitted an interview", slog.Time("completed_at", prior.CompletedAt))
		return s, nil
	}

	if poolErr != nil {
		svc.releaseLock(key)
		return nil, fmt.Errorf("load questions: %w", poolErr)
	}
	qs := svc.deps.Selector.Select(pool, DistributionFrom(settings), settings.QuestionCount)
	if len(qs) == 0 {
		svc.releaseLock(key)
		return nil, fmt.Errorf("%w: no interview questions available", domain.ErrNotFound)
	}
	s.questions = qs
	s.evaluator = svc.deps.Evaluator.WithPasteDetection(settings.AIDetectionEnabled)
	if err := s.apply(Loaded{QuestionCount: len(qs)}); err != nil {
		svc.releaseLock(key)
		return nil, err
	}
	svc.register(s)
	observability.RecordSession("started")
	lg.Info("interview session initialized",
		slog.Int("questions", len(qs)),
		slog.Int("pool", len(pool)),
		slog.Int("duration_minutes", settings.DurationMinutes))
	return s, nil
}

func (svc *InterviewService) startReply(s *Session) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.viewLocked()
	r := Reply{
		Phase:                v.Phase,
		Question:             v.CurrentQuestion,
		Answered:             v.CurrentQuestionIndex,
		QuestionCount:        v.QuestionCount,
		TimeRemainingSeconds: v.TimeRemainingSeconds,
	}
	switch {
	case v.Phase == PhaseAlreadySubmitted && s.prior != nil:
		r.Message = AlreadySubmittedMessage(s.prior.CompletedAt)
	case v.Phase == PhaseExpired:
		r.Message = ExpiredMessage
	case v.Phase.Terminal():
		r.Message = ClosedMessage
	case v.Phase == PhaseAwaitingFirstAnswer:
		var cand *domain.Candidate
		if s.candidate.Key != "" {
			c := s.candidate
			cand = &c
		}
		r.Message = WelcomeMessage(svc.opts.CompanyName, cand, s.questions, svc.deps.Aggregator.Thresholds)
	case v.CurrentQuestion != nil:
		r.Message = QuestionPrompt(*v.CurrentQuestion)
	}
	return r
}

// RecordPaste analyses a paste event and holds the signal for the next answer.
// A nil signal means the fragment was too short to judge.
func (svc *InterviewService) RecordPaste(ctx context.Context, candidateKey, prior, fragment, combined string) (*domain.PasteSignal, error) {
	s := svc.lookup(strings.TrimSpace(candidateKey))
	if s == nil {
		return nil, fmt.Errorf("op=interview.RecordPaste: %w: no session", domain.ErrNotFound)
	}
	if svc.deps.Detector == nil {
		return nil, nil
	}
	sig, ok := svc.deps.Detector.Detect(prior, fragment, combined)
	if !ok {
		return nil, nil
	}
	observability.RecordPasteSignal(sig.IsLikelyGenerated)
	if err := s.holdPaste(sig); err != nil {
		return nil, fmt.Errorf("op=interview.RecordPaste: %w", err)
	}
	_, lg := obsctx.WithCandidate(ctx, s.key)
	lg.Info("paste analysed",
		slog.Int("pasted_length", sig.PastedLength),
		slog.Int("confidence_percent", sig.ConfidencePercent),
		slog.Bool("likely_generated", sig.IsLikelyGenerated))
	return &sig, nil
}

// SubmitAnswer evaluates an answer to the current question. A closed session
// returns ErrSessionClosed together with the closing message.
func (svc *InterviewService) SubmitAnswer(ctx context.Context, candidateKey, answer string) (Reply, error) {
	answer = textx.SanitizeText(answer)
	if answer == "" {
		return Reply{}, fmt.Errorf("op=interview.SubmitAnswer: %w: empty answer", domain.ErrInvalidArgument)
	}
	s := svc.lookup(strings.TrimSpace(candidateKey))
	if s == nil {
		return Reply{}, fmt.Errorf("op=interview.SubmitAnswer: %w: no session", domain.ErrNotFound)
	}
	ctx, lg := obsctx.WithCandidate(ctx, s.key)

	p, err := s.beginAnswer()
	if err != nil {
		if errors.Is(err, domain.ErrSessionClosed) {
			v := s.View()
			return Reply{Phase: v.Phase, Message: ClosedMessage, Answered: v.CurrentQuestionIndex, QuestionCount: v.QuestionCount},
				fmt.Errorf("op=interview.SubmitAnswer: %w", err)
		}
		return Reply{}, fmt.Errorf("op=interview.SubmitAnswer: %w", err)
	}

	// the candidate closing the tab must not turn a scored answer into a fallback
	ectx := context.WithoutCancel(ctx)
	if p.first {
		s.startTimer(s.settings.Duration(), svc.onExpire)
		svc.notify(ectx, s.key, domain.StatusInProgress)
	}

	score := s.evaluator.Evaluate(ectx, p.question, answer, p.paste)
	st, err := s.finishAnswer(score)
	if err != nil {
		return Reply{}, fmt.Errorf("op=interview.SubmitAnswer: %w", err)
	}
	lg.Info("answer recorded",
		slog.Int("question_id", p.question.ID),
		slog.Int("score", score.OverallScore),
		slog.Bool("ai_detected", score.AIDetected),
		slog.String("phase", string(st.Phase)))

	v := s.View()
	reply := Reply{Phase: st.Phase, Answered: st.CurrentQuestionIndex, QuestionCount: st.QuestionCount, TimeRemainingSeconds: v.TimeRemainingSeconds}
	switch st.Phase {
	case PhaseCompleted:
		observability.RecordSession("completed")
		if err := svc.persist(ectx, s, st); err != nil {
			lg.Error("interview result not persisted", slog.Any("error", err))
		}
		reply.Message = CompletedMessage
	case PhaseExpired:
		reply.Message = ExpiredMessage
	default:
		reply.Question = v.CurrentQuestion
		if v.CurrentQuestion != nil {
			reply.Message = QuestionPrompt(*v.CurrentQuestion)
		}
	}
	return reply, nil
}

// persist builds and stores the result. Only missing settings fail it; every
// other sink is best effort.
func (svc *InterviewService) persist(ctx context.Context, s *Session, st State) error {
	lg := obsctx.LoggerFromContext(ctx)
	defer svc.releaseLock(s.key)

	if svc.deps.Settings == nil {
		return fmt.Errorf("op=interview.persist: %w: no settings store", domain.ErrSettingsUnavailable)
	}
	settings, err := svc.deps.Settings.GetSettings(ctx)
	if err != nil {
		observability.RecordDeliveryFailure("settings")
		return fmt.Errorf("op=interview.persist: %w: %v", domain.ErrSettingsUnavailable, err)
	}

	res := svc.deps.Aggregator.Build(s.key, st.Answers, settings, svc.opts.Clock())
	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	observability.ObserveSessionScore(res.AverageScore)
	lg.Info("interview completed",
		slog.Float64("average_score", res.AverageScore),
		slog.String("level", string(res.OverallLevel)),
		slog.String("status", string(res.Status)),
		slog.Bool("integrity_violation", res.AnyIntegrityViolation))

	if svc.deps.Results != nil {
		if err := svc.deps.Results.Save(ctx, res); err != nil {
			observability.RecordDeliveryFailure("results_store")
			lg.Error("failed to save interview result", slog.Any("error", err))
		}
	}
	svc.notify(ctx, s.key, res.Status)
	svc.publish(ctx, res)
	return nil
}

func (svc *InterviewService) notify(ctx context.Context, key string, status domain.AssessmentStatus) {
	if svc.deps.Status == nil {
		return
	}
	if err := svc.deps.Status.NotifyStatus(ctx, key, status); err != nil {
		observability.RecordDeliveryFailure("status")
		obsctx.LoggerFromContext(ctx).Warn("assessment status update failed",
			slog.String("status", string(status)),
			slog.Any("error", err))
	}
}

// publish fans the result out to every sink without waiting for them.
func (svc *InterviewService) publish(ctx context.Context, res domain.SessionResult) {
	for _, p := range svc.deps.Publishers {
		if p.Publisher == nil {
			continue
		}
		svc.inflight.Add(1)
		go func(p NamedPublisher) {
			defer svc.inflight.Done()
			pctx, cancel := context.WithTimeout(ctx, svc.opts.DeliveryTimeout)
			defer cancel()
			if err := p.Publisher.Publish(pctx, res); err != nil {
				observability.RecordDeliveryFailure(p.Name)
				obsctx.LoggerFromContext(ctx).Warn("result delivery failed",
					slog.String("sink", p.Name),
					slog.Any("error", err))
			}
		}(p)
	}
}

func (svc *InterviewService) onExpire(s *Session) {
	st := s.State()
	observability.RecordSession("expired")
	slog.Info("interview session expired",
		slog.String("candidate_key", s.key),
		slog.Int("answered", st.CurrentQuestionIndex),
		slog.Int("question_count", st.QuestionCount),
		slog.Bool("evaluation_pending", st.Pending))
	svc.releaseLock(s.key)
}

func (svc *InterviewService) releaseLock(key string) {
	if svc.deps.Lock == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.deps.Lock.Release(ctx, key); err != nil {
		slog.Warn("session lock release failed", slog.String("candidate_key", key), slog.Any("error", err))
	}
}

// View returns a snapshot of the candidate's live session.
func (svc *InterviewService) View(candidateKey string) (SessionView, error) {
	s := svc.lookup(strings.TrimSpace(candidateKey))
	if s == nil {
		return SessionView{}, fmt.Errorf("op=interview.View: %w: no session", domain.ErrNotFound)
	}
	return s.View(), nil
}

// Sweep evicts sessions that ended, or never started, more than retention ago.
// It returns the number of evicted sessions.
func (svc *InterviewService) Sweep(retention time.Duration) int {
	now := svc.opts.Clock()
	svc.mu.Lock()
	var evicted []*Session
	for key, s := range svc.sessions {
		idle := s.idleSince()
		if idle.IsZero() || now.Sub(idle) < retention {
			continue
		}
		delete(svc.sessions, key)
		evicted = append(evicted, s)
	}
	svc.mu.Unlock()

	for _, s := range evicted {
		s.Stop()
		svc.deps.Candidates.Forget(s.key)
		observability.SessionsActive.Dec()
		if s.View().Phase == PhaseAwaitingFirstAnswer {
			svc.releaseLock(s.key)
		}
	}
	return len(evicted)
}

// Close stops every countdown and waits for outstanding deliveries.
func (svc *InterviewService) Close(ctx context.Context) error {
	svc.mu.Lock()
	for _, s := range svc.sessions {
		s.Stop()
	}
	svc.mu.Unlock()

	done := make(chan struct{})
	go func() {
		svc.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("op=interview.Close: %w", ctx.Err())
	}
}
