package usecase

import (
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Phase is a session lifecycle state.
type Phase string

const (
	PhaseInitializing        Phase = "initializing"
	PhaseAwaitingFirstAnswer Phase = "awaiting_first_answer"
	PhaseInProgress          Phase = "in_progress"
	PhaseCompleted           Phase = "completed"
	PhaseExpired             Phase = "expired"
	PhaseAlreadySubmitted    Phase = "already_submitted"
)

// Terminal reports whether no further answers can be accepted.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseExpired || p == PhaseAlreadySubmitted
}

// State is the value the transition function operates on.
type State struct {
	Phase                Phase
	CurrentQuestionIndex int
	QuestionCount        int
	Answers              []domain.AnswerScore
	// Pending is set while an answer is being evaluated.
	Pending bool
}

func (s State) IsComplete() bool { return s.Phase == PhaseCompleted }
func (s State) IsExpired() bool  { return s.Phase == PhaseExpired }

// Event drives Transition.
type Event interface{ event() }

// Loaded: every initial load finished and no prior result exists.
type Loaded struct{ QuestionCount int }

// DuplicateFound: a stored result already exists for the candidate.
type DuplicateFound struct{}

// AnswerSubmitted: an answer was taken for evaluation.
type AnswerSubmitted struct{}

// AnswerAccepted: the pending answer finished evaluation.
type AnswerAccepted struct{ Score domain.AnswerScore }

// TimerExpired: the countdown reached zero.
type TimerExpired struct{}

func (Loaded) event()          {}
func (DuplicateFound) event()  {}
func (AnswerSubmitted) event() {}
func (AnswerAccepted) event()  {}
func (TimerExpired) event()    {}

// Transition computes the next state. It never mutates s; on error the
// returned state equals s.
func Transition(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Loaded:
		if s.Phase != PhaseInitializing {
			return s, fmt.Errorf("%w: loaded in phase %s", domain.ErrConflict, s.Phase)
		}
		if e.QuestionCount <= 0 {
			return s, fmt.Errorf("%w: session needs at least one question", domain.ErrInvalidArgument)
		}
		s.Phase = PhaseAwaitingFirstAnswer
		s.QuestionCount = e.QuestionCount
		return s, nil

	case DuplicateFound:
		if s.Phase != PhaseInitializing {
			return s, fmt.Errorf("%w: duplicate found in phase %s", domain.ErrConflict, s.Phase)
		}
		s.Phase = PhaseAlreadySubmitted
		return s, nil

	case AnswerSubmitted:
		switch {
		case s.Phase.Terminal():
			return s, domain.ErrSessionClosed
		case s.Phase == PhaseInitializing:
			return s, fmt.Errorf("%w: session still initializing", domain.ErrConflict)
		case s.Pending:
			return s, domain.ErrSubmissionInFlight
		}
		s.Phase = PhaseInProgress
		s.Pending = true
		return s, nil

	case AnswerAccepted:
		if !s.Pending {
			if s.Phase.Terminal() {
				return s, domain.ErrSessionClosed
			}
			return s, fmt.Errorf("%w: no answer pending", domain.ErrConflict)
		}
		answers := make([]domain.AnswerScore, len(s.Answers), len(s.Answers)+1)
		copy(answers, s.Answers)
		s.Answers = append(answers, e.Score)
		s.CurrentQuestionIndex++
		s.Pending = false
		// an expiry that landed during evaluation wins over completion
		if s.Phase == PhaseInProgress && s.CurrentQuestionIndex >= s.QuestionCount {
			s.Phase = PhaseCompleted
		}
		return s, nil

	case TimerExpired:
		if s.Phase == PhaseAwaitingFirstAnswer || s.Phase == PhaseInProgress {
			s.Phase = PhaseExpired
		}
		return s, nil

	default:
		return s, fmt.Errorf("%w: unknown event %T", domain.ErrInvalidArgument, ev)
	}
}

// Session is one candidate's live interview. All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	key       string
	candidate domain.Candidate
	settings  domain.Settings
	questions []domain.Question
	state     State
	evaluator AnswerEvaluator

	paste     *domain.PasteSignal
	prior     *domain.SessionResult
	result    *domain.SessionResult
	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time
	deadline  time.Time
	timer     *time.Timer
	clock     func() time.Time
}

func newSession(key string, clock func() time.Time) *Session {
	if clock == nil {
		clock = time.Now
	}
	return &Session{key: key, state: State{Phase: PhaseInitializing}, clock: clock, createdAt: clock()}
}

// apply runs Transition and stores the result. Callers hold mu.
func (s *Session) apply(ev Event) error {
	next, err := Transition(s.state, ev)
	if err != nil {
		return err
	}
	s.state = next
	if next.Phase.Terminal() && s.endedAt.IsZero() {
		s.endedAt = s.clock()
	}
	return nil
}

// idleSince returns when the session last became sweepable: its end time once
// terminal, its creation time while still waiting for a first answer, and
// zero while an interview is running.
func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state.Phase.Terminal():
		return s.endedAt
	case s.state.Phase == PhaseAwaitingFirstAnswer:
		return s.createdAt
	default:
		return time.Time{}
	}
}

// SessionView is a read-only snapshot for callers outside the package.
type SessionView struct {
	CandidateKey         string           `json:"candidate_key"`
	CandidateName        string           `json:"candidate_name"`
	Phase                Phase            `json:"phase"`
	CurrentQuestionIndex int              `json:"current_question_index"`
	QuestionCount        int              `json:"question_count"`
	CurrentQuestion      *domain.Question `json:"current_question,omitempty"`
	Pending              bool             `json:"pending"`
	TimeRemaining        time.Duration    `json:"-"`
	TimeRemainingSeconds int              `json:"time_remaining_seconds"`
	StartedAt            *time.Time       `json:"started_at,omitempty"`
}

// View snapshots the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() SessionView {
	v := SessionView{
		CandidateKey:         s.key,
		CandidateName:        s.candidate.DisplayName(),
		Phase:                s.state.Phase,
		CurrentQuestionIndex: s.state.CurrentQuestionIndex,
		QuestionCount:        s.state.QuestionCount,
		Pending:              s.state.Pending,
		TimeRemaining:        s.timeRemainingLocked(),
	}
	v.TimeRemainingSeconds = int(v.TimeRemaining / time.Second)
	if !s.state.Phase.Terminal() && s.state.CurrentQuestionIndex < len(s.questions) {
		q := s.questions[s.state.CurrentQuestionIndex]
		v.CurrentQuestion = &q
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		v.StartedAt = &t
	}
	return v
}

// timeRemainingLocked is the full duration before the countdown starts and 0 once terminal.
func (s *Session) timeRemainingLocked() time.Duration {
	switch {
	case s.state.Phase.Terminal():
		return 0
	case s.deadline.IsZero():
		return s.settings.Duration()
	}
	if d := s.deadline.Sub(s.clock()); d > 0 {
		return d
	}
	return 0
}

// holdPaste stores a paste signal for the next answer, replacing any earlier one.
func (s *Session) holdPaste(sig domain.PasteSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase.Terminal() {
		return domain.ErrSessionClosed
	}
	s.paste = &sig
	return nil
}

// pendingAnswer is what beginAnswer hands to the evaluator.
type pendingAnswer struct {
	question domain.Question
	paste    *domain.PasteSignal
	first    bool
}

// beginAnswer marks an answer in flight and consumes the held paste signal.
func (s *Session) beginAnswer() (pendingAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.state.Phase == PhaseAwaitingFirstAnswer
	if err := s.apply(AnswerSubmitted{}); err != nil {
		return pendingAnswer{}, err
	}
	p := pendingAnswer{question: s.questions[s.state.CurrentQuestionIndex], paste: s.paste, first: first}
	s.paste = nil
	return p, nil
}

// finishAnswer records the evaluated score and returns the resulting state.
func (s *Session) finishAnswer(score domain.AnswerScore) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(AnswerAccepted{Score: score}); err != nil {
		return s.state, err
	}
	if s.state.Phase.Terminal() {
		s.stopTimerLocked()
	}
	return s.state, nil
}

// startTimer arms the countdown once. onExpire runs on the timer goroutine
// only if the expiry changed the phase.
func (s *Session) startTimer(d time.Duration, onExpire func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil || d <= 0 {
		return
	}
	s.startedAt = s.clock().UTC()
	s.deadline = s.startedAt.Add(d)
	s.timer = time.AfterFunc(d, func() {
		if s.expire() && onExpire != nil {
			onExpire(s)
		}
	})
}

// expire applies TimerExpired and reports whether the phase changed.
func (s *Session) expire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.state.Phase
	_ = s.apply(TimerExpired{})
	return before != s.state.Phase
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Stop releases the countdown timer.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Answers = append([]domain.AnswerScore(nil), s.state.Answers...)
	return st
}
