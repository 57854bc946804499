// Package mocks provides testify mocks for the domain ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// QuestionRepository mocks domain.QuestionRepository.
type QuestionRepository struct{ mock.Mock }

func NewQuestionRepository(t testingT) *QuestionRepository {
	m := &QuestionRepository{}
	register(&m.Mock, t)
	return m
}

func (m *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	args := m.Called(ctx)
	qs, _ := args.Get(0).([]domain.Question)
	return qs, args.Error(1)
}

// SettingsRepository mocks domain.SettingsRepository.
type SettingsRepository struct{ mock.Mock }

func NewSettingsRepository(t testingT) *SettingsRepository {
	m := &SettingsRepository{}
	register(&m.Mock, t)
	return m
}

func (m *SettingsRepository) GetSettings(ctx context.Context) (domain.Settings, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(domain.Settings)
	return s, args.Error(1)
}

// ResultRepository mocks domain.ResultRepository.
type ResultRepository struct{ mock.Mock }

func NewResultRepository(t testingT) *ResultRepository {
	m := &ResultRepository{}
	register(&m.Mock, t)
	return m
}

func (m *ResultRepository) FindByCandidate(ctx context.Context, key string) (domain.SessionResult, error) {
	args := m.Called(ctx, key)
	r, _ := args.Get(0).(domain.SessionResult)
	return r, args.Error(1)
}

func (m *ResultRepository) Save(ctx context.Context, r domain.SessionResult) error {
	return m.Called(ctx, r).Error(0)
}

// CandidateRepository mocks domain.CandidateRepository.
type CandidateRepository struct{ mock.Mock }

func NewCandidateRepository(t testingT) *CandidateRepository {
	m := &CandidateRepository{}
	register(&m.Mock, t)
	return m
}

func (m *CandidateRepository) Get(ctx context.Context, key string) (domain.Candidate, error) {
	args := m.Called(ctx, key)
	c, _ := args.Get(0).(domain.Candidate)
	return c, args.Error(1)
}

func (m *CandidateRepository) UpdateAssessmentStatus(ctx context.Context, key string, status domain.AssessmentStatus) error {
	return m.Called(ctx, key, status).Error(0)
}

// StatusNotifier mocks domain.StatusNotifier.
type StatusNotifier struct{ mock.Mock }

func NewStatusNotifier(t testingT) *StatusNotifier {
	m := &StatusNotifier{}
	register(&m.Mock, t)
	return m
}

func (m *StatusNotifier) NotifyStatus(ctx context.Context, key string, status domain.AssessmentStatus) error {
	return m.Called(ctx, key, status).Error(0)
}

// ResultPublisher mocks domain.ResultPublisher.
type ResultPublisher struct{ mock.Mock }

func NewResultPublisher(t testingT) *ResultPublisher {
	m := &ResultPublisher{}
	register(&m.Mock, t)
	return m
}

func (m *ResultPublisher) Publish(ctx context.Context, r domain.SessionResult) error {
	return m.Called(ctx, r).Error(0)
}

// SessionLock mocks domain.SessionLock.
type SessionLock struct{ mock.Mock }

func NewSessionLock(t testingT) *SessionLock {
	m := &SessionLock{}
	register(&m.Mock, t)
	return m
}

func (m *SessionLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *SessionLock) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// AIClient mocks domain.AIClient.
type AIClient struct{ mock.Mock }

func NewAIClient(t testingT) *AIClient {
	m := &AIClient{}
	register(&m.Mock, t)
	return m
}

func (m *AIClient) ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, maxTokens)
	return args.String(0), args.Error(1)
}

// ScoringOracle mocks domain.ScoringOracle.
type ScoringOracle struct{ mock.Mock }

func NewScoringOracle(t testingT) *ScoringOracle {
	m := &ScoringOracle{}
	register(&m.Mock, t)
	return m
}

func (m *ScoringOracle) Score(ctx context.Context, req domain.OracleRequest) (domain.OracleScore, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(domain.OracleScore)
	return s, args.Error(1)
}
