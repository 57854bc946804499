package stub_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai"
	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

func TestStub_ProducesParseableVerdicts(t *testing.T) {
	c := &stub.Client{}
	scorer := ai.NewScorer(c, 0)

	short, err := scorer.Score(context.Background(), domain.OracleRequest{QuestionText: "q", AnswerText: "no idea"})
	require.NoError(t, err)
	long, err := scorer.Score(context.Background(), domain.OracleRequest{
		QuestionText: "q",
		AnswerText:   strings.Repeat("detailed reasoning ", 20),
		Paste:        &domain.PasteSignal{WasPasted: true, PastedLength: 80},
	})
	require.NoError(t, err)

	assert.Equal(t, 32.0, short.TechnicalAccuracy)
	assert.Equal(t, 70.0, long.TechnicalAccuracy)
	assert.False(t, long.AIDetected)
}

func TestStub_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := stub.New().ChatJSON(ctx, "", "", 0)
	assert.ErrorIs(t, err, context.Canceled)
}
