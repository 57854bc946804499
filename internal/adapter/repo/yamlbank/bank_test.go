package yamlbank

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

const sample = `
questions:
  - section: Technical Competencies
    difficulty: Easy
    question: What is the difference between let and const?
  - difficulty: hard
    question: |
      Design a cache for a read-heavy service.
  - question: What is the difference between let and const?
  - section: Behavioral & Soft Skills
    question: Tell us about a time you disagreed with a teammate.
`

func TestParse(t *testing.T) {
	qs, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, qs, 3)

	assert.Equal(t, domain.Question{
		Section: domain.SectionTechnical, Difficulty: domain.DifficultyEasy,
		Text: "What is the difference between let and const?",
	}, qs[0])
	assert.Equal(t, "Design a cache for a read-heavy service.", qs[1].Text)
	assert.Equal(t, domain.SectionGeneral, qs[1].Section)
	assert.Equal(t, domain.DifficultyHard, qs[1].Difficulty)
	assert.Equal(t, domain.DifficultyMedium, qs[2].Difficulty)
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse(strings.NewReader("questions:\n  - question: \"  \"\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Parse(strings.NewReader("questions:\n  - text: wrong key\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	qs, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, qs)
}

func TestMarshal_ParsesBack(t *testing.T) {
	in := []domain.Question{
		{Section: domain.SectionScenario, Difficulty: domain.DifficultyHard, Text: "Debug a memory leak."},
		{Section: domain.SectionGeneral, Difficulty: domain.DifficultyEasy, Text: "What is HTTP?"},
	}
	b, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), "question: Debug a memory leak.")
	assert.NotContains(t, string(b), "id:")

	out, err := Parse(strings.NewReader(string(b)))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestRepo_ListQuestionsReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	r, err := NewRepo(path)
	require.NoError(t, err)
	qs, err := r.ListQuestions(context.Background())
	require.NoError(t, err)
	require.Len(t, qs, 3)
	qs[0].Text = "mutated"

	again, _ := r.ListQuestions(context.Background())
	assert.NotEqual(t, "mutated", again[0].Text)

	_, err = NewRepo(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
