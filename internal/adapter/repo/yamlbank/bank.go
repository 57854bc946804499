// Package yamlbank loads the interview question bank from a YAML file.
package yamlbank

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// File is the on-disk layout:
//
//	questions:
//	  - section: Technical Competencies
//	    difficulty: Easy
//	    question: What is a closure?
type File struct {
	Questions []domain.Question `yaml:"questions"`
}

// Parse decodes and normalizes a bank. Unknown fields and blank questions are rejected.
func Parse(r io.Reader) ([]domain.Question, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Question{}, nil
		}
		return nil, fmt.Errorf("op=yamlbank.Parse: %w: %v", domain.ErrInvalidArgument, err)
	}
	out := make([]domain.Question, 0, len(f.Questions))
	seen := map[string]bool{}
	for i, q := range f.Questions {
		q = q.Normalized()
		if q.Text == "" {
			return nil, fmt.Errorf("op=yamlbank.Parse: %w: question %d is empty", domain.ErrInvalidArgument, i+1)
		}
		if seen[q.Text] {
			continue
		}
		seen[q.Text] = true
		out = append(out, q)
	}
	return out, nil
}

// Load reads and parses the bank at path.
func Load(path string) ([]domain.Question, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=yamlbank.Load: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Marshal renders questions in the bank layout.
func Marshal(qs []domain.Question) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(File{Questions: qs}); err != nil {
		return nil, fmt.Errorf("op=yamlbank.Marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("op=yamlbank.Marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Repo serves a bank loaded once at startup as a domain.QuestionRepository.
type Repo struct {
	questions []domain.Question
}

// NewRepo loads path into memory.
func NewRepo(path string) (*Repo, error) {
	qs, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Repo{questions: qs}, nil
}

// ListQuestions returns a copy of the bank.
func (r *Repo) ListQuestions(_ domain.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(r.questions))
	copy(out, r.questions)
	return out, nil
}
