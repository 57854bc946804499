package usecase

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Distribution is the requested difficulty mix in percent.
type Distribution struct {
	EasyPct   int
	MediumPct int
	HardPct   int
}

// DistributionFrom extracts the difficulty mix from interview settings.
func DistributionFrom(s domain.Settings) Distribution {
	return Distribution{EasyPct: s.EasyPct, MediumPct: s.MediumPct, HardPct: s.HardPct}
}

func (d Distribution) target(diff domain.Difficulty, total int) int {
	pct := d.MediumPct
	switch diff {
	case domain.DifficultyEasy:
		pct = d.EasyPct
	case domain.DifficultyHard:
		pct = d.HardPct
	}
	return int(math.Round(float64(pct) / 100 * float64(total)))
}

// QuestionSelector samples an interview from a question pool.
type QuestionSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewQuestionSelector returns a selector. A nil rng uses the process-wide source.
func NewQuestionSelector(rng *rand.Rand) *QuestionSelector {
	return &QuestionSelector{rng: rng}
}

func (s *QuestionSelector) shuffle(n int, swap func(i, j int)) {
	if s == nil || s.rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

// Select draws up to total questions following dist. The pool is not modified.
// Returned questions carry fresh ids 1..n in presentation order.
func (s *QuestionSelector) Select(pool []domain.Question, dist Distribution, total int) []domain.Question {
	if total <= 0 || len(pool) == 0 {
		return []domain.Question{}
	}

	// buckets hold pool indexes so backfill can tell which questions were taken
	buckets := map[domain.Difficulty][]int{}
	for i, q := range pool {
		d := domain.ParseDifficulty(string(q.Difficulty))
		buckets[d] = append(buckets[d], i)
	}

	taken := make([]bool, len(pool))
	picked := make([]int, 0, total)
	for _, diff := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		idx := buckets[diff]
		s.shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		n := min(dist.target(diff, total), len(idx))
		for _, p := range idx[:n] {
			taken[p] = true
			picked = append(picked, p)
		}
	}

	if len(picked) < total {
		rest := make([]int, 0, len(pool)-len(picked))
		for i := range pool {
			if !taken[i] {
				rest = append(rest, i)
			}
		}
		s.shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		need := min(total-len(picked), len(rest))
		picked = append(picked, rest[:need]...)
	}

	s.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > total {
		picked = picked[:total]
	}

	out := make([]domain.Question, len(picked))
	for i, p := range picked {
		q := pool[p]
		q.ID = i + 1
		out[i] = q
	}
	return out
}
