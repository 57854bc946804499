package domain

// Level is an ordinal proficiency band.
type Level string

const (
	Level1 Level = "Level 1"
	Level2 Level = "Level 2"
	Level3 Level = "Level 3"
)

// Rank converts a level into its numeric rank (Level 1 = 1 ... Level 3 = 3).
// Unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case Level1:
		return 1
	case Level2:
		return 2
	case Level3:
		return 3
	default:
		return 0
	}
}

// Valid reports whether l is one of the three known bands.
func (l Level) Valid() bool { return l.Rank() > 0 }

// LevelThresholds are the inclusive lower bounds for Level 3 and Level 2.
type LevelThresholds struct {
	Level3 float64
	Level2 float64
}

// DefaultLevelThresholds matches the published score guide: 80-100, 40-79, 1-39.
var DefaultLevelThresholds = LevelThresholds{Level3: 80, Level2: 40}

// LevelFor maps a score onto a level. Both per-answer and session scores go through here.
func (t LevelThresholds) LevelFor(score float64) Level {
	switch {
	case score >= t.Level3:
		return Level3
	case score >= t.Level2:
		return Level2
	default:
		return Level1
	}
}
