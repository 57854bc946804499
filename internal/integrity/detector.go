// Package integrity scores pasted answer fragments for signs of machine-generated text.
//
// The detector is a lexical heuristic, not a model: it counts phrase and structure
// categories typical of LLM output and adds flat bonuses for long, tidy prose.
package integrity

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// Config holds the detector's tunable thresholds.
type Config struct {
	// MinPasteLength: fragments at or below this length are not analysed.
	MinPasteLength int
	// GeneratedThreshold: confidence strictly above this marks a fragment as likely generated.
	GeneratedThreshold float64
}

// DefaultConfig matches the production thresholds.
var DefaultConfig = Config{MinPasteLength: 50, GeneratedThreshold: 0.3}

const (
	categoryWeight      = 0.6
	densityWeight       = 0.4
	densityCap          = 20.0
	longSentenceChars   = 80.0
	longSentenceBonus   = 0.2
	cleanGrammarMinLen  = 100
	cleanGrammarBonus   = 0.1
	comprehensiveMinLen = 500
	comprehensiveMinSen = 5
	comprehensiveBonus  = 0.15
	minSentenceChars    = 10
)

var categories = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(I would recommend|best practices include|it's important to note|furthermore|moreover|additionally)\b`),
	regexp.MustCompile(`(?i)\b(in conclusion|to summarize|overall|in summary)\b`),
	regexp.MustCompile(`(?i)\b(comprehensive|systematic|methodical|strategic|optimal)\b`),
	regexp.MustCompile(`(?m)^\d+\.\s.*\n\d+\.\s`),
	regexp.MustCompile(`(?m)^-\s.*\n-\s`),
	regexp.MustCompile(`\*\*.*\*\*`),
	regexp.MustCompile(`(?m)^#{1,6}\s`),
	regexp.MustCompile(`(?i)\b(utilize|facilitate|implement|establish|maintain|ensure|demonstrate)\b`),
	regexp.MustCompile(`(?i)\b(consequently|therefore|thus|hence|accordingly)\b`),
	regexp.MustCompile(`(?i)\b(industry standards|best practices|cutting-edge|state-of-the-art|robust solution)\b`),
	regexp.MustCompile(`(?i)\b(scalable|efficient|effective|optimized|streamlined)\b`),
}

var (
	informalMarkers   = regexp.MustCompile(`(?i)\b(ur|u|cant|dont|wont|shouldnt|couldnt)\b`)
	sentenceSeparator = regexp.MustCompile(`[.!?]+`)
)

// Analysis is the raw heuristic verdict for a piece of text.
type Analysis struct {
	Confidence        float64
	MatchedCategories int
	TotalMatches      int
	Sentences         int
	AvgSentenceLength float64
}

// Detector analyses paste events.
type Detector struct {
	cfg Config
	now func() time.Time
}

// New returns a Detector. Zero-valued fields in cfg fall back to DefaultConfig.
func New(cfg Config) *Detector {
	if cfg.MinPasteLength <= 0 {
		cfg.MinPasteLength = DefaultConfig.MinPasteLength
	}
	if cfg.GeneratedThreshold <= 0 {
		cfg.GeneratedThreshold = DefaultConfig.GeneratedThreshold
	}
	return &Detector{cfg: cfg, now: time.Now}
}

// Detect inspects one paste event. It returns false when the fragment is too short to judge.
// combined is accepted for parity with the input widget's paste callback and is not scored.
func (d *Detector) Detect(prior, fragment, combined string) (domain.PasteSignal, bool) {
	_ = combined
	pastedLen := utf8.RuneCountInString(fragment)
	if pastedLen <= d.cfg.MinPasteLength {
		return domain.PasteSignal{}, false
	}
	a := Analyze(fragment)
	return domain.PasteSignal{
		WasPasted:         true,
		PastedLength:      pastedLen,
		OriginalLength:    utf8.RuneCountInString(prior),
		IsLikelyGenerated: a.Confidence > d.cfg.GeneratedThreshold,
		ConfidencePercent: int(math.Round(a.Confidence * 100)),
		Timestamp:         d.now().UTC(),
	}, true
}

// Analyze computes the heuristic confidence in [0,1] that text was machine generated.
func Analyze(text string) Analysis {
	var a Analysis
	for _, re := range categories {
		n := len(re.FindAllStringIndex(text, -1))
		if n > 0 {
			a.MatchedCategories++
			a.TotalMatches += n
		}
	}

	var sentenceChars int
	for _, s := range sentenceSeparator.Split(text, -1) {
		if utf8.RuneCountInString(strings.TrimSpace(s)) > minSentenceChars {
			a.Sentences++
			sentenceChars += utf8.RuneCountInString(s)
		}
	}
	if a.Sentences > 0 {
		a.AvgSentenceLength = float64(sentenceChars) / float64(a.Sentences)
	}

	length := utf8.RuneCountInString(text)
	base := math.Min(
		float64(a.MatchedCategories)/float64(len(categories))*categoryWeight+
			float64(a.TotalMatches)/densityCap*densityWeight,
		1,
	)
	var bonus float64
	if a.AvgSentenceLength > longSentenceChars {
		bonus += longSentenceBonus
	}
	if !informalMarkers.MatchString(text) && length > cleanGrammarMinLen {
		bonus += cleanGrammarBonus
	}
	if length > comprehensiveMinLen && a.Sentences > comprehensiveMinSen {
		bonus += comprehensiveBonus
	}
	a.Confidence = math.Max(0, math.Min(base+bonus, 1))
	return a
}

// CategoryCount is the number of lexical categories the heuristic checks.
func CategoryCount() int { return len(categories) }
