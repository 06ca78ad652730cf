// Package guardrail classifies user input before it reaches the
// model: known jailbreak phrasing first, then a profanity score.
package guardrail

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	goaway "github.com/TwiN/go-away"
)

// Reason codes carried on a negative Outcome.
const (
	ReasonJailbreak = "jailbreak"
	ReasonProfanity = "profanity"
)

// DefaultProfanityThreshold is deliberately high: ordinary clinical
// language must not trip the filter.
const DefaultProfanityThreshold = 0.98

// Outcome is the classification result. Exactly one negative reason
// can fire; jailbreak is checked first and short-circuits scoring.
type Outcome struct {
	Valid  bool
	Reason string
}

// Scorer produces a profanity probability in [0,1] for a text.
type Scorer interface {
	ProfanityProbability(text string) float64
}

// Validator gates the chat pipeline. Stateless after construction;
// safe for concurrent use.
type Validator struct {
	pattern   *regexp.Regexp
	scorer    Scorer
	threshold float64
	logger    *log.Logger
}

// NewValidator compiles the phrase pattern once. An empty phrase list
// falls back to DefaultJailbreakPhrases; a nil scorer falls back to
// the lexicon scorer; a zero threshold falls back to the default.
func NewValidator(phrases []string, scorer Scorer, threshold float64, logger *log.Logger) (*Validator, error) {
	if len(phrases) == 0 {
		phrases = DefaultJailbreakPhrases
	}
	if scorer == nil {
		scorer = NewLexiconScorer()
	}
	if threshold == 0 {
		threshold = DefaultProfanityThreshold
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[GUARDRAIL] ", log.LstdFlags)
	}

	quoted := make([]string, len(phrases))
	for i, phrase := range phrases {
		quoted[i] = regexp.QuoteMeta(phrase)
	}
	pattern, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compiling jailbreak pattern: %w", err)
	}

	return &Validator{pattern: pattern, scorer: scorer, threshold: threshold, logger: logger}, nil
}

// Validate classifies the input. A jailbreak phrase hit returns
// immediately without profanity scoring.
func (v *Validator) Validate(text string) Outcome {
	if v.pattern.MatchString(text) {
		v.logger.Printf("potential jailbreak attempt detected: %s", text)
		return Outcome{Valid: false, Reason: ReasonJailbreak}
	}

	prob := v.scorer.ProfanityProbability(text)
	v.logger.Printf("profanity probability: %v", prob)
	if prob > v.threshold {
		v.logger.Printf("potential profanity detected: %s", text)
		return Outcome{Valid: false, Reason: ReasonProfanity}
	}

	return Outcome{Valid: true, Reason: ""}
}

// LexiconScorer scores against go-away's profanity lexicon. The
// detector is deterministic, so the probability collapses to the
// extremes: 1 for a lexicon hit, 0 otherwise. Combined with the high
// threshold this means only unambiguous profanity is rejected.
type LexiconScorer struct {
	detector *goaway.ProfanityDetector
}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{detector: goaway.NewProfanityDetector()}
}

func (s *LexiconScorer) ProfanityProbability(text string) float64 {
	if s.detector.IsProfane(text) {
		return 1
	}
	return 0
}
