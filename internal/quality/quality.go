// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package quality computes the multi-factor acceptance score that gates items
// before any expensive processing. The four sub-scores are independent and
// each computable in isolation; a failing sub-scorer degrades to a neutral
// default rather than aborting the item, so Score never returns an error.
package quality

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/signal-engine/pkg/types"
)

// defaultClickbaitPhrases is the built-in lexical pattern list. Matching is
// case-insensitive against the title.
var defaultClickbaitPhrases = []string{
	"you won't believe",
	"you wont believe",
	"click here",
	"shocking",
	"this one trick",
	"what happens next",
	"doctors hate",
	"number one reason",
	"will blow your mind",
	"going viral",
	"must see",
	"jaw-dropping",
}

// contentScoreBase is the content score at exactly MinBodyChars; the score
// ramps linearly from there to 1.0 at FullScoreChars.
const contentScoreBase = 0.3

// languagePenalty multiplies the content score when the detected language
// differs from the target language.
const languagePenalty = 0.5

// LanguageDetector detects the language of a text sample. It is an external
// capability; a nil detector or a detector error means the language check
// passes.
type LanguageDetector func(text string) (string, error)

// Scorer computes quality scores with a fixed, versioned configuration so
// outputs stay reproducible.
type Scorer struct {
	cfg     types.QualityConfig
	phrases []string
	detect  LanguageDetector
}

// NewScorer validates the configuration and returns a Scorer. The detector
// may be nil.
func NewScorer(cfg types.QualityConfig, detect LanguageDetector) (*Scorer, error) {
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if cfg.DefaultReliability == 0 {
		cfg.DefaultReliability = 0.5
	}
	if cfg.MinBodyChars == 0 {
		cfg.MinBodyChars = 100
	}
	if cfg.FullScoreChars <= cfg.MinBodyChars {
		cfg.FullScoreChars = cfg.MinBodyChars + 1900
	}
	if cfg.QualityThreshold == 0 {
		cfg.QualityThreshold = 0.6
	}
	if cfg.ClickbaitCeiling == 0 {
		cfg.ClickbaitCeiling = 0.7
	}

	phrases := cfg.ClickbaitPhrases
	if len(phrases) == 0 {
		phrases = defaultClickbaitPhrases
	}

	return &Scorer{cfg: cfg, phrases: phrases, detect: detect}, nil
}

// Score computes all four sub-scores and the weighted overall score for item.
func (s *Scorer) Score(item *types.ContentItem) types.QualityScore {
	q := types.QualityScore{
		SourceReliability: s.sourceReliability(item.SourceID),
		ContentScore:      s.contentScore(item.Body),
		ClickbaitScore:    s.clickbaitScore(item.Title),
		RelevanceScore:    s.relevanceScore(item),
	}

	w := s.cfg.Weights
	q.OverallScore = w.Reliability*q.SourceReliability +
		w.Content*q.ContentScore +
		w.AntiClickbait*(1-q.ClickbaitScore) +
		w.Relevance*q.RelevanceScore

	return q
}

// Approved reports whether a scored item passes the acceptance gate: overall
// score at or above the threshold and clickbait at or below the ceiling. The
// threshold boundary is inclusive.
func (s *Scorer) Approved(q types.QualityScore) bool {
	return q.OverallScore >= s.cfg.QualityThreshold && q.ClickbaitScore <= s.cfg.ClickbaitCeiling
}

func (s *Scorer) sourceReliability(sourceID string) float64 {
	if v, ok := s.cfg.SourceReliability[strings.ToLower(sourceID)]; ok {
		return v
	}
	return s.cfg.DefaultReliability
}

func (s *Scorer) contentScore(body string) float64 {
	// Length limits are in characters, not bytes, so multi-byte text is not
	// overcounted.
	n := utf8.RuneCountInString(body)
	if n < s.cfg.MinBodyChars {
		return 0
	}

	ramp := float64(n-s.cfg.MinBodyChars) / float64(s.cfg.FullScoreChars-s.cfg.MinBodyChars)
	score := contentScoreBase + (1-contentScoreBase)*math.Min(1.0, ramp)

	if s.detect != nil && s.cfg.TargetLanguage != "" {
		lang, err := s.detect(body)
		if err == nil && lang != "" && lang != s.cfg.TargetLanguage {
			score *= languagePenalty
		}
	}

	return score
}

// clickbaitScore combines phrase matches, all-caps word ratio, and
// exclamation density into a value in [0, 1]. Higher is more clickbait-like.
func (s *Scorer) clickbaitScore(title string) float64 {
	if title == "" {
		return 0
	}
	lower := strings.ToLower(title)

	var phraseHits float64
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			phraseHits++
		}
	}
	phrase := math.Min(1.0, 0.5*phraseHits)

	caps := capsRatio(title)

	excl := math.Min(1.0, float64(strings.Count(title, "!"))/3.0)

	return math.Min(1.0, 0.5*phrase+0.35*caps+0.15*excl)
}

// capsRatio returns the fraction of words of four or more letters written
// entirely in upper case. Short words (acronyms like "US", "AI") are ignored.
func capsRatio(title string) float64 {
	var eligible, upper int
	for _, word := range strings.Fields(title) {
		letters := 0
		allUpper := true
		for _, r := range word {
			if unicode.IsLetter(r) {
				letters++
				if !unicode.IsUpper(r) {
					allUpper = false
				}
			}
		}
		if letters < 4 {
			continue
		}
		eligible++
		if allUpper {
			upper++
		}
	}
	if eligible == 0 {
		return 0
	}
	return float64(upper) / float64(eligible)
}

// relevanceScore returns the fraction of subject tags (or their configured
// synonyms) present in the title and body. An item with no subject tags is
// vacuously relevant.
func (s *Scorer) relevanceScore(item *types.ContentItem) float64 {
	if len(item.SubjectTags) == 0 {
		return 1.0
	}

	haystack := strings.ToLower(item.Title + " " + item.Body)
	matched := 0
	for _, tag := range item.SubjectTags {
		if tagPresent(haystack, strings.ToLower(tag), s.cfg.Synonyms[strings.ToLower(tag)]) {
			matched++
		}
	}

	return math.Min(1.0, float64(matched)/float64(len(item.SubjectTags)))
}

func tagPresent(haystack, tag string, synonyms []string) bool {
	if tag != "" && strings.Contains(haystack, tag) {
		return true
	}
	for _, syn := range synonyms {
		if syn != "" && strings.Contains(haystack, strings.ToLower(syn)) {
			return true
		}
	}
	return false
}
