package selector

import (
	"regexp"
	"strings"
)

// Complexity is the tier a request is bucketed into for backend selection.
type Complexity int

const (
	Simple Complexity = iota
	Standard
	Complex
	Critical
)

func (c Complexity) String() string {
	switch c {
	case Simple:
		return "simple"
	case Standard:
		return "standard"
	case Complex:
		return "complex"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseComplexity parses a tier name as used in config files.
func ParseComplexity(s string) (Complexity, bool) {
	switch strings.ToLower(s) {
	case "simple":
		return Simple, true
	case "standard":
		return Standard, true
	case "complex":
		return Complex, true
	case "critical":
		return Critical, true
	}
	return Simple, false
}

// BucketScore maps a normalized score in [0,1] to a complexity tier.
func BucketScore(score float64) Complexity {
	switch {
	case score < 0.3:
		return Simple
	case score < 0.6:
		return Standard
	case score < 0.85:
		return Complex
	default:
		return Critical
	}
}

// DefaultComplexKeywords mark requests that need reasoning or generation.
// The assistant's primary audience speaks Polish, so the sets are Polish.
var DefaultComplexKeywords = []string{
	"wyjaśnij", "porównaj", "przeanalizuj", "uzasadnij", "zaprojektuj",
	"utwórz", "zaimplementuj", "kod", "program", "algorytm", "dlaczego",
	"jakie są przyczyny", "co by się stało gdyby",
}

// DefaultCriticalKeywords mark requests that must go to the most capable backend.
var DefaultCriticalKeywords = []string{
	"pilne", "krytyczne", "ważne", "pomoc medyczna", "zagrożenie", "alert",
	"przeprowadź analizę", "złożony problem", "optymalizacja", "zrównoleglenie",
}

var (
	codeSyntaxRe = regexp.MustCompile(`[\[\]\(\)\{\}]`)
	decimalRe    = regexp.MustCompile(`\d+[\.,]\d+`)
)

// Scorer estimates how demanding a request is. The score combines query
// length, weighted keyword hits, structural signals (code-like characters,
// multi-line bodies, decimal numbers) and system-prompt size, normalized
// into [0,1].
type Scorer struct {
	complexKeywords  []string
	criticalKeywords []string
}

// NewScorer creates a scorer. Nil keyword slices fall back to the defaults.
func NewScorer(complexKeywords, criticalKeywords []string) *Scorer {
	if complexKeywords == nil {
		complexKeywords = DefaultComplexKeywords
	}
	if criticalKeywords == nil {
		criticalKeywords = DefaultCriticalKeywords
	}
	return &Scorer{
		complexKeywords:  complexKeywords,
		criticalKeywords: criticalKeywords,
	}
}

// Score computes the normalized complexity score and its tier for a query
// plus optional system prompt.
func (s *Scorer) Score(query, systemPrompt string) (float64, Complexity) {
	score := 0.0

	switch n := len(query); {
	case n < 50:
		score += 0.2
	case n < 200:
		score += 0.5
	default:
		score += 0.8
	}

	lower := strings.ToLower(query)
	keywordScore := 0.0
	criticalHit := false
	for _, kw := range s.complexKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			keywordScore += 0.2
		}
	}
	for _, kw := range s.criticalKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			keywordScore += 0.4
			criticalHit = true
		}
	}
	if keywordScore > 1.0 {
		keywordScore = 1.0
	}
	score += keywordScore

	if codeSyntaxRe.MatchString(query) {
		score += 0.3
	}
	if strings.Count(query, "\n") > 3 {
		score += 0.3
	}
	if decimalRe.MatchString(query) {
		score += 0.2
	}
	if len(systemPrompt) > 200 {
		score += 0.3
	}

	normalized := score / 3.0
	if normalized > 1.0 {
		normalized = 1.0
	}
	level := BucketScore(normalized)

	// A critical keyword must never leave the request in the cheapest tier,
	// even when the query is otherwise short and plain.
	if criticalHit && level == Simple {
		level = Standard
	}
	return normalized, level
}
