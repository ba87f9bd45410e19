package matching

import (
	"strings"
	"unicode"

	"github.com/spigell/match-engine/internal/domain"
)

// minTermLength is the shortest bio word considered a significant term.
const minTermLength = 4

var stopWords = map[string]struct{}{
	"about": {}, "ability": {}, "also": {}, "and": {}, "based": {}, "business": {},
	"client": {}, "clients": {}, "company": {}, "customer": {}, "customers": {},
	"experience": {}, "experienced": {}, "from": {}, "have": {}, "into": {},
	"looking": {}, "manage": {}, "management": {}, "manager": {}, "more": {},
	"must": {}, "over": {}, "professional": {}, "required": {}, "responsible": {},
	"role": {}, "seeking": {}, "services": {}, "skills": {}, "strong": {},
	"support": {}, "team": {}, "teams": {}, "that": {}, "their": {}, "this": {},
	"will": {}, "with": {}, "within": {}, "work": {}, "working": {}, "years": {},
}

const (
	titleWeight    = 0.3
	bioWeight      = 0.2
	industryWeight = 0.2
	locationWeight = 0.3
)

// HeuristicFactors records which field overlaps matched.
type HeuristicFactors struct {
	Title    bool
	Bio      bool
	Industry bool
	Location bool
}

// Score sums the weights of the matched factors.
func (f HeuristicFactors) Score() float64 {
	var score float64
	if f.Title {
		score += titleWeight
	}
	if f.Bio {
		score += bioWeight
	}
	if f.Industry {
		score += industryWeight
	}
	if f.Location {
		score += locationWeight
	}
	return score
}

// Heuristic compares profile and job fields. Comparisons are case-insensitive
// on trimmed text and an empty field never matches.
func Heuristic(p domain.Profile, j domain.Job) HeuristicFactors {
	title := normalize(p.Title)
	bio := normalize(p.Bio)
	industry := normalize(p.IndustryFocus)
	location := normalize(p.Location)

	description := normalize(j.Description)
	requirements := normalize(j.Requirements)

	return HeuristicFactors{
		Title:    contains(normalize(j.Title), title),
		Bio:      contains(description, bio) || contains(requirements, bio) || sharesTerm(bio, description, requirements),
		Industry: contains(description, industry),
		Location: location != "" && location == normalize(j.Location),
	}
}

// HeuristicScore is the deterministic fallback score of a pair.
func HeuristicScore(p domain.Profile, j domain.Job) float64 {
	return Heuristic(p, j).Score()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}

// sharesTerm reports whether any significant word of text appears as a word
// in one of the others.
func sharesTerm(text string, others ...string) bool {
	terms := significantTerms(text)
	if len(terms) == 0 {
		return false
	}
	for _, other := range others {
		for _, word := range words(other) {
			if _, ok := terms[word]; ok {
				return true
			}
		}
	}
	return false
}

func significantTerms(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range words(text) {
		if len([]rune(word)) < minTermLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		terms[word] = struct{}{}
	}
	return terms
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
