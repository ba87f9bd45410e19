package matching

import (
	"strings"
	"unicode"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/utils"
)

// Preferences narrow a contextual match request. Empty fields are unset.
type Preferences struct {
	Sector   string `json:"sector,omitempty" mapstructure:"sector"`
	Language string `json:"language,omitempty" mapstructure:"language"`
	Format   string `json:"format,omitempty" mapstructure:"format"`
	Emirate  string `json:"emirate,omitempty" mapstructure:"emirate"`
}

// Scoring reports whether any preference affects contextual scoring.
func (p Preferences) Scoring() bool {
	return strings.TrimSpace(p.Sector) != "" ||
		strings.TrimSpace(p.Language) != "" ||
		strings.TrimSpace(p.Format) != ""
}

func (p Preferences) key() string {
	return normalize(p.Sector) + "|" + normalize(p.Language) + "|" + normalize(p.Format) + "|" + normalize(p.Emirate)
}

// Weights control how sub-scores combine into one contextual score.
type Weights struct {
	Sector   float64 `mapstructure:"sector"`
	Language float64 `mapstructure:"language"`
	Format   float64 `mapstructure:"format"`
	Cultural float64 `mapstructure:"cultural"`
}

// DefaultWeights favour sector fit, then language and cultural fit equally.
func DefaultWeights() Weights {
	return Weights{Sector: 0.35, Language: 0.25, Format: 0.15, Cultural: 0.25}
}

func (w Weights) sum() float64 {
	return w.Sector + w.Language + w.Format + w.Cultural
}

// Combine returns the weighted average of s. Weights are normalized by their
// sum; non-positive totals fall back to DefaultWeights.
func (w Weights) Combine(s SubScores) float64 {
	if w.Sector < 0 || w.Language < 0 || w.Format < 0 || w.Cultural < 0 || w.sum() <= 0 {
		w = DefaultWeights()
	}
	total := w.Sector*s.Sector + w.Language*s.Language + w.Format*s.Format + w.Cultural*s.Cultural
	return utils.Clamp01(total / w.sum())
}

type keyword struct {
	name    string
	aliases []string
}

type dictionary []keyword

var (
	sectorKeywords = dictionary{
		{name: "technology", aliases: []string{"technology", "tech", "software"}},
		{name: "finance", aliases: []string{"finance", "financial", "banking", "fintech"}},
		{name: "oil and gas", aliases: []string{"oil and gas", "oil & gas", "energy", "petroleum"}},
		{name: "government", aliases: []string{"government", "public sector", "ministry"}},
		{name: "healthcare", aliases: []string{"healthcare", "health", "medical", "hospital"}},
		{name: "education", aliases: []string{"education", "school", "university", "academic"}},
		{name: "hospitality", aliases: []string{"hospitality", "hotel", "tourism"}},
		{name: "real estate", aliases: []string{"real estate", "property"}},
		{name: "retail", aliases: []string{"retail", "e-commerce", "ecommerce"}},
		{name: "consulting", aliases: []string{"consulting", "advisory"}},
	}

	languageKeywords = dictionary{
		{name: "arabic", aliases: []string{"arabic"}},
		{name: "english", aliases: []string{"english"}},
		{name: "french", aliases: []string{"french"}},
		{name: "hindi", aliases: []string{"hindi"}},
		{name: "urdu", aliases: []string{"urdu"}},
		{name: "russian", aliases: []string{"russian"}},
		{name: "mandarin", aliases: []string{"mandarin", "chinese"}},
		{name: "spanish", aliases: []string{"spanish"}},
		{name: "german", aliases: []string{"german"}},
		{name: "tagalog", aliases: []string{"tagalog", "filipino"}},
		{name: "persian", aliases: []string{"persian", "farsi"}},
	}

	languageCapabilities = dictionary{
		{name: "bilingual", aliases: []string{"bilingual"}},
		{name: "multilingual", aliases: []string{"multilingual", "polyglot"}},
		{name: "trilingual", aliases: []string{"trilingual"}},
	}

	formatKeywords = dictionary{
		{name: "virtual", aliases: []string{"virtual", "online", "remote", "zoom"}},
		{name: "hybrid", aliases: []string{"hybrid", "blended"}},
		{name: "in-person", aliases: []string{"in-person", "in person", "onsite", "on-site", "face-to-face", "classroom"}},
	}

	culturalKeywords = dictionary{
		{name: "cross-cultural", aliases: []string{"cross-cultural", "cross cultural", "intercultural"}},
		{name: "multicultural", aliases: []string{"multicultural", "multi-cultural"}},
		{name: "gcc", aliases: []string{"gcc", "gulf"}},
		{name: "middle east", aliases: []string{"middle east", "mena"}},
		{name: "uae", aliases: []string{"uae", "united arab emirates"}},
		{name: "emirati", aliases: []string{"emirati", "emiratisation", "emiratization"}},
		{name: "arab", aliases: []string{"arab"}},
		{name: "expat", aliases: []string{"expat", "expatriate"}},
		{name: "international", aliases: []string{"international", "global"}},
		{name: "diverse", aliases: []string{"diverse", "diversity"}},
		{name: "local market", aliases: []string{"local market"}},
		{name: "regional", aliases: []string{"regional"}},
	}
)

type signals map[string]struct{}

func (s signals) has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s signals) shares(other signals) bool {
	for name := range s {
		if other.has(name) {
			return true
		}
	}
	return false
}

// text is a normalized, space padded document used for phrase lookups.
type text string

func newText(parts ...string) text {
	var b strings.Builder
	b.WriteByte(' ')
	for _, part := range parts {
		for _, r := range strings.ToLower(part) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '&' {
				b.WriteRune(r)
				continue
			}
			b.WriteByte(' ')
		}
		b.WriteByte(' ')
	}
	return text(" " + strings.Join(strings.Fields(b.String()), " ") + " ")
}

func (t text) mentions(phrase string) bool {
	phrase = strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	if phrase == "" {
		return false
	}
	return strings.Contains(string(t), " "+phrase+" ")
}

func (d dictionary) detect(t text) signals {
	found := signals{}
	for _, kw := range d {
		for _, alias := range kw.aliases {
			if t.mentions(alias) {
				found[kw.name] = struct{}{}
				break
			}
		}
	}
	return found
}

// canonical maps a preference onto a dictionary entry, so "remote" and
// "virtual" are the same format.
func (d dictionary) canonical(pref string) (keyword, bool) {
	pref = normalize(pref)
	for _, kw := range d {
		if kw.name == pref {
			return kw, true
		}
		for _, alias := range kw.aliases {
			if alias == pref {
				return kw, true
			}
		}
	}
	return keyword{}, false
}

func (d dictionary) mentions(t text, pref string) bool {
	if kw, ok := d.canonical(pref); ok {
		for _, alias := range kw.aliases {
			if t.mentions(alias) {
				return true
			}
		}
		return false
	}
	return t.mentions(pref)
}

// ContextualScorer computes sector, language, format and cultural sub-scores
// from keyword presence in the profile and job texts.
type ContextualScorer struct {
	Weights Weights
}

// Score returns the sub-scores of a pair. Missing text only weakens the
// affected dimensions.
func (c ContextualScorer) Score(p domain.Profile, j domain.Job, prefs Preferences) SubScores {
	profile := newText(p.Title, p.Bio, p.IndustryFocus, p.Location)
	job := newText(j.Title, j.Description, j.Requirements, j.Location, j.Region)

	language := languageScore(profile, job, prefs.Language)

	return SubScores{
		Sector:   dimensionScore(sectorKeywords, profile, job, prefs.Sector),
		Language: language,
		Format:   formatScore(profile, job, prefs.Format),
		Cultural: culturalScore(p, j, profile, job, prefs, language),
	}
}

// Overall combines the sub-scores with the scorer's weights.
func (c ContextualScorer) Overall(s SubScores) float64 {
	return c.Weights.Combine(s)
}

func dimensionScore(d dictionary, profile, job text, pref string) float64 {
	if strings.TrimSpace(pref) != "" {
		return preferenceScore(d.mentions(profile, pref), d.mentions(job, pref))
	}
	return overlapScore(d.detect(profile), d.detect(job))
}

func preferenceScore(profile, job bool) float64 {
	switch {
	case profile && job:
		return 1.0
	case profile || job:
		return 0.6
	default:
		return 0.1
	}
}

func overlapScore(profile, job signals) float64 {
	switch {
	case profile.shares(job):
		return 1.0
	case len(profile) > 0 && len(job) > 0:
		return 0.2
	case len(profile) > 0 || len(job) > 0:
		return 0.4
	default:
		return 0.3
	}
}

func languageScore(profile, job text, pref string) float64 {
	if strings.TrimSpace(pref) != "" {
		return dimensionScore(languageKeywords, profile, job, pref)
	}

	profileLangs, jobLangs := languageKeywords.detect(profile), languageKeywords.detect(job)
	profileCaps, jobCaps := languageCapabilities.detect(profile), languageCapabilities.detect(job)

	// A stated capability satisfies a side that names several languages.
	if len(profileCaps) > 0 && len(jobLangs) >= 2 || len(jobCaps) > 0 && len(profileLangs) >= 2 {
		return 1.0
	}

	return overlapScore(union(profileLangs, profileCaps), union(jobLangs, jobCaps))
}

func formatScore(profile, job text, pref string) float64 {
	if strings.TrimSpace(pref) != "" {
		return dimensionScore(formatKeywords, profile, job, pref)
	}

	profileFormats, jobFormats := formatKeywords.detect(profile), formatKeywords.detect(job)
	if !profileFormats.shares(jobFormats) && (flexible(profileFormats, jobFormats) || flexible(jobFormats, profileFormats)) {
		return 0.7
	}
	return overlapScore(profileFormats, jobFormats)
}

// flexible reports whether a hybrid side can serve the other side's format.
func flexible(a, b signals) bool {
	return a.has("hybrid") && (b.has("virtual") || b.has("in-person"))
}

func culturalScore(p domain.Profile, j domain.Job, profile, job text, prefs Preferences, language float64) float64 {
	profileSignal := len(culturalKeywords.detect(profile)) > 0
	location := newText(p.Location)
	for _, place := range []string{j.Region, prefs.Emirate} {
		if location.mentions(place) {
			profileSignal = true
		}
	}
	jobSignal := len(culturalKeywords.detect(job)) > 0

	var keywords float64
	switch {
	case profileSignal && jobSignal:
		keywords = 1.0
	case profileSignal || jobSignal:
		keywords = 0.6
	default:
		keywords = 0.2
	}

	return utils.Clamp01(0.5*language + 0.5*keywords)
}

func union(a, b signals) signals {
	out := make(signals, len(a)+len(b))
	for name := range a {
		out[name] = struct{}{}
	}
	for name := range b {
		out[name] = struct{}{}
	}
	return out
}
