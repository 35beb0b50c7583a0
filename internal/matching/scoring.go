package matching

import (
	"strings"

	"github.com/spigell/internship-recommender/internal/catalog"
)

const (
	neutralEducationScore = 0.5
	fallbackEducation     = 0.6
	remoteLocationScore   = 0.8
	otherLocationScore    = 0.3
	prestigeBase          = 0.5
)

// Weights of the five factors. They sum to 1 by default; the score is normalized by their sum anyway.
type Weights struct {
	Skills    float64 `json:"skills" mapstructure:"skills"`
	Education float64 `json:"education" mapstructure:"education"`
	Location  float64 `json:"location" mapstructure:"location"`
	Stipend   float64 `json:"stipend" mapstructure:"stipend"`
	Prestige  float64 `json:"prestige" mapstructure:"prestige"`
}

func DefaultWeights() Weights {
	return Weights{
		Skills:    0.4,
		Education: 0.25,
		Location:  0.15,
		Stipend:   0.1,
		Prestige:  0.1,
	}
}

// Breakdown holds the factor scores of one profile/listing pair, each in [0,1].
type Breakdown struct {
	Skills    float64 `json:"skills"`
	Education float64 `json:"education"`
	Location  float64 `json:"location"`
	Stipend   float64 `json:"stipend"`
	Prestige  float64 `json:"prestige"`
}

// Explain computes every factor for the pair.
func Explain(p Profile, l catalog.Listing) Breakdown {
	return Breakdown{
		Skills:    SkillsScore(p.Skills, l.Skills),
		Education: EducationScore(p.Education, l),
		Location:  LocationScore(p.LocationPreference, l),
		Stipend:   StipendScore(p.MinStipend, l.StipendAmount),
		Prestige:  PrestigeScore(l),
	}
}

// Combine folds a breakdown into a single score in [0,1]: the weighted sum divided by the sum of
// the weights, then clamped. With the default weights the divisor is 1 and this is the plain
// weighted sum; configured weights that do not add up to 1 are normalized the same way.
func (w Weights) Combine(b Breakdown) float64 {
	total, maximum := 0.0, 0.0

	for _, f := range []struct{ score, weight float64 }{
		{b.Skills, w.Skills},
		{b.Education, w.Education},
		{b.Location, w.Location},
		{b.Stipend, w.Stipend},
		{b.Prestige, w.Prestige},
	} {
		// the conversion rounds the product before the sum, no fused multiply-add
		total += float64(f.score * f.weight)
		maximum += f.weight
	}

	if maximum <= 0 {
		return 0
	}
	return clamp(total / maximum)
}

// Percentage renders a score as a whole percent, truncated and capped at 100.
func Percentage(score float64) int {
	return min(100, int(score*100))
}

// SkillsScore counts exact matches plus half a point for every pair where one skill contains the other.
// Exact matches are also counted as partial ones.
func SkillsScore(candidate, listing []string) float64 {
	if len(candidate) == 0 || len(listing) == 0 {
		return 0
	}

	candidateLower := lowerAll(candidate)
	listingLower := lowerAll(listing)

	listingSet := make(map[string]struct{}, len(listingLower))
	for _, s := range listingLower {
		listingSet[s] = struct{}{}
	}

	direct := 0
	seen := make(map[string]struct{}, len(candidateLower))
	for _, s := range candidateLower {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := listingSet[s]; ok {
			direct++
		}
	}

	partial := 0.0
	for _, c := range candidateLower {
		for _, l := range listingLower {
			if strings.Contains(l, c) || strings.Contains(c, l) {
				partial += 0.5
			}
		}
	}

	matches := float64(direct) + partial
	return min(1.0, matches/float64(max(len(candidate), len(listing))))
}

type educationField struct {
	name     string
	keywords []string
}

var educationFields = []educationField{
	{"computer science", []string{"software", "programming", "development", "tech", "it", "coding"}},
	{"information technology", []string{"software", "programming", "development", "tech", "it"}},
	{"business", []string{"business", "management", "sales", "marketing", "finance"}},
	{"design", []string{"design", "ui", "ux", "graphic", "creative"}},
	{"engineering", []string{"engineering", "technical", "development"}},
	{"marketing", []string{"marketing", "digital", "social", "content"}},
	{"finance", []string{"finance", "accounting", "investment", "banking"}},
}

func EducationScore(education string, l catalog.Listing) float64 {
	if education == "" {
		return neutralEducationScore
	}

	educationLower := strings.ToLower(education)
	title := strings.ToLower(l.Title)
	domain := strings.ToLower(l.Domain)

	for _, field := range educationFields {
		if !strings.Contains(educationLower, field.name) {
			continue
		}
		for _, keyword := range field.keywords {
			if strings.Contains(title, keyword) || strings.Contains(domain, keyword) {
				return 1.0
			}
		}
	}

	return fallbackEducation
}

func LocationScore(preference string, l catalog.Listing) float64 {
	pref := strings.ToLower(preference)
	if pref == "" || pref == catalog.AnyLocation {
		return 1.0
	}

	if pref == catalog.WorkFromHome && l.IsRemote() {
		return 1.0
	}

	if strings.Contains(strings.ToLower(l.Location), pref) {
		return 1.0
	}

	if l.IsRemote() {
		return remoteLocationScore
	}

	return otherLocationScore
}

func StipendScore(minStipend float64, stipend int) float64 {
	amount := float64(stipend)

	switch {
	case minStipend == 0:
		if stipend > 0 {
			return 1.0
		}
		return 0.5
	case amount < minStipend:
		return 0
	case amount >= minStipend*1.5:
		return 1.0
	case amount >= minStipend*1.2:
		return 0.8
	default:
		return 0.6
	}
}

var (
	prestigeCompanies = []string{"google", "microsoft", "amazon", "apple", "facebook", "netflix", "uber"}
	prestigeRoles     = []string{"machine learning", "data scientist", "software engineer", "product manager"}
)

func PrestigeScore(l catalog.Listing) float64 {
	score := prestigeBase

	if containsAny(strings.ToLower(l.Company), prestigeCompanies) {
		score += 0.3
	}

	if containsAny(strings.ToLower(l.Title), prestigeRoles) {
		score += 0.2
	}

	switch {
	case l.StipendAmount > 25000:
		score += 0.2
	case l.StipendAmount > 15000:
		score += 0.1
	}

	return min(1.0, score)
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
