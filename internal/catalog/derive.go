package catalog

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	performanceBasedStipend = 5000
	defaultDurationMonths   = 6
	generalLabel            = "General"
)

var digitRun = regexp.MustCompile(`\d+`)

// unpaidMarkers are compared against the lower-cased stipend text.
var unpaidMarkers = map[string]struct{}{
	"unpaid":        {},
	"nan":           {},
	"not specified": {},
	"":              {},
}

type keywordLabel struct {
	keyword string
	label   string
}

// skillKeywords is scanned in order: programming, technical, design, business.
var skillKeywords = []keywordLabel{
	{"python", "Python"},
	{"java", "Java"},
	{"javascript", "JavaScript"},
	{"react", "React.js"},
	{"angular", "Angular"},
	{"node", "Node.js"},
	{"flutter", "Flutter"},
	{"android", "Android"},
	{"ios", "iOS"},
	{"php", "PHP"},
	{"ruby", "Ruby"},
	{"go", "Go"},
	{"swift", "Swift"},

	{"machine learning", "Machine Learning"},
	{"ai", "Artificial Intelligence"},
	{"data science", "Data Science"},
	{"analytics", "Data Analytics"},
	{"blockchain", "Blockchain"},
	{"cybersecurity", "Cybersecurity"},
	{"devops", "DevOps"},
	{"cloud", "Cloud Computing"},
	{"aws", "AWS"},
	{"database", "Database Management"},
	{"sql", "SQL"},

	{"ui/ux", "UI/UX Design"},
	{"graphic design", "Graphic Design"},
	{"web design", "Web Design"},
	{"photoshop", "Photoshop"},
	{"figma", "Figma"},
	{"sketch", "Sketch"},

	{"marketing", "Digital Marketing"},
	{"seo", "SEO"},
	{"content", "Content Writing"},
	{"sales", "Sales"},
	{"business", "Business Development"},
	{"finance", "Finance"},
	{"accounting", "Accounting"},
	{"hr", "Human Resources"},
}

type keywordFamily struct {
	label    string
	keywords []string
}

// fallbackSkills apply only when no skill keyword matched.
var fallbackSkills = []keywordFamily{
	{"Programming", []string{"development", "developer", "programming"}},
	{"Design", []string{"design", "creative"}},
	{"Marketing", []string{"marketing", "sales"}},
	{"Content Writing", []string{"content", "writing"}},
}

// domainFamilies is ordered by priority, first match wins.
var domainFamilies = []keywordFamily{
	{"Technology", []string{"software", "development", "programming", "coding", "tech"}},
	{"Design", []string{"design", "ui", "ux", "graphic", "creative"}},
	{"Marketing", []string{"marketing", "digital", "social media", "seo"}},
	{"Finance", []string{"finance", "accounting", "investment", "banking"}},
	{"Human Resources", []string{"hr", "human resources", "recruitment"}},
	{"Content & Media", []string{"content", "writing", "journalism"}},
	{"Sales", []string{"sales", "business development"}},
	{"Data & Analytics", []string{"data", "analytics", "research"}},
}

// Domains lists every category CategorizeDomain can return.
func Domains() []string {
	domains := make([]string, 0, len(domainFamilies)+1)
	for _, family := range domainFamilies {
		domains = append(domains, family.label)
	}
	return append(domains, generalLabel)
}

func isUnpaidMarker(lower string) bool {
	_, ok := unpaidMarkers[lower]
	return ok
}

// ParseStipend extracts a monthly amount from free-form stipend text.
// Ranges such as "5,000-10,000" resolve to the truncated mean of both ends.
func ParseStipend(text string) int {
	lower := strings.ToLower(text)
	if isUnpaidMarker(lower) {
		return 0
	}

	if strings.Contains(lower, "performance") {
		return performanceBasedStipend
	}

	numbers := digitRun.FindAllString(strings.ReplaceAll(text, ",", ""), -1)
	if len(numbers) == 0 {
		return 0
	}

	first := atoiClamped(numbers[0])

	if strings.Contains(text, "-") && len(numbers) >= 2 {
		second := atoiClamped(numbers[1])
		return first/2 + second/2 + (first%2+second%2)/2
	}

	return first
}

// atoiClamped parses a run of ASCII digits, saturating at math.MaxInt.
func atoiClamped(digits string) int {
	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil {
		return 0
	}
	return n
}

func IsPaid(text string) bool {
	return !isUnpaidMarker(strings.ToLower(text)) && ParseStipend(text) != 0
}

// ExtractSkills returns the skill labels whose keyword occurs in the title. It never returns an empty list.
func ExtractSkills(title string) []string {
	lower := strings.ToLower(title)

	var skills []string
	seen := make(map[string]struct{})
	for _, kw := range skillKeywords {
		if !strings.Contains(lower, kw.keyword) {
			continue
		}
		if _, ok := seen[kw.label]; ok {
			continue
		}
		seen[kw.label] = struct{}{}
		skills = append(skills, kw.label)
	}

	if len(skills) > 0 {
		return skills
	}

	if label, ok := firstFamily(lower, fallbackSkills); ok {
		return []string{label}
	}

	return []string{generalLabel}
}

func CategorizeDomain(title string) string {
	if label, ok := firstFamily(strings.ToLower(title), domainFamilies); ok {
		return label
	}
	return generalLabel
}

func DetermineWorkMode(location string) string {
	lower := strings.ToLower(location)
	if strings.Contains(lower, WorkFromHome) || strings.Contains(lower, "remote") {
		return WorkModeRemote
	}
	return WorkModeOnSite
}

// DurationMonths converts "3 Months" or "8 Weeks" style text to whole months, defaulting to 6.
func DurationMonths(text string) int {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "month"):
		if n, ok := firstNumber(text); ok {
			return n
		}
	case strings.Contains(lower, "week"):
		if n, ok := firstNumber(text); ok {
			return max(1, n/4)
		}
	}

	return defaultDurationMonths
}

func firstNumber(text string) (int, bool) {
	match := digitRun.FindString(text)
	if match == "" {
		return 0, false
	}

	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstFamily(lower string, families []keywordFamily) (string, bool) {
	for _, family := range families {
		for _, keyword := range family.keywords {
			if strings.Contains(lower, keyword) {
				return family.label, true
			}
		}
	}
	return "", false
}
