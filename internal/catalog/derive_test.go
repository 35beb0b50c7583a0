package catalog

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStipend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		amount int
		paid   bool
	}{
		{input: "₹ 30,000 /month", amount: 30000, paid: true},
		{input: "₹ 5,000-10,000 /month", amount: 7500, paid: true},
		{input: "₹ 3,001-4,000 /month", amount: 3500, paid: true},
		{input: "10000 - 15000 lump sum", amount: 12500, paid: true},
		{input: "₹ 2000", amount: 2000, paid: true},
		{input: "₹ 5000 /month + incentives", amount: 5000, paid: true},
		{input: "Performance Based", amount: 5000, paid: true},
		{input: "Unpaid", amount: 0, paid: false},
		{input: "UNPAID", amount: 0, paid: false},
		{input: "Not specified", amount: 0, paid: false},
		{input: NullText, amount: 0, paid: false},
		{input: "", amount: 0, paid: false},
		{input: "Competitive", amount: 0, paid: false},
		{input: " Unpaid ", amount: 0, paid: false},
		{input: "₹ 99999999999999999999 /month", amount: math.MaxInt, paid: true},
		{input: "₹ 5,000-99999999999999999999 /month", amount: 2500 + math.MaxInt/2, paid: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := ParseStipend(tt.input); got != tt.amount {
				t.Fatalf("expected amount %d, got %d", tt.amount, got)
			}
			if got := IsPaid(tt.input); got != tt.paid {
				t.Fatalf("expected paid %v, got %v", tt.paid, got)
			}
			if tt.paid && ParseStipend(tt.input) == 0 {
				t.Fatalf("a paid listing must have a non-zero amount")
			}
		})
	}
}

func TestExtractSkills(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		skills []string
	}{
		{title: "Python Development", skills: []string{"Python"}},
		{title: "JavaScript Developer", skills: []string{"Java", "JavaScript"}},
		{title: "Sales & Digital Marketing", skills: []string{"Digital Marketing", "Sales"}},
		{title: "Accounting and Finance", skills: []string{"Finance", "Accounting"}},
		{title: "Graphic Design", skills: []string{"Graphic Design"}},
		{title: "Web Development", skills: []string{"Programming"}},
		{title: "Creative Writing", skills: []string{"Design"}},
		{title: "Social Entrepreneurship", skills: []string{"General"}},
		{title: "", skills: []string{"General"}},
		{title: NullText, skills: []string{"General"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(tt.skills, ExtractSkills(tt.title)); diff != "" {
				t.Fatalf("skills mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractSkillsNeverEmptyNorDuplicated(t *testing.T) {
	t.Parallel()

	for _, title := range []string{"", " ", "???", "AI and ML with AI", "Go Go Go", "Node and NodeJS"} {
		skills := ExtractSkills(title)
		if len(skills) == 0 {
			t.Fatalf("expected skills for %q", title)
		}

		seen := map[string]bool{}
		for _, s := range skills {
			if seen[s] {
				t.Fatalf("duplicate skill %q for %q", s, title)
			}
			seen[s] = true
		}
	}
}

func TestCategorizeDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title  string
		domain string
	}{
		{title: "UI/UX Design", domain: "Design"},
		{title: "Software Developer in Finance", domain: "Technology"},
		{title: "Digital Dreamweaver", domain: "Marketing"},
		{title: "Accounting and Finance", domain: "Finance"},
		{title: "HR Executive", domain: "Human Resources"},
		{title: "Content Writing", domain: "Content & Media"},
		{title: "Data Entry", domain: "Data & Analytics"},
		{title: "Campus Ambassador", domain: "General"},
	}

	domains := Domains()
	for _, tt := range tests {
		tt := tt
		got := CategorizeDomain(tt.title)
		if got != tt.domain {
			t.Fatalf("%q: expected %q, got %q", tt.title, tt.domain, got)
		}

		known := false
		for _, d := range domains {
			known = known || d == got
		}
		if !known {
			t.Fatalf("domain %q is not listed by Domains()", got)
		}
	}
}

func TestDetermineWorkMode(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Work From Home": WorkModeRemote,
		"Remote (India)": WorkModeRemote,
		"Bangalore":      WorkModeOnSite,
		NullText:         WorkModeOnSite,
	}

	for location, mode := range tests {
		if got := DetermineWorkMode(location); got != mode {
			t.Fatalf("%q: expected %q, got %q", location, mode, got)
		}
	}
}

func TestDurationMonths(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"6 Months": 6,
		"1 Month":  1,
		"3 months": 3,
		"8 Weeks":  2,
		"2 Weeks":  1,
		"Months":   6,
		"0 Months": 0,
		NullText:   6,
		"":         6,
	}

	for text, months := range tests {
		if got := DurationMonths(text); got != months {
			t.Fatalf("%q: expected %d, got %d", text, months, got)
		}
	}
}
