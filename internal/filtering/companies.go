package filtering

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
)

type companiesFilter struct {
	companies []string
	disabled  bool
	reason    string
}

// NewExcludedCompanies creates a filter that removes listings of the given companies, compared case-insensitively.
func NewExcludedCompanies(companies []string) Filter {
	f := &companiesFilter{}
	for _, c := range companies {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			f.companies = append(f.companies, c)
		}
	}
	return f
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *companiesFilter) IsEnabled() bool { return !f.disabled && len(f.companies) > 0 }

func (f *companiesFilter) Validate(*Config) error { return nil }

func (f *companiesFilter) Apply(_ context.Context, _ *Config, deps Deps, listings []catalog.Listing) ([]catalog.Listing, Step, error) {
	initial := len(listings)

	kept := keep(listings, func(l catalog.Listing) bool {
		return !slices.Contains(f.companies, strings.ToLower(l.Company))
	})

	if deps.Logger != nil && len(kept) < initial {
		deps.Logger.Info("excluding listings by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Int("listings_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
