package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
)

type locationFilter struct {
	disabled bool
	reason   string
}

// NewLocation creates a filter that keeps listings at the preferred location. Remote listings
// always pass a city preference; "work from home" keeps remote listings only.
func NewLocation() Filter {
	return &locationFilter{}
}

func (f *locationFilter) Name() string { return "location" }

func (f *locationFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *locationFilter) IsEnabled() bool { return !f.disabled }

func (f *locationFilter) Validate(*Config) error { return nil }

func (f *locationFilter) Apply(_ context.Context, cfg *Config, deps Deps, listings []catalog.Listing) ([]catalog.Listing, Step, error) {
	initial := len(listings)

	pref := strings.ToLower(cfg.LocationPreference)
	if pref == "" || pref == catalog.AnyLocation {
		return listings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	var kept []catalog.Listing
	if pref == catalog.WorkFromHome {
		kept = keep(listings, catalog.Listing.IsRemote)
	} else {
		kept = keep(listings, func(l catalog.Listing) bool {
			return strings.Contains(strings.ToLower(l.Location), pref) || l.IsRemote()
		})
	}

	if deps.Logger != nil && len(kept) < initial {
		deps.Logger.Debug("excluding listings by location",
			zap.String("location_preference", cfg.LocationPreference),
			zap.Int("listings_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *locationFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
