package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
)

type excludeFileFilter struct {
	path     string
	disabled bool
	reason   string
}

// NewExcludeFile creates a filter that removes listings recorded in the exclude file at path.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: path}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *excludeFileFilter) IsEnabled() bool { return !f.disabled && f.path != "" }

func (f *excludeFileFilter) Validate(*Config) error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, _ *Config, deps Deps, listings []catalog.Listing) ([]catalog.Listing, Step, error) {
	initial := len(listings)

	excluded, err := ExcludedFromFile(f.path)
	if err != nil {
		return nil, Step{}, fmt.Errorf("getting excluded listings from file: %w", err)
	}

	kept := keep(listings, func(l catalog.Listing) bool {
		return !excluded.Contains(l)
	})

	if deps.Logger != nil && len(kept) < initial {
		deps.Logger.Info("excluding listings based on exclude file",
			zap.String("path", f.path),
			zap.Int("excluded_listings", initial-len(kept)),
			zap.Int("listings_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
