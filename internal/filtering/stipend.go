package filtering

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
)

type minStipendFilter struct {
	disabled bool
	reason   string
}

// NewMinStipend creates a filter that drops listings paying less than the requested minimum.
func NewMinStipend() Filter {
	return &minStipendFilter{}
}

func (f *minStipendFilter) Name() string { return "min_stipend" }

func (f *minStipendFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *minStipendFilter) IsEnabled() bool { return !f.disabled }

func (f *minStipendFilter) Validate(cfg *Config) error {
	if math.IsNaN(cfg.MinStipend) || math.IsInf(cfg.MinStipend, 0) {
		return fmt.Errorf("minimum stipend must be a finite number, got %v", cfg.MinStipend)
	}
	return nil
}

func (f *minStipendFilter) Apply(_ context.Context, cfg *Config, deps Deps, listings []catalog.Listing) ([]catalog.Listing, Step, error) {
	initial := len(listings)
	if cfg.MinStipend <= 0 {
		return listings, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	kept := keep(listings, func(l catalog.Listing) bool {
		return float64(l.StipendAmount) >= cfg.MinStipend
	})

	if deps.Logger != nil && len(kept) < initial {
		deps.Logger.Debug("excluding listings below minimum stipend",
			zap.String("min_stipend", strconv.FormatFloat(cfg.MinStipend, 'f', -1, 64)),
			zap.Int("listings_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *minStipendFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
