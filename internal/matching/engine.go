// Package matching ranks catalog listings against candidate profiles.
package matching

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/filtering"
	"github.com/spigell/internship-recommender/internal/utils"
)

const (
	DefaultLimit        = 10
	DefaultRelatedLimit = 5

	maxProfileLogLength = 120
)

var ErrCatalogUnavailable = errors.New("catalog is not loaded")

// Profile is what a candidate is looking for. Empty fields are valid.
type Profile struct {
	Skills             []string `json:"skills"`
	Education          string   `json:"education"`
	LocationPreference string   `json:"location_preference"`
	MinStipend         float64  `json:"min_stipend"`
}

// ScoredListing is a listing ranked against a profile.
type ScoredListing struct {
	catalog.Listing
	MatchScore      float64 `json:"match_score"`
	MatchPercentage int     `json:"match_percentage"`
}

type SimilarListing struct {
	catalog.Listing
	SimilarityScore float64 `json:"similarity_score"`
}

type TrendingListing struct {
	catalog.Listing
	TrendScore float64 `json:"trend_score"`
}

// Engine scores one immutable catalog. It keeps no state besides the catalog and is safe for concurrent use.
// A reloaded dataset gets a new Engine.
type Engine struct {
	catalog  *catalog.Catalog
	weights  Weights
	logger   *zap.Logger
	extra    func() []filtering.Filter
	disabled []string
}

type Option func(*Engine)

func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w }
}

// WithExtraFilters runs the filters built by extra after the profile constraints on every Recommend call.
func WithExtraFilters(extra func() []filtering.Filter) Option {
	return func(e *Engine) { e.extra = extra }
}

// WithDisabledFilters keeps the named filters in the pipeline but skips them.
func WithDisabledFilters(names ...string) Option {
	return func(e *Engine) { e.disabled = append(e.disabled, names...) }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(c *catalog.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog: c,
		weights: DefaultWeights(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if c != nil {
		e.logger = e.logger.With(zap.String("catalog_version", c.Version()))
	}
	return e
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

func (e *Engine) ready() error {
	if e == nil || e.catalog == nil {
		return ErrCatalogUnavailable
	}
	return nil
}

// Recommend filters the catalog by the profile's hard constraints, scores the rest and
// returns at most limit listings ordered by descending score, ties in catalog order.
// A failure while scoring is logged and yields an empty result.
func (e *Engine) Recommend(ctx context.Context, p Profile, limit int) (results []ScoredListing, err error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	logger := e.logger.With(
		zap.String("profile", utils.TruncateForLog(fmt.Sprintf("%+v", p), maxProfileLogLength)),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("scoring failed", zap.Any("panic", r))
			results, err = []ScoredListing{}, nil
		}
	}()

	steps := e.filters()
	logger.Debug("filters", zap.Any("filters", filtering.Describe(steps)))

	candidates, err := filtering.Run(ctx, &filtering.Config{
		LocationPreference: p.LocationPreference,
		MinStipend:         p.MinStipend,
	}, filtering.Deps{Logger: logger}, steps, e.catalog.All())
	if err != nil {
		logger.Error("filtering failed", zap.Error(err))
		return []ScoredListing{}, nil
	}

	logger.Debug("listings match basic criteria", zap.Int("count", len(candidates)))

	if len(candidates) == 0 {
		return []ScoredListing{}, nil
	}

	scored := make([]ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		score := e.weights.Combine(Explain(p, l))
		scored = append(scored, ScoredListing{
			Listing:         l,
			MatchScore:      score,
			MatchPercentage: Percentage(score),
		})
	}

	slices.SortStableFunc(scored, func(a, b ScoredListing) int {
		return compareDesc(a.MatchScore, b.MatchScore)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	logger.Debug("generated recommendations", zap.Int("count", len(scored)))
	return scored, nil
}

func (e *Engine) filters() []filtering.Filter {
	steps := filtering.Default()
	if e.extra != nil {
		steps = append(steps, e.extra()...)
	}
	for _, name := range e.disabled {
		filtering.DisableByName(steps, name, "disabled in configuration")
	}
	return steps
}

// Similar ranks every other listing by shared domain, shared skills and equal work mode.
// An unknown id yields an empty result.
func (e *Engine) Similar(id, limit int) ([]SimilarListing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	target, ok := e.catalog.ByID(id)
	if !ok {
		e.logger.Debug("listing not found", zap.Int("listing_id", id))
		return []SimilarListing{}, nil
	}

	out := make([]SimilarListing, 0, e.catalog.Len())
	for _, l := range e.catalog.All() {
		if l.ID == id {
			continue
		}
		out = append(out, SimilarListing{Listing: l, SimilarityScore: similarity(target, l)})
	}

	slices.SortStableFunc(out, func(a, b SimilarListing) int {
		return compareDesc(a.SimilarityScore, b.SimilarityScore)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func similarity(a, b catalog.Listing) float64 {
	score := 0.0

	if a.Domain == b.Domain {
		score += 0.4
	}

	common := 0
	for _, s := range uniq(b.Skills) {
		if slices.Contains(a.Skills, s) {
			common++
		}
	}
	if denom := max(len(a.Skills), len(b.Skills)); denom > 0 {
		score += float64(common) / float64(denom) * 0.4
	}

	if a.WorkMode == b.WorkMode {
		score += 0.2
	}

	return score
}

var trendingKeywords = []string{
	"artificial intelligence",
	"machine learning",
	"data science",
	"python",
	"react",
	"node.js",
	"cloud",
	"devops",
	"cybersecurity",
}

// Trending ranks listings by in-demand keywords, high pay and remote work.
func (e *Engine) Trending(limit int) ([]TrendingListing, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}

	out := make([]TrendingListing, 0, e.catalog.Len())
	for _, l := range e.catalog.All() {
		out = append(out, TrendingListing{Listing: l, TrendScore: trendScore(l)})
	}

	slices.SortStableFunc(out, func(a, b TrendingListing) int {
		return compareDesc(a.TrendScore, b.TrendScore)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func trendScore(l catalog.Listing) float64 {
	content := strings.ToLower(l.Title + " " + strings.Join(l.Skills, " "))

	score := 0.0
	for _, keyword := range trendingKeywords {
		if strings.Contains(content, keyword) {
			score += 1.0
		}
	}

	if l.StipendAmount > 20000 {
		score += 0.5
	}
	if l.IsRemote() {
		score += 0.3
	}

	return score
}

func (e *Engine) Stats() (catalog.Stats, error) {
	if err := e.ready(); err != nil {
		return catalog.Stats{}, err
	}
	return e.catalog.Stats(), nil
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func uniq(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
