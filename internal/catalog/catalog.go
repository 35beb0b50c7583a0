package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrLoadFailure = errors.New("catalog load failure")

// Source supplies raw rows in load order.
type Source interface {
	Read(ctx context.Context) ([]RawRow, error)
}

// SkippedRow describes a source row excluded from the catalog.
type SkippedRow struct {
	// Index is the 1-based position of the row among data rows.
	Index  int
	Reason error
}

// Catalog is an immutable, ordered set of listings. It is safe for concurrent use.
type Catalog struct {
	version  string
	loadedAt time.Time
	listings []Listing
}

// Load reads the source and builds a catalog. Only a failure to read the source is fatal.
func Load(ctx context.Context, src Source, logger *zap.Logger) (*Catalog, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrLoadFailure)
	}

	rows, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}

	c, _ := Build(rows, logger)
	return c, nil
}

// Build normalizes rows in order. Successful rows get ids 1..N; skipped rows are logged and do not consume an id.
func Build(rows []RawRow, logger *zap.Logger) (*Catalog, []SkippedRow) {
	if logger == nil {
		logger = zap.NewNop()
	}

	listings := make([]Listing, 0, len(rows))
	var skipped []SkippedRow

	for idx, row := range rows {
		listing, err := NormalizeRow(len(listings)+1, row)
		if err != nil {
			logger.Warn("skipping source row",
				zap.Int("row", idx+1),
				zap.Error(err),
			)
			skipped = append(skipped, SkippedRow{Index: idx + 1, Reason: err})
			continue
		}
		listings = append(listings, listing)
	}

	c := New(listings)

	logger.Info("catalog built",
		zap.String("catalog_version", c.version),
		zap.Int("listings", len(listings)),
		zap.Int("skipped", len(skipped)),
	)

	return c, skipped
}

// New wraps already normalized listings. Ids are expected to be 1..N in order.
func New(listings []Listing) *Catalog {
	return &Catalog{
		version:  uuid.NewString(),
		loadedAt: time.Now().UTC(),
		listings: listings,
	}
}

// Version identifies this particular build of the catalog.
func (c *Catalog) Version() string { return c.version }

func (c *Catalog) LoadedAt() time.Time { return c.loadedAt }

func (c *Catalog) Len() int { return len(c.listings) }

// All returns the listings in catalog order. The returned slice is a copy; Skills are shared and must not be modified.
func (c *Catalog) All() []Listing {
	out := make([]Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

func (c *Catalog) ByID(id int) (Listing, bool) {
	if id < 1 || id > len(c.listings) {
		return Listing{}, false
	}
	return c.listings[id-1], true
}

// ByLocation returns remote listings for "work from home", otherwise listings whose location contains the text.
func (c *Catalog) ByLocation(location string) []Listing {
	pref := strings.ToLower(location)
	return c.where(func(l Listing) bool {
		if pref == WorkFromHome {
			return l.IsRemote()
		}
		return strings.Contains(strings.ToLower(l.Location), pref)
	})
}

func (c *Catalog) ByMinStipend(minStipend int) []Listing {
	return c.where(func(l Listing) bool {
		return l.StipendAmount >= minStipend
	})
}

func (c *Catalog) ByDomain(domain string) []Listing {
	return c.where(func(l Listing) bool {
		return strings.EqualFold(l.Domain, domain)
	})
}

func (c *Catalog) where(keep func(Listing) bool) []Listing {
	out := make([]Listing, 0)
	for _, l := range c.listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
