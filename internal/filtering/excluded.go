package filtering

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spigell/internship-recommender/internal/catalog"
)

// ExcludedListings is the content of an exclude file. Listings are matched by title and company
// since ids are reassigned on every catalog build.
type ExcludedListings struct {
	Items []*ExcludedListing
}

type ExcludedListing struct {
	ID         int
	Title      string
	Company    string
	ExcludedAt time.Time
}

func (e *ExcludedListing) key() string {
	return listingKey(e.Title, e.Company)
}

func listingKey(title, company string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(company))
}

// ToExcluded converts listings into exclude file entries.
func ToExcluded(listings []catalog.Listing) *ExcludedListings {
	excluded := &ExcludedListings{}
	for _, l := range listings {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			ID:         l.ID,
			Title:      l.Title,
			Company:    l.Company,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// ExcludedFromFile reads an exclude file. A missing or empty file holds no entries.
func ExcludedFromFile(path string) (*ExcludedListings, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedListings{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedListings{}, nil
	}

	var excluded ExcludedListings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries that are not excluded yet.
func (e *ExcludedListings) Append(other *ExcludedListings) {
	known := e.keys()
	for _, item := range other.Items {
		if _, ok := known[item.key()]; ok {
			continue
		}
		known[item.key()] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedListings) Len() int { return len(e.Items) }

// Contains reports whether l is excluded.
func (e *ExcludedListings) Contains(l catalog.Listing) bool {
	for _, item := range e.Items {
		if item.key() == listingKey(l.Title, l.Company) {
			return true
		}
	}
	return false
}

func (e *ExcludedListings) keys() map[string]struct{} {
	keys := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		keys[item.key()] = struct{}{}
	}
	return keys
}

// ToFile overwrites path with the entries.
func (e *ExcludedListings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
