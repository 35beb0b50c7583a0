package reload

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/matching"
)

func engineWith(n int) *matching.Engine {
	listings := make([]catalog.Listing, 0, n)
	for i := 1; i <= n; i++ {
		listings = append(listings, catalog.Listing{ID: i, Skills: []string{"General"}})
	}
	return matching.New(catalog.New(listings))
}

func TestHolderEmpty(t *testing.T) {
	h := NewHolder(nil)
	if _, err := h.Engine(); !errors.Is(err, matching.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestReloadSwapsEngine(t *testing.T) {
	first := engineWith(1)
	h := NewHolder(first)

	next := engineWith(3)
	s := NewScheduler(h, func(context.Context) (*matching.Engine, error) { return next, nil }, "", zap.NewNop())

	// the old engine handed out before the reload stays usable
	inFlight, err := h.Engine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current, err := h.Engine()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if current != next {
		t.Fatalf("expected the new engine to be active")
	}
	if inFlight.Catalog().Len() != 1 {
		t.Fatalf("previous engine was modified: %d listings", inFlight.Catalog().Len())
	}
}

func TestReloadFailureKeepsEngine(t *testing.T) {
	first := engineWith(2)
	h := NewHolder(first)

	boom := errors.New("source unreadable")
	s := NewScheduler(h, func(context.Context) (*matching.Engine, error) { return nil, boom }, "", nil)

	if err := s.Reload(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}

	current, _ := h.Engine()
	if current != first {
		t.Fatalf("expected the previous engine to stay active")
	}

	s = NewScheduler(h, func(context.Context) (*matching.Engine, error) { return matching.New(nil), nil }, "", nil)
	if err := s.Reload(context.Background()); !errors.Is(err, matching.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(NewHolder(nil), func(context.Context) (*matching.Engine, error) { return nil, nil }, "not a schedule", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid cron spec error")
	}
}

func TestStartDisabled(t *testing.T) {
	s := NewScheduler(NewHolder(nil), nil, "  ", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
