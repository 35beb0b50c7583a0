// Package reload keeps the active matching engine and replaces it when the dataset is rebuilt.
package reload

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/logger"
	"github.com/spigell/internship-recommender/internal/matching"
)

// Holder publishes the current engine. In-flight requests keep the engine they loaded.
type Holder struct {
	engine atomic.Pointer[matching.Engine]
}

func NewHolder(e *matching.Engine) *Holder {
	h := &Holder{}
	if e != nil {
		h.engine.Store(e)
	}
	return h
}

// Engine returns the current engine or matching.ErrCatalogUnavailable when none was stored yet.
func (h *Holder) Engine() (*matching.Engine, error) {
	e := h.engine.Load()
	if e == nil {
		return nil, matching.ErrCatalogUnavailable
	}
	return e, nil
}

// Swap installs e and returns the previous engine.
func (h *Holder) Swap(e *matching.Engine) *matching.Engine {
	return h.engine.Swap(e)
}

// Loader builds a fresh engine from the dataset.
type Loader func(ctx context.Context) (*matching.Engine, error)

// Scheduler rebuilds the engine on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	holder *Holder
	load   Loader
	logger *zap.Logger
}

// NewScheduler creates a Scheduler; an empty spec disables periodic reloads.
func NewScheduler(holder *Holder, load Loader, spec string, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(logger.Cron(log))),
		spec:   strings.TrimSpace(spec),
		holder: holder,
		load:   load,
		logger: log,
	}
}

// Start registers the reload job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		s.logger.Info("catalog reload disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.Reload(ctx); err != nil {
			s.logger.Error("catalog reload failed, keeping current catalog", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("catalog reload scheduled", zap.String("spec", s.spec))

	return nil
}

// Stop shuts the scheduler down and waits for a running reload to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Reload builds a new engine and swaps it in. On failure the current engine stays in place.
func (s *Scheduler) Reload(ctx context.Context) error {
	e, err := s.load(ctx)
	if err != nil {
		return err
	}
	if e == nil || e.Catalog() == nil {
		return matching.ErrCatalogUnavailable
	}

	prev := s.holder.Swap(e)

	fields := []zap.Field{
		zap.String(logger.FieldCatalogVersion, e.Catalog().Version()),
		zap.Int("listings", e.Catalog().Len()),
	}
	if prev != nil && prev.Catalog() != nil {
		fields = append(fields, zap.String("previous_version", prev.Catalog().Version()))
	}
	s.logger.Info("catalog reloaded", fields...)

	return nil
}
