package biasmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"
)

// Service wires the region catalog, the oracle and the result cache together.
type Service struct {
	oracle  Oracle
	regions []Region
	shapes  map[string]Shape
	cache   *ResultCache

	cfgMu sync.RWMutex
	cfg   Config

	logger *log.Logger
}

// NewService loads the catalog once and returns a ready service. A catalog
// failure is fatal.
func NewService(ctx context.Context, catalog RegionSource, oracle Oracle, cfg Config, logger *log.Logger) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: no catalog configured", ErrCatalogUnavailable)
	}
	if oracle == nil {
		return nil, errors.New("oracle is required")
	}
	cfg.ApplyDefaults()
	regions, err := catalog.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrCatalogUnavailable) {
			err = fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
		}
		return nil, err
	}
	var shapes map[string]Shape
	if src, ok := catalog.(ShapeSource); ok {
		if shapes, err = src.Shapes(ctx); err != nil {
			if !errors.Is(err, ErrCatalogUnavailable) {
				err = fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
			}
			return nil, err
		}
	}
	return &Service{
		oracle:  oracle,
		regions: regions,
		shapes:  shapes,
		cache:   NewResultCache(),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Close releases the oracle when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.oracle.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// Regions returns the catalog in load order.
func (s *Service) Regions() []Region {
	return cloneRegions(s.regions)
}

// Shapes returns the region outlines keyed by geometry key. It is empty when
// the catalog carries no geometry. The rings are shared and must not be modified.
func (s *Service) Shapes() map[string]Shape {
	out := make(map[string]Shape, len(s.shapes))
	for k, v := range s.shapes {
		out[k] = v
	}
	return out
}

// Cache exposes the result cache for diagnostics.
func (s *Service) Cache() *ResultCache {
	return s.cache
}

// Query scores template against every region, reusing earlier results for
// the same template text.
func (s *Service) Query(ctx context.Context, template string) (ResultTable, error) {
	if err := ValidateTemplate(template); err != nil {
		return ResultTable{}, err
	}
	if t, ok := s.cache.Lookup(template); ok {
		s.logf("Cache hit for %q", template)
		return t, nil
	}
	table, err := s.cache.GetOrCompute(ctx, template, func(ctx context.Context) (ResultTable, error) {
		return s.compute(ctx, template)
	})
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrOracleUnavailable) && !errors.Is(err, ErrOracleContract) {
		err = fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return table, err
}

func (s *Service) compute(ctx context.Context, template string) (ResultTable, error) {
	sentences, err := Expand(template, s.regions)
	if err != nil {
		return ResultTable{}, err
	}
	if timeout := s.Config().OracleTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	table, err := Score(ctx, sentences, s.oracle)
	if err != nil {
		s.logf("Scoring %q failed: %v", template, err)
		return ResultTable{}, err
	}
	s.logf("Scored %d sentences for %q with %s in %s", table.Len(), template, oracleName(s.oracle), time.Since(start).Round(time.Millisecond))
	return NewResultTable(template, table.rows), nil
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
