package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/wfisher/weatherwise/internal/geocode"
	"github.com/wfisher/weatherwise/internal/metrics"
	"github.com/wfisher/weatherwise/internal/store"
	"github.com/wfisher/weatherwise/internal/weather"
)

// LookupService runs the resolution workflow for callers. It owns the
// request sequence counter and the fallback cascade; each lookup is otherwise
// an independent sequence with no shared state.
type LookupService struct {
	resolver     *weather.Resolver
	history      *store.Store
	defaultQuery string
	seq          atomic.Uint64
}

// NewLookupService creates a lookup service. history may be nil to disable
// recording; defaultQuery is the caller-chosen last resort of the coordinate
// fallback cascade.
func NewLookupService(resolver *weather.Resolver, history *store.Store, defaultQuery string) *LookupService {
	return &LookupService{
		resolver:     resolver,
		history:      history,
		defaultQuery: defaultQuery,
	}
}

// LookupResult pairs a snapshot with its request sequence token.
type LookupResult struct {
	Seq          uint64            `json:"seq"`
	Weather      *weather.Snapshot `json:"weather"`
	UsedFallback bool              `json:"usedFallback"`
	Suggestable  bool              `json:"suggestable"`
}

// nextSeq issues a monotonically increasing request token. Callers compare
// tokens to discard responses that arrive out of order; a newer lookup never
// cancels an older in-flight one.
func (s *LookupService) nextSeq() uint64 {
	return s.seq.Add(1)
}

// Stale reports whether a token is no longer the latest issued.
func (s *LookupService) Stale(seq uint64) bool {
	return seq < s.seq.Load()
}

// ByName resolves a free-text query. Geocoder failures pass through
// untouched so the caller can message "not found" and "unavailable"
// differently.
func (s *LookupService) ByName(ctx context.Context, query string) (*LookupResult, error) {
	seq := s.nextSeq()

	snap, err := s.resolver.FetchByLocationName(ctx, query)
	if err != nil {
		metrics.Lookups.WithLabelValues("name", outcome(err)).Inc()
		return nil, err
	}

	metrics.Lookups.WithLabelValues("name", "ok").Inc()
	s.record("name", query, snap)
	return s.result(seq, snap, false), nil
}

// ByCoordinates resolves a coordinate pair, applying the ordered fallback
// cascade: coordinate resolution (which internally degrades to a coordinate
// label when reverse geocoding misses), then the configured default query.
// Invalid coordinates are fatal and never fall back.
func (s *LookupService) ByCoordinates(ctx context.Context, lat, lon float64) (*LookupResult, error) {
	seq := s.nextSeq()

	snap, err := s.resolver.FetchByCoordinates(ctx, lat, lon)
	if err == nil {
		metrics.Lookups.WithLabelValues("coordinates", "ok").Inc()
		s.record("coordinates", coordQuery(lat, lon), snap)
		return s.result(seq, snap, false), nil
	}

	var invalid *weather.InvalidCoordinatesError
	if errors.As(err, &invalid) {
		metrics.Lookups.WithLabelValues("coordinates", "invalid").Inc()
		return nil, err
	}

	metrics.Lookups.WithLabelValues("coordinates", outcome(err)).Inc()
	if s.defaultQuery == "" {
		return nil, err
	}

	log.Printf("coordinate lookup failed (%v), falling back to %q", err, s.defaultQuery)
	snap, ferr := s.resolver.FetchByLocationName(ctx, s.defaultQuery)
	if ferr != nil {
		metrics.Lookups.WithLabelValues("fallback", outcome(ferr)).Inc()
		// Surface the original failure; the fallback was best-effort.
		return nil, err
	}

	metrics.Lookups.WithLabelValues("fallback", "ok").Inc()
	s.record("name", s.defaultQuery, snap)
	return s.result(seq, snap, true), nil
}

func (s *LookupService) result(seq uint64, snap *weather.Snapshot, usedFallback bool) *LookupResult {
	return &LookupResult{
		Seq:          seq,
		Weather:      snap,
		UsedFallback: usedFallback,
		Suggestable:  snap.ConditionLabel != "Unknown",
	}
}

func (s *LookupService) record(kind, query string, snap *weather.Snapshot) {
	if s.history == nil {
		return
	}
	err := s.history.InsertLookup(store.Lookup{
		QueryKind:     kind,
		Query:         query,
		LocationLabel: snap.LocationLabel,
		Temperature:   sql.NullInt64{Int64: int64(snap.TemperatureCelsius), Valid: true},
		IconKey:       sql.NullString{String: string(snap.IconKey), Valid: true},
		LookedUpAt:    time.Now().UTC(),
	})
	if err != nil {
		log.Printf("record lookup: %v", err)
	}
}

func outcome(err error) string {
	var notFound *geocode.NotFoundError
	switch {
	case errors.As(err, &notFound):
		return "not_found"
	case errors.Is(err, geocode.ErrUnavailable):
		return "geocoding_unavailable"
	default:
		return "weather_unavailable"
	}
}

func coordQuery(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
