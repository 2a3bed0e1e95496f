// Package source defines the adapter contract for external release sources
// and the harvester that runs them. Each concrete adapter lives in its own
// subpackage and owns its site-specific parsing; only normalized RawRelease
// records cross the package boundary.
package source

import (
	"context"
	"log/slog"
	"time"
)

// DateLayout is the wire format for review dates.
const DateLayout = "2006-01-02"

// RawRelease is one source's unverified observation of an album release.
// It is ephemeral: produced by a single adapter call and discarded after
// the reconciliation merge.
type RawRelease struct {
	Title      string
	Artist     string
	ReviewDate string
	Genre      string
	SourceName string
}

// Adapter is the interface all release source adapters implement.
type Adapter interface {
	// Name returns the human-readable source name used for provenance.
	Name() string

	// FetchReleases scrapes the source and returns zero or more releases.
	// Adapters keep their parsing failures to themselves where possible;
	// a returned error is contained by the harvester.
	FetchReleases(ctx context.Context) ([]RawRelease, error)
}

// Registry holds adapters in registration order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an adapter. Registration order is preserved and determines
// harvest order.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// All returns all registered adapters in registration order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// Harvester runs every registered adapter sequentially, pausing between
// sources as a courtesy to the upstreams. A failing source contributes
// zero releases and never aborts the batch.
type Harvester struct {
	registry *Registry
	logger   *slog.Logger
	delay    time.Duration
}

// NewHarvester creates a harvester over the given registry.
func NewHarvester(registry *Registry, logger *slog.Logger, delay time.Duration) *Harvester {
	return &Harvester{
		registry: registry,
		logger:   logger.With(slog.String("component", "harvester")),
		delay:    delay,
	}
}

// Harvest fetches releases from all sources. The returned slice preserves
// source order; duplicates across sources are resolved later by the
// reconciliation engine.
func (h *Harvester) Harvest(ctx context.Context) []RawRelease {
	var all []RawRelease

	for i, adapter := range h.registry.All() {
		if i > 0 && h.delay > 0 {
			select {
			case <-ctx.Done():
				return all
			case <-time.After(h.delay):
			}
		}

		releases, err := adapter.FetchReleases(ctx)
		if err != nil {
			h.logger.Warn("source fetch failed",
				slog.String("source", adapter.Name()),
				slog.String("error", err.Error()))
			continue
		}

		h.logger.Info("source fetched",
			slog.String("source", adapter.Name()),
			slog.Int("releases", len(releases)))
		all = append(all, releases...)
	}

	return all
}
