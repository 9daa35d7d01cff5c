// Package controller serializes user-driven searches. Every submission gets a
// generation number; only the newest generation may publish results, so a slow
// response can never overwrite a newer one.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openfuelmap/fuelfinder/internal/history"
	"github.com/openfuelmap/fuelfinder/internal/markers"
	"github.com/openfuelmap/fuelfinder/internal/search"
	"github.com/openfuelmap/fuelfinder/pkg/prezzi"
)

const (
	// DefaultTimeout caps the whole resolve+fetch+normalize pipeline.
	DefaultTimeout = 12 * time.Second
	// DefaultDebounce delays a fuel-change search so rapid toggling
	// collapses into one request.
	DefaultDebounce = 100 * time.Millisecond

	warnTimeout = "The search took too long. Please try again."
)

// Searcher is the seam to the search orchestrator.
type Searcher interface {
	Search(ctx context.Context, city string, radiusKm float64, fuel prezzi.FuelType, maxResults int) search.Outcome
}

// Recorder persists completed searches. May be nil.
type Recorder interface {
	Append(ctx context.Context, p history.Params) error
	LogSearchLocation(ctx context.Context, latitude, longitude, radiusKm float64) error
}

// Form is one set of user-entered search parameters.
type Form struct {
	City       string          `json:"city"`
	RadiusKm   float64         `json:"radiusKm"`
	Fuel       prezzi.FuelType `json:"fuel"`
	MaxResults int             `json:"maxResults"`
}

// State is the observable controller state.
type State struct {
	Loading  bool             `json:"loading"`
	Form     Form             `json:"form"`
	Stations []search.Station `json:"stations"`
	Warning  string           `json:"warning,omitempty"`
}

// Controller owns the search lifecycle: it submits searches, discards
// superseded responses and pushes the winning result to the marker registry.
type Controller struct {
	searcher Searcher
	registry *markers.Registry
	recorder Recorder
	timeout  time.Duration
	debounce time.Duration
	log      *slog.Logger

	gen atomic.Uint64

	mu            sync.Mutex
	state         State
	debounceTimer *time.Timer
}

type Options struct {
	Searcher Searcher
	Registry *markers.Registry
	Recorder Recorder
	Timeout  time.Duration
	Debounce time.Duration
	Logger   *slog.Logger
}

func New(opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		searcher: opts.Searcher,
		registry: opts.Registry,
		recorder: opts.Recorder,
		timeout:  opts.Timeout,
		debounce: opts.Debounce,
		log:      opts.Logger,
		state:    State{Stations: []search.Station{}},
	}
}

// Submit starts a search for the given form and returns immediately. Any
// in-flight search becomes stale: its result will be discarded on arrival.
func (c *Controller) Submit(form Form) {
	gen := c.gen.Add(1)

	c.mu.Lock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.state.Loading = true
	c.state.Form = form
	c.mu.Unlock()

	c.log.Info("search submitted",
		"generation", gen,
		"city", form.City,
		"fuel", form.Fuel,
		"radius_km", form.RadiusKm,
	)

	go c.run(gen, form)
}

// ChangeFuel updates the selected fuel and, if a city has been searched,
// schedules a re-search after the debounce interval. Rapid successive calls
// keep pushing the deadline so only the last selection runs.
func (c *Controller) ChangeFuel(fuel prezzi.FuelType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Form.Fuel = fuel
	if c.state.Form.City == "" {
		return
	}

	form := c.state.Form
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		c.Submit(form)
	})
}

// State returns a snapshot of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state
	snap.Stations = make([]search.Station, len(c.state.Stations))
	copy(snap.Stations, c.state.Stations)
	return snap
}

func (c *Controller) run(gen uint64, form Form) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	out := c.searcher.Search(ctx, form.City, form.RadiusKm, form.Fuel, form.MaxResults)
	if ctx.Err() != nil {
		out = search.Outcome{Stations: []search.Station{}, Warning: warnTimeout}
	}

	c.apply(gen, form, out)
}

// apply publishes a search result unless a newer generation exists. The
// generation check and the state/marker update happen under one lock so a
// stale result can never interleave with a newer one.
func (c *Controller) apply(gen uint64, form Form, out search.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen.Load() {
		c.log.Debug("discarding superseded result", "generation", gen, "current", c.gen.Load())
		return
	}

	c.state = State{Form: form, Stations: out.Stations, Warning: out.Warning}
	if c.registry != nil {
		c.registry.Reconcile(out.Stations)
	}

	if c.recorder != nil && out.Resolved {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := c.recorder.Append(ctx, history.Params{
			City:       form.City,
			RadiusKm:   form.RadiusKm,
			Fuel:       form.Fuel,
			MaxResults: form.MaxResults,
		}); err != nil {
			c.log.Warn("error recording search history", "error", err)
		}
		if err := c.recorder.LogSearchLocation(ctx, out.Origin.Latitude, out.Origin.Longitude, form.RadiusKm); err != nil {
			c.log.Warn("error logging search location", "error", err)
		}
	}
}
