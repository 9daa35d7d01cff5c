package markers

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/openfuelmap/fuelfinder/internal/search"
)

// Viewport fitting policy: one refit per reconciliation, fixed padding,
// zoom never closer than the ceiling.
const (
	fitPaddingDeg = 0.01
	fitMaxZoom    = 15
)

// TranslateFunc resolves a label key to the current language, falling back
// to the given default.
type TranslateFunc func(key, fallback string) string

func passthroughTranslate(_, fallback string) string { return fallback }

// entry ties one station to its marker handle. Entries are owned exclusively
// by the registry; the stored popup text is the change detector for label
// updates.
type entry struct {
	handle  HandleID
	station search.Station
	best    bool
	popup   string
}

// Registry reconciles the marker set against each new result list. Marker
// count always equals the size of the latest result set.
type Registry struct {
	mu        sync.Mutex
	surface   Surface
	translate TranslateFunc
	entries   map[string]*entry
	log       *slog.Logger
}

func NewRegistry(surface Surface, translate TranslateFunc, logger *slog.Logger) *Registry {
	if translate == nil {
		translate = passthroughTranslate
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		surface:   surface,
		translate: translate,
		entries:   make(map[string]*entry),
		log:       logger,
	}
}

// Reconcile diffs the marker set against the incoming stations, in fixed
// order: destroy stale markers, update existing ones (position only when
// coordinates changed, popup only when its text changed), create missing
// ones, then refit the viewport once over every marker. The stations slice
// is expected in ranked order; the first one carries the best-price label.
func (r *Registry) Reconcile(stations []search.Station) {
	r.mu.Lock()
	defer r.mu.Unlock()

	incoming := make(map[string]struct{}, len(stations))
	for _, st := range stations {
		incoming[st.ID] = struct{}{}
	}

	removed := 0
	for id, e := range r.entries {
		if _, ok := incoming[id]; !ok {
			r.surface.RemoveMarker(e.handle)
			delete(r.entries, id)
			removed++
		}
	}

	created := 0
	for i, st := range stations {
		best := i == 0
		popup := r.renderPopup(st, best)

		if e, ok := r.entries[st.ID]; ok {
			if e.station.Latitude != st.Latitude || e.station.Longitude != st.Longitude {
				r.surface.MoveMarker(e.handle, st.Latitude, st.Longitude)
			}
			if e.popup != popup {
				r.surface.SetPopup(e.handle, popup)
			}
			e.station, e.best, e.popup = st, best, popup
			continue
		}

		h := r.surface.AddMarker(st.Latitude, st.Longitude, popup)
		r.entries[st.ID] = &entry{handle: h, station: st, best: best, popup: popup}
		created++
	}

	if len(r.entries) > 0 {
		r.surface.FitBounds(r.bounds(), fitPaddingDeg, fitMaxZoom)
	}

	r.log.Debug("markers reconciled",
		"markers", len(r.entries),
		"created", created,
		"removed", removed,
	)
}

// RebuildLabels regenerates every popup with a new translator. Marker
// identity and position stay untouched; invoked only on language change.
func (r *Registry) RebuildLabels(translate TranslateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if translate == nil {
		translate = passthroughTranslate
	}
	r.translate = translate

	for _, e := range r.entries {
		e.popup = r.renderPopup(e.station, e.best)
		r.surface.SetPopup(e.handle, e.popup)
	}
}

// Focus centers the view on one marker and opens its popup. A stale station
// id (superseded by a newer search) is a silent no-op.
func (r *Registry) Focus(stationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[stationID]
	if !ok {
		r.log.Debug("focus on unknown station ignored", "station_id", stationID)
		return
	}
	r.surface.Center(e.station.Latitude, e.station.Longitude)
	r.surface.OpenPopup(e.handle)
}

// Len reports the current marker count.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) bounds() Bounds {
	var b Bounds
	first := true
	for _, e := range r.entries {
		st := e.station
		if first {
			b = Bounds{MinLat: st.Latitude, MinLon: st.Longitude, MaxLat: st.Latitude, MaxLon: st.Longitude}
			first = false
			continue
		}
		if st.Latitude < b.MinLat {
			b.MinLat = st.Latitude
		}
		if st.Latitude > b.MaxLat {
			b.MaxLat = st.Latitude
		}
		if st.Longitude < b.MinLon {
			b.MinLon = st.Longitude
		}
		if st.Longitude > b.MaxLon {
			b.MaxLon = st.Longitude
		}
	}
	return b
}

func (r *Registry) renderPopup(st search.Station, best bool) string {
	t := r.translate

	var lines []string
	if best {
		lines = append(lines, "★ "+t("best_price", "Best price"))
	}
	name := st.Operator
	if name == "" {
		name = t("station", "Fuel station")
	}
	lines = append(lines, name)
	if st.Address != "" {
		lines = append(lines, st.Address)
	}
	lines = append(lines, fmt.Sprintf("%.2f %s", st.DistanceKm, t("km_away", "km away")))
	for _, fp := range st.FuelPrices {
		label := t("fuel_"+string(fp.Type), string(fp.Type))
		lines = append(lines, fmt.Sprintf("%s: %s", label, FormatPrice(fp.Price)))
	}

	return strings.Join(lines, "\n")
}

// FormatPrice renders a euro price with the 3 decimals fuel prices carry.
func FormatPrice(price float64) string {
	return fmt.Sprintf("€%.3f", price)
}
