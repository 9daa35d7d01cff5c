// Package markers keeps a keyed set of map markers in sync with the latest
// search result, owning the full marker lifecycle.
package markers

import (
	"sort"
	"sync"
)

// HandleID identifies one marker on a Surface. Handles are opaque to the
// registry and never reused within a Surface's lifetime.
type HandleID int64

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// Surface is the seam to the map rendering layer.
type Surface interface {
	AddMarker(lat, lon float64, popup string) HandleID
	MoveMarker(id HandleID, lat, lon float64)
	SetPopup(id HandleID, popup string)
	RemoveMarker(id HandleID)
	FitBounds(b Bounds, paddingDeg float64, maxZoom int)
	Center(lat, lon float64)
	OpenPopup(id HandleID)
}

// MarkerState is the observable state of one marker.
type MarkerState struct {
	ID        HandleID `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Popup     string   `json:"popup"`
}

// Viewport is the observable map view.
type Viewport struct {
	Bounds     Bounds  `json:"bounds"`
	PaddingDeg float64 `json:"paddingDeg"`
	MaxZoom    int     `json:"maxZoom"`
	Valid      bool    `json:"valid"`
}

// SurfaceState is a point-in-time snapshot of a StateSurface.
type SurfaceState struct {
	Markers   []MarkerState `json:"markers"`
	Viewport  Viewport      `json:"viewport"`
	OpenPopup HandleID      `json:"openPopup,omitempty"`
}

// StateSurface is a Surface implementation that records marker and viewport
// state so a web client can mirror the map. Safe for concurrent use.
type StateSurface struct {
	mu        sync.RWMutex
	nextID    HandleID
	markers   map[HandleID]MarkerState
	viewport  Viewport
	openPopup HandleID
}

func NewStateSurface() *StateSurface {
	return &StateSurface{markers: make(map[HandleID]MarkerState)}
}

func (s *StateSurface) AddMarker(lat, lon float64, popup string) HandleID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.markers[id] = MarkerState{ID: id, Latitude: lat, Longitude: lon, Popup: popup}
	return id
}

func (s *StateSurface) MoveMarker(id HandleID, lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.markers[id]; ok {
		m.Latitude, m.Longitude = lat, lon
		s.markers[id] = m
	}
}

func (s *StateSurface) SetPopup(id HandleID, popup string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.markers[id]; ok {
		m.Popup = popup
		s.markers[id] = m
	}
}

func (s *StateSurface) RemoveMarker(id HandleID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.markers, id)
	if s.openPopup == id {
		s.openPopup = 0
	}
}

func (s *StateSurface) FitBounds(b Bounds, paddingDeg float64, maxZoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewport = Viewport{Bounds: b, PaddingDeg: paddingDeg, MaxZoom: maxZoom, Valid: true}
}

func (s *StateSurface) Center(lat, lon float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	half := s.viewport.PaddingDeg
	if half == 0 {
		half = fitPaddingDeg
	}
	s.viewport = Viewport{
		Bounds:     Bounds{MinLat: lat - half, MinLon: lon - half, MaxLat: lat + half, MaxLon: lon + half},
		PaddingDeg: half,
		MaxZoom:    fitMaxZoom,
		Valid:      true,
	}
}

func (s *StateSurface) OpenPopup(id HandleID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markers[id]; ok {
		s.openPopup = id
	}
}

// Snapshot returns a copy of the current surface state with markers ordered
// by handle.
func (s *StateSurface) Snapshot() SurfaceState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := SurfaceState{
		Markers:   make([]MarkerState, 0, len(s.markers)),
		Viewport:  s.viewport,
		OpenPopup: s.openPopup,
	}
	for _, m := range s.markers {
		out.Markers = append(out.Markers, m)
	}
	sort.Slice(out.Markers, func(i, j int) bool {
		return out.Markers[i].ID < out.Markers[j].ID
	})
	return out
}
