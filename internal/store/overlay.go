package store

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/i474232898/country-explorer/internal/markers"
)

// OverlayView is a point-in-time copy of the map overlay, ready to be
// rendered by a map widget.
type OverlayView struct {
	Border  *geojson.Geometry                     `json:"border,omitempty"`
	FlyTo   *[2]orb.Point                         `json:"flyTo,omitempty"`
	Groups  map[markers.Category][]markers.Marker `json:"groups"`
	Version uint64                                `json:"version"`
}

// MemoryOverlay is a concurrency-safe in-memory map overlay. It implements
// explorer.Overlay for clients that render the map themselves.
type MemoryOverlay struct {
	mu sync.RWMutex

	border  orb.Geometry
	flyTo   *orb.Bound
	set     *markers.Set
	version uint64
}

func NewMemoryOverlay() *MemoryOverlay {
	return &MemoryOverlay{set: markers.NewSet()}
}

func (o *MemoryOverlay) SetBorder(g orb.Geometry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.border = g
	if g == nil {
		o.flyTo = nil
	}
	o.version++
}

// AddMarker adds m to its category group. Re-adding an id is a no-op.
func (o *MemoryOverlay) AddMarker(m markers.Marker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.set.Add(m) {
		o.version++
	}
}

// ClearMarkers removes the markers of the groups covered by scope.
func (o *MemoryOverlay) ClearMarkers(scope markers.Scope) {
	o.mu.Lock()
	defer o.mu.Unlock()

	kept := markers.NewSet()
	for _, m := range o.set.Markers() {
		if !scope.Includes(m.Category) {
			kept.Add(m)
		}
	}
	o.set = kept
	o.version++
}

func (o *MemoryOverlay) FlyTo(b orb.Bound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flyTo = &b
	o.version++
}

// View returns a copy of the overlay.
func (o *MemoryOverlay) View() OverlayView {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v := OverlayView{
		Groups:  o.set.Groups(),
		Version: o.version,
	}
	if o.border != nil {
		v.Border = geojson.NewGeometry(o.border)
	}
	if o.flyTo != nil {
		v.FlyTo = &[2]orb.Point{o.flyTo.Min, o.flyTo.Max}
	}
	return v
}

// Len returns the number of markers on the overlay.
func (o *MemoryOverlay) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.set.Len()
}
