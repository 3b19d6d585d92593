package mapview

import (
	"math/rand"
	"sync"
	"time"

	"github.com/urbansound/noisemap/internal/domain"
	"github.com/urbansound/noisemap/pkg/utils"
)

// Config holds the rendering constants. It is fixed at construction time.
type Config struct {
	Center domain.LatLng
	Zoom   int

	MarkerBaseRadius  float64 // px
	MarkerRadiusScale float64 // px per unit of intensity
	MarkerFillOpacity float64
	MarkerWeight      float64

	HeatRadiusMeters float64
	HeatColor        Color
	HeatOpacityScale float64

	// ClickSoundTypes are the labels a map click picks from
	ClickSoundTypes []string

	Palette *Palette

	Random func() float64
	Now    func() time.Time
}

// DefaultConfig returns the standard map settings
func DefaultConfig() Config {
	return Config{
		Center:            domain.LatLng{Lat: domain.DefaultCenterLat, Lng: domain.DefaultCenterLng},
		Zoom:              domain.DefaultZoom,
		MarkerBaseRadius:  5,
		MarkerRadiusScale: 15,
		MarkerFillOpacity: 0.7,
		MarkerWeight:      2,
		HeatRadiusMeters:  100,
		HeatColor:         "#ff0000",
		HeatOpacityScale:  0.3,
		ClickSoundTypes:   []string{"siren", "drilling", "jackhammer", "street_music"},
		Palette:           standardPalette,
		Random:            rand.Float64,
		Now:               time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Palette == nil {
		c.Palette = def.Palette
	}
	if len(c.ClickSoundTypes) == 0 {
		c.ClickSoundTypes = def.ClickSoundTypes
	}
	if c.Random == nil {
		c.Random = def.Random
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	if c.HeatColor == "" {
		c.HeatColor = def.HeatColor
	}
	return c
}

// Viewport is the visible map area
type Viewport struct {
	Center domain.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
}

// Marker is one circular marker in the marker layer
type Marker struct {
	Index       int           `json:"index"`
	Position    domain.LatLng `json:"position"`
	SoundType   string        `json:"sound_type"`
	Radius      float64       `json:"radius"`
	Color       Color         `json:"color"`
	FillColor   Color         `json:"fill_color"`
	FillOpacity float64       `json:"fill_opacity"`
	Weight      float64       `json:"weight"`
}

// HeatCircle is one translucent circle in the heat layer
type HeatCircle struct {
	Position     domain.LatLng `json:"position"`
	RadiusMeters float64       `json:"radius_m"`
	FillColor    Color         `json:"fill_color"`
	FillOpacity  float64       `json:"fill_opacity"`
	Stroke       bool          `json:"stroke"`
}

// Scene is a snapshot of everything the renderer draws
type Scene struct {
	Viewport    Viewport     `json:"viewport"`
	Markers     []Marker     `json:"markers"`
	Heat        []HeatCircle `json:"heat"`
	HeatVisible bool         `json:"heat_visible"`
}

// Renderer owns the viewport and the marker and heat layers
type Renderer struct {
	cfg   Config
	store *Store

	mu          sync.Mutex
	viewport    Viewport
	events      []domain.NoiseEvent
	markers     []Marker
	heat        []HeatCircle
	heatVisible bool
	onSelected  func(domain.NoiseEvent)
}

// NewRenderer creates a renderer bound to store; every store mutation
// triggers a full re-render.
func NewRenderer(cfg Config, store *Store) *Renderer {
	cfg = cfg.withDefaults()
	r := &Renderer{
		cfg:      cfg,
		store:    store,
		viewport: Viewport{Center: cfg.Center, Zoom: cfg.Zoom},
		markers:  []Marker{},
		heat:     []HeatCircle{},
	}
	store.Subscribe(r.Render)
	return r
}

// OnEventSelected registers the handler invoked when a marker is clicked
func (r *Renderer) OnEventSelected(fn func(domain.NoiseEvent)) {
	r.mu.Lock()
	r.onSelected = fn
	r.mu.Unlock()
}

// Render clears both layers and rebuilds them from events
func (r *Renderer) Render(events []domain.NoiseEvent) {
	markers := make([]Marker, 0, len(events))
	heat := make([]HeatCircle, 0, len(events))
	for i, e := range events {
		markers = append(markers, r.marker(i, e))
		heat = append(heat, r.heatCircle(e))
	}

	r.mu.Lock()
	r.events = append([]domain.NoiseEvent(nil), events...)
	r.markers = markers
	r.heat = heat
	r.mu.Unlock()
}

// MarkerRadius returns the marker radius in pixels for an intensity
func (r *Renderer) MarkerRadius(intensity float64) float64 {
	return r.cfg.MarkerBaseRadius + intensity*r.cfg.MarkerRadiusScale
}

// HeatOpacity returns the heat circle fill opacity for an intensity
func (r *Renderer) HeatOpacity(intensity float64) float64 {
	return utils.Lerp(0, r.cfg.HeatOpacityScale, intensity)
}

func (r *Renderer) marker(i int, e domain.NoiseEvent) Marker {
	color := r.cfg.Palette.ColorFor(e.SoundType)
	return Marker{
		Index:       i,
		Position:    domain.LatLng{Lat: e.Latitude, Lng: e.Longitude},
		SoundType:   e.SoundType,
		Radius:      r.MarkerRadius(e.Intensity),
		Color:       color,
		FillColor:   color,
		FillOpacity: r.cfg.MarkerFillOpacity,
		Weight:      r.cfg.MarkerWeight,
	}
}

func (r *Renderer) heatCircle(e domain.NoiseEvent) HeatCircle {
	return HeatCircle{
		Position:     domain.LatLng{Lat: e.Latitude, Lng: e.Longitude},
		RadiusMeters: r.cfg.HeatRadiusMeters,
		FillColor:    r.cfg.HeatColor,
		FillOpacity:  r.HeatOpacity(e.Intensity),
	}
}

// ToggleHeat flips heat layer visibility and returns the new state
func (r *Renderer) ToggleHeat() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heatVisible = !r.heatVisible
	return r.heatVisible
}

// Recenter resets the viewport to the configured default
func (r *Renderer) Recenter() {
	r.mu.Lock()
	r.viewport = Viewport{Center: r.cfg.Center, Zoom: r.cfg.Zoom}
	r.mu.Unlock()
}

// SetViewport records a pan or zoom made by the map shell
func (r *Renderer) SetViewport(v Viewport) {
	r.mu.Lock()
	r.viewport = v
	r.mu.Unlock()
}

// Viewport returns the current viewport
func (r *Renderer) Viewport() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewport
}

// HandleMapClick synthesizes an event at the clicked point and appends it
// to the store. It is a demo affordance, not a sensing integration.
func (r *Renderer) HandleMapClick(lat, lng float64) domain.NoiseEvent {
	types := r.cfg.ClickSoundTypes
	idx := int(r.cfg.Random() * float64(len(types)))
	if idx >= len(types) {
		idx = len(types) - 1
	}

	event := domain.NoiseEvent{
		SoundType: types[idx],
		Intensity: r.cfg.Random(),
		Latitude:  lat,
		Longitude: lng,
		Timestamp: r.cfg.Now().UTC(),
	}
	r.store.Append(event)
	return event
}

// SelectMarker invokes the selection handler with the event behind marker i
func (r *Renderer) SelectMarker(i int) (domain.NoiseEvent, bool) {
	r.mu.Lock()
	if i < 0 || i >= len(r.events) {
		r.mu.Unlock()
		return domain.NoiseEvent{}, false
	}
	event, fn := r.events[i], r.onSelected
	r.mu.Unlock()

	if fn != nil {
		fn(event)
	}
	return event, true
}

// HitTest returns the index of the topmost marker covering the point
func (r *Renderer) HitTest(lat, lng float64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mpp := utils.MetersPerPixel(lat, r.viewport.Zoom)
	for i := len(r.markers) - 1; i >= 0; i-- {
		m := r.markers[i]
		distM := utils.DistanceMeters(lat, lng, m.Position.Lat, m.Position.Lng)
		if distM <= m.Radius*mpp {
			return m.Index, true
		}
	}
	return 0, false
}

// Scene returns a snapshot of the viewport and both layers
func (r *Renderer) Scene() Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Scene{
		Viewport:    r.viewport,
		Markers:     append([]Marker{}, r.markers...),
		Heat:        append([]HeatCircle{}, r.heat...),
		HeatVisible: r.heatVisible,
	}
}
