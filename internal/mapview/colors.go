// Package mapview renders noise events into toolkit-independent map layers.
//
// A Store holds the events, a Renderer turns them into a marker layer and a
// heat layer, and an InfoPanel formats the event a user selected. Nothing in
// here knows about HTML or a particular map library; the viewer serves the
// resulting Scene as JSON to whatever draws it.
package mapview

// Color is a CSS hex color such as "#ff0088"
type Color string

// DefaultColor is returned for labels outside the taxonomy
const DefaultColor Color = "#4444ff"

var defaultColors = map[string]Color{
	"air_conditioner":  "#888888",
	"car_horn":         "#ff4444",
	"children_playing": "#44ff44",
	"dog_bark":         "#ff8800",
	"drilling":         "#ffaa00",
	"engine_idling":    "#666666",
	"gun_shot":         "#ff0000",
	"jackhammer":       "#ff6600",
	"siren":            "#ff0088",
	"street_music":     "#8844ff",
}

// Palette maps sound-type labels to display colors
type Palette struct {
	colors   map[string]Color
	fallback Color
}

// NewPalette builds a palette from the default table plus overrides
func NewPalette(overrides map[string]Color) *Palette {
	colors := make(map[string]Color, len(defaultColors)+len(overrides))
	for label, c := range defaultColors {
		colors[label] = c
	}
	for label, c := range overrides {
		colors[label] = c
	}
	return &Palette{colors: colors, fallback: DefaultColor}
}

// ColorFor returns the color for soundType, or the fallback for unknown labels
func (p *Palette) ColorFor(soundType string) Color {
	if c, ok := p.colors[soundType]; ok {
		return c
	}
	return p.fallback
}

var standardPalette = NewPalette(nil)

// ColorFor maps a sound-type label to its color using the default table
func ColorFor(soundType string) Color {
	return standardPalette.ColorFor(soundType)
}
