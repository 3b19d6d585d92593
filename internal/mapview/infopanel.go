package mapview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/urbansound/noisemap/internal/domain"
)

// PanelContent is what the info panel displays for one event
type PanelContent struct {
	Title       string `json:"title"`
	SoundType   string `json:"sound_type"`
	Intensity   string `json:"intensity"`
	Coordinates string `json:"coordinates"`
	Recorded    string `json:"recorded"`
}

// dateTimeLayouts approximates toLocaleString output per locale
var dateTimeLayouts = map[string]string{
	"en":    "1/2/2006, 3:04:05 PM",
	"en-US": "1/2/2006, 3:04:05 PM",
	"en-GB": "02/01/2006, 15:04:05",
	"de":    "2.1.2006, 15:04:05",
	"fr":    "02/01/2006 15:04:05",
	"ru":    "02.01.2006, 15:04:05",
}

// InfoPanel formats the most recently selected event
type InfoPanel struct {
	printer  *message.Printer
	tag      language.Tag
	layout   string
	location *time.Location

	mu   sync.Mutex
	last *PanelContent
}

// NewInfoPanel creates a panel formatting for locale (BCP 47) in loc.
// An unparsable locale falls back to en-US; a nil loc means UTC.
func NewInfoPanel(locale string, loc *time.Location) *InfoPanel {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	if loc == nil {
		loc = time.UTC
	}
	return &InfoPanel{
		printer:  message.NewPrinter(tag),
		tag:      tag,
		layout:   layoutFor(tag),
		location: loc,
	}
}

func layoutFor(tag language.Tag) string {
	if l, ok := dateTimeLayouts[tag.String()]; ok {
		return l
	}
	base, _ := tag.Base()
	if l, ok := dateTimeLayouts[base.String()]; ok {
		return l
	}
	return dateTimeLayouts["en-US"]
}

// Show replaces the panel content with the formatted event
func (p *InfoPanel) Show(e domain.NoiseEvent) PanelContent {
	content := PanelContent{
		Title:       p.FormatLabel(e.SoundType),
		SoundType:   e.SoundType,
		Intensity:   p.FormatPercent(e.Intensity),
		Coordinates: fmt.Sprintf("%.4f, %.4f", e.Latitude, e.Longitude),
		Recorded:    e.Timestamp.In(p.location).Format(p.layout),
	}

	p.mu.Lock()
	p.last = &content
	p.mu.Unlock()
	return content
}

// Last returns the most recently shown content
func (p *InfoPanel) Last() (PanelContent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return PanelContent{}, false
	}
	return *p.last, true
}

// FormatLabel turns "street_music" into "Street Music"
func (p *InfoPanel) FormatLabel(label string) string {
	// A Caser is stateful, so each call gets its own
	return cases.Title(p.tag).String(strings.ReplaceAll(label, "_", " "))
}

// FormatPercent renders a [0,1] fraction as a percentage with one decimal
func (p *InfoPanel) FormatPercent(fraction float64) string {
	return p.printer.Sprintf("%.1f%%", fraction*100)
}
