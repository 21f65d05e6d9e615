package document

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// DefaultFont is applied to styled runs.
const DefaultFont = "Calibri"

// Style is a named text preset.
type Style struct {
	Name     string
	FontSize float64
	Bold     bool
	Color    string // "#RRGGBB" or empty
}

// Styles are the presets a document is rendered with.
type Styles struct {
	Title   Style
	Header1 Style
	Header2 Style
	Body    Style
}

// DefaultStyles are the report presets.
var DefaultStyles = Styles{
	Title:   Style{Name: "title", FontSize: 16, Bold: true, Color: "#1F497D"},
	Header1: Style{Name: "header1", FontSize: 14, Color: "#2E74B5"},
	Header2: Style{Name: "header2", FontSize: 12, Color: "#2E75B6"},
	Body:    Style{Name: "body", FontSize: 11},
}

// Lookup returns a preset by name.
func (s Styles) Lookup(name string) (Style, bool) {
	for _, st := range []Style{s.Title, s.Header1, s.Header2, s.Body} {
		if st.Name == name {
			return st, true
		}
	}
	return Style{}, false
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// hexOf returns the RRGGBB form used in the XML.
func hexOf(c color.RGBA) string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ApplyStyle formats the first run of p with st. A paragraph without runs is
// left alone.
func ApplyStyle(p *Paragraph, st Style) error {
	if len(p.Runs) == 0 {
		return nil
	}
	run := &p.Runs[0]
	run.Font = DefaultFont
	run.Size = st.FontSize
	if st.Bold {
		run.Bold = true
	}
	if st.Color != "" {
		c, err := ParseHexColor(st.Color)
		if err != nil {
			return err
		}
		run.Color = hexOf(c)
	}
	return nil
}
