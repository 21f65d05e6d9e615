// Package document models a report as ordered sections and serializes it to
// an Office Open XML word-processing file.
package document

// Align is a paragraph alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Run is a span of uniformly formatted text. Zero values mean "inherit".
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Font   string
	Size   float64 // points
	Color  string  // RRGGBB
}

// Block is a paragraph, table or image inside a section.
type Block interface {
	block()
}

// Paragraph is a sequence of runs.
type Paragraph struct {
	Runs  []Run
	Align Align
}

// Table is a grid of text cells. The header row is rendered bold and every
// cell is centered.
type Table struct {
	Header []string
	Rows   [][]string
}

// Image is an embedded PNG scaled to WidthInches, keeping its aspect ratio.
type Image struct {
	Name        string
	PNG         []byte
	WidthInches float64
}

func (Paragraph) block() {}
func (Table) block()     {}
func (Image) block()     {}

// Section is a heading followed by blocks. Level 1 and 2 map to the
// Heading1 and Heading2 styles.
type Section struct {
	Level   int
	Heading string
	Blocks  []Block
}

// Document is a titled, ordered list of sections.
type Document struct {
	Title    Paragraph
	Sections []Section
	Styles   Styles
}

// New returns an empty document using the default style presets.
func New() *Document {
	return &Document{Styles: DefaultStyles}
}

// Text returns a single-run paragraph.
func Text(s string) Paragraph {
	return Paragraph{Runs: []Run{{Text: s}}}
}

// Add appends a section.
func (d *Document) Add(s Section) {
	d.Sections = append(d.Sections, s)
}

// Headings lists section headings in document order.
func (d *Document) Headings() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Heading
	}
	return out
}
