package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	emuPerInch        = 914400
	defaultImageWidth = 5.5
	textWidthTwips    = 9026
)

const (
	nsW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsA   = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	nsRel = "http://schemas.openxmlformats.org/package/2006/relationships"

	relDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>
</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="` + nsRel + `">
<Relationship Id="rId1" Type="` + relDocument + `" Target="word/document.xml"/>
</Relationships>`

// Save writes the document to path, replacing any existing file. The file is
// written next to path and renamed into place, so readers never see a
// partially written report.
func (d *Document) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := d.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Write serializes the document as a .docx package.
func (d *Document) Write(w io.Writer) error {
	body, media, err := d.renderBody()
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypes)},
		{"_rels/.rels", []byte(packageRels)},
		{"word/document.xml", body},
		{"word/_rels/document.xml.rels", documentRels(media)},
		{"word/styles.xml", d.stylesXML()},
	}
	for _, m := range media {
		parts = append(parts, struct {
			name string
			data []byte
		}{"word/media/" + m.file, m.data})
	}

	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("adding %s: %w", p.name, err)
		}
		if _, err := fw.Write(p.data); err != nil {
			return fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

type mediaPart struct {
	relID string
	file  string
	data  []byte
}

func documentRels(media []mediaPart) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<Relationships xmlns="` + nsRel + `">`)
	b.WriteString(`<Relationship Id="rId1" Type="` + relStyles + `" Target="styles.xml"/>`)
	for _, m := range media {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="media/%s"/>`, m.relID, relImage, m.file)
	}
	b.WriteString(`</Relationships>`)
	return []byte(b.String())
}

func (d *Document) renderBody() ([]byte, []mediaPart, error) {
	var b strings.Builder
	var media []mediaPart

	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:document xmlns:w="%s" xmlns:r="%s" xmlns:wp="%s" xmlns:a="%s" xmlns:pic="%s"><w:body>`,
		nsW, nsR, nsWP, nsA, nsPic)

	writeParagraph(&b, d.Title, "")
	for _, s := range d.Sections {
		writeParagraph(&b, Text(s.Heading), headingStyle(s.Level))
		for _, blk := range s.Blocks {
			switch v := blk.(type) {
			case Paragraph:
				writeParagraph(&b, v, "")
			case Table:
				writeTable(&b, v)
			case Image:
				n := len(media) + 1
				m := mediaPart{relID: "rIdImg" + strconv.Itoa(n), file: "image" + strconv.Itoa(n) + ".png", data: v.PNG}
				if err := writeImage(&b, v, n, m.relID); err != nil {
					return nil, nil, err
				}
				media = append(media, m)
			}
		}
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return []byte(b.String()), media, nil
}

func headingStyle(level int) string {
	if level >= 2 {
		return "Heading2"
	}
	return "Heading1"
}

func escape(s string) string {
	var b bytes.Buffer
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func writeParagraph(b *strings.Builder, p Paragraph, style string) {
	b.WriteString("<w:p>")
	if style != "" || p.Align == AlignCenter {
		b.WriteString("<w:pPr>")
		if style != "" {
			fmt.Fprintf(b, `<w:pStyle w:val="%s"/>`, style)
		}
		if p.Align == AlignCenter {
			b.WriteString(`<w:jc w:val="center"/>`)
		}
		b.WriteString("</w:pPr>")
	}
	for _, r := range p.Runs {
		writeRun(b, r)
	}
	b.WriteString("</w:p>")
}

func writeRun(b *strings.Builder, r Run) {
	b.WriteString("<w:r>")
	if r.Font != "" || r.Bold || r.Italic || r.Color != "" || r.Size > 0 {
		b.WriteString("<w:rPr>")
		if r.Font != "" {
			fmt.Fprintf(b, `<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/>`, escape(r.Font))
		}
		if r.Bold {
			b.WriteString("<w:b/>")
		}
		if r.Italic {
			b.WriteString("<w:i/>")
		}
		if r.Color != "" {
			fmt.Fprintf(b, `<w:color w:val="%s"/>`, escape(r.Color))
		}
		if r.Size > 0 {
			fmt.Fprintf(b, `<w:sz w:val="%d"/>`, int(r.Size*2))
		}
		b.WriteString("</w:rPr>")
	}
	for i, line := range strings.Split(r.Text, "\n") {
		if i > 0 {
			b.WriteString("<w:br/>")
		}
		fmt.Fprintf(b, `<w:t xml:space="preserve">%s</w:t>`, escape(line))
	}
	b.WriteString("</w:r>")
}

func writeTable(b *strings.Builder, t Table) {
	cols := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}
	colWidth := textWidthTwips / cols

	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/><w:tblBorders>`)
	for _, edge := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, edge)
	}
	b.WriteString(`</w:tblBorders></w:tblPr><w:tblGrid>`)
	for i := 0; i < cols; i++ {
		fmt.Fprintf(b, `<w:gridCol w:w="%d"/>`, colWidth)
	}
	b.WriteString(`</w:tblGrid>`)

	writeRow := func(cells []string, bold bool) {
		b.WriteString("<w:tr>")
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/></w:tcPr>`, colWidth)
			writeParagraph(b, Paragraph{Runs: []Run{{Text: cell, Bold: bold}}, Align: AlignCenter}, "")
			b.WriteString("</w:tc>")
		}
		b.WriteString("</w:tr>")
	}
	writeRow(t.Header, true)
	for _, row := range t.Rows {
		writeRow(row, false)
	}
	b.WriteString("</w:tbl>")
}

func writeImage(b *strings.Builder, img Image, n int, relID string) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.PNG))
	if err != nil {
		return fmt.Errorf("reading image %d: %w", n, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("image %d has no pixels", n)
	}

	width := img.WidthInches
	if width <= 0 {
		width = defaultImageWidth
	}
	cx := int64(width * emuPerInch)
	cy := cx * int64(cfg.Height) / int64(cfg.Width)

	name := img.Name
	if name == "" {
		name = "Picture " + strconv.Itoa(n)
	}

	fmt.Fprintf(b, `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing>`+
		`<wp:inline distT="0" distB="0" distL="0" distR="0">`+
		`<wp:extent cx="%[1]d" cy="%[2]d"/>`+
		`<wp:docPr id="%[3]d" name="%[4]s"/>`+
		`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>`+
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`+
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="%[3]d" name="image%[3]d.png"/><pic:cNvPicPr/></pic:nvPicPr>`+
		`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`+
		`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>`+
		`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>`+
		`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`,
		cx, cy, n, escape(name), relID)
	return nil
}

func (d *Document) stylesXML() []byte {
	st := d.Styles
	if st == (Styles{}) {
		st = DefaultStyles
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<w:styles xmlns:w="%s">`, nsW)
	fmt.Fprintf(&b, `<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:cs="%[1]s"/>`+
		`<w:sz w:val="%[2]d"/></w:rPr></w:rPrDefault>`+
		`<w:pPrDefault><w:pPr><w:spacing w:after="160" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>`,
		DefaultFont, int(st.Body.FontSize*2))
	b.WriteString(`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>`)
	writeHeadingStyle(&b, "Heading1", "heading 1", 0, st.Header1)
	writeHeadingStyle(&b, "Heading2", "heading 2", 1, st.Header2)
	b.WriteString(`</w:styles>`)
	return []byte(b.String())
}

func writeHeadingStyle(b *strings.Builder, id, name string, outline int, s Style) {
	fmt.Fprintf(b, `<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/><w:basedOn w:val="Normal"/>`+
		`<w:next w:val="Normal"/><w:qFormat/><w:pPr><w:keepNext/><w:spacing w:before="240" w:after="80"/>`+
		`<w:outlineLvl w:val="%d"/></w:pPr><w:rPr>`, id, name, outline)
	if s.Bold {
		b.WriteString(`<w:b/>`)
	}
	if c, err := ParseHexColor(s.Color); err == nil {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, hexOf(c))
	}
	if s.FontSize > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/>`, int(s.FontSize*2))
	}
	b.WriteString(`</w:rPr></w:style>`)
}
