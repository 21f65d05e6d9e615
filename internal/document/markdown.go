package document

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// Markdown converts model output to paragraphs. Strong emphasis and headings
// become bold runs, list items get a bullet or number prefix. Input with no
// block structure comes back as a single paragraph.
func Markdown(src string) []Paragraph {
	source := []byte(src)
	root := md.Parser().Parse(text.NewReader(source))

	var out []Paragraph
	var walk func(n ast.Node, prefix string)
	walk = func(n ast.Node, prefix string) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch c.Kind() {
			case ast.KindParagraph, ast.KindTextBlock:
				out = append(out, inlineParagraph(c, source, prefix, false))
				prefix = ""
			case ast.KindHeading:
				out = append(out, inlineParagraph(c, source, "", true))
			case ast.KindList:
				list := c.(*ast.List)
				i := 0
				for item := list.FirstChild(); item != nil; item = item.NextSibling() {
					marker := "• "
					if list.IsOrdered() {
						marker = fmt.Sprintf("%d. ", list.Start+i)
					}
					walk(item, marker)
					i++
				}
			case ast.KindFencedCodeBlock, ast.KindCodeBlock:
				var b strings.Builder
				lines := c.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(source))
				}
				out = append(out, Paragraph{Runs: []Run{{Text: strings.TrimRight(b.String(), "\n"), Font: "Consolas"}}})
			case ast.KindHTMLBlock, ast.KindThematicBreak:
			default:
				walk(c, prefix)
			}
		}
	}
	walk(root, "")

	if len(out) == 0 {
		return []Paragraph{Text(src)}
	}
	return out
}

func inlineParagraph(n ast.Node, source []byte, prefix string, bold bool) Paragraph {
	var runs []Run
	if prefix != "" {
		runs = append(runs, Run{Text: prefix})
	}

	strong, em := 0, 0
	add := func(s string) {
		runs = appendRun(runs, Run{Text: s, Bold: bold || strong > 0, Italic: em > 0})
	}

	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if node == n {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Emphasis:
			d := 1
			if !entering {
				d = -1
			}
			if v.Level >= 2 {
				strong += d
			} else {
				em += d
			}
		case *ast.Text:
			if entering {
				add(string(v.Segment.Value(source)))
				if v.SoftLineBreak() || v.HardLineBreak() {
					add(" ")
				}
			}
		case *ast.String:
			if entering {
				add(string(v.Value))
			}
		case *ast.AutoLink:
			if entering {
				add(string(v.URL(source)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return Paragraph{Runs: runs}
}

// appendRun merges r into the last run when formatting matches.
func appendRun(runs []Run, r Run) []Run {
	if n := len(runs); n > 0 {
		last := &runs[n-1]
		if last.Bold == r.Bold && last.Italic == r.Italic && last.Font == r.Font {
			last.Text += r.Text
			return runs
		}
	}
	return append(runs, r)
}
