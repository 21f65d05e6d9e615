package compose

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TobiSchelling/ChannelReports/internal/chart"
	"github.com/TobiSchelling/ChannelReports/internal/document"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

// Section headings, in document order.
const (
	HeadingContents        = "Contents"
	HeadingKeyMetrics      = "1. Key metrics"
	HeadingVisualAnalytics = "2. Visual analytics"
	HeadingAnalysis        = "3. Analysis of visualizations"
	HeadingDeepAnalysis    = "4. Deep analysis"
	HeadingRecommendations = "5. Recommendations"
	HeadingConclusion      = "6. Conclusion"
)

// ChartWidthInches is the rendered width of every embedded chart.
const ChartWidthInches = 5.5

var contents = []string{
	HeadingKeyMetrics,
	HeadingVisualAnalytics,
	HeadingAnalysis,
	HeadingDeepAnalysis,
	HeadingRecommendations,
	HeadingConclusion,
}

// Narrator writes the free-text parts of a report. Implementations return
// placeholder text instead of failing. Reset is called once per document and
// clears any failure state carried over from earlier reports.
type Narrator interface {
	Reset()
	ChartCommentary(ctx context.Context, chartID int, ds *stats.Dataset) string
	Synthesis(ctx context.Context, ds *stats.Dataset) string
	DeepDive(ctx context.Context, ds *stats.Dataset) string
	Recommendations(ctx context.Context, ds *stats.Dataset) string
}

// Composer assembles report documents.
type Composer struct {
	narrator Narrator
	styles   document.Styles
	logger   logging.Logger
	now      func() time.Time
}

// NewComposer creates a composer that uses narrator for all prose.
func NewComposer(narrator Narrator, styles document.Styles, logger logging.Logger) *Composer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Composer{narrator: narrator, styles: styles, logger: logger, now: time.Now}
}

// BuildDocument lays out the full report for ds. The section structure is
// fixed; only narrative text varies between runs.
func (c *Composer) BuildDocument(ctx context.Context, ds *stats.Dataset, title string) (*document.Document, error) {
	c.narrator.Reset()

	doc := document.New()
	doc.Styles = c.styles

	doc.Title = document.Paragraph{Runs: []document.Run{{Text: title}}, Align: document.AlignCenter}
	if err := document.ApplyStyle(&doc.Title, c.styles.Title); err != nil {
		return nil, fmt.Errorf("styling title: %w", err)
	}

	doc.Add(document.Section{
		Level:   1,
		Heading: HeadingContents,
		Blocks:  []document.Block{document.Text(strings.Join(contents, "\n"))},
	})

	doc.Add(document.Section{
		Level:   1,
		Heading: HeadingKeyMetrics,
		Blocks:  []document.Block{StatsTable(ds.Describe())},
	})

	artifacts, err := chart.All(ds)
	if err != nil {
		return nil, fmt.Errorf("rendering charts: %w", err)
	}
	c.logger.WithField("charts", len(artifacts)).Debug("charts rendered")

	doc.Add(document.Section{Level: 1, Heading: HeadingVisualAnalytics})
	for _, a := range artifacts {
		blocks := []document.Block{document.Image{
			Name:        chart.Title(a.ID),
			PNG:         a.PNG,
			WidthInches: ChartWidthInches,
		}}
		blocks = append(blocks, prose(c.narrator.ChartCommentary(ctx, a.ID, ds))...)
		doc.Add(document.Section{Level: 2, Heading: chart.Title(a.ID), Blocks: blocks})
	}

	doc.Add(document.Section{Level: 1, Heading: HeadingAnalysis, Blocks: prose(c.narrator.Synthesis(ctx, ds))})
	doc.Add(document.Section{Level: 1, Heading: HeadingDeepAnalysis, Blocks: prose(c.narrator.DeepDive(ctx, ds))})
	doc.Add(document.Section{Level: 1, Heading: HeadingRecommendations, Blocks: prose(c.narrator.Recommendations(ctx, ds))})

	conclusion := fmt.Sprintf("Report generated %s by the channel analytics system.", c.now().Format("02.01.2006 15:04"))
	doc.Add(document.Section{
		Level:   1,
		Heading: HeadingConclusion,
		Blocks:  []document.Block{document.Text(conclusion)},
	})

	return doc, nil
}

func prose(text string) []document.Block {
	paragraphs := document.Markdown(text)
	blocks := make([]document.Block, len(paragraphs))
	for i, p := range paragraphs {
		blocks[i] = p
	}
	return blocks
}

// StatsTable lays out a descriptive summary with one row per statistic and
// one column per metric.
func StatsTable(s stats.Summary) document.Table {
	header := []string{""}
	for _, m := range stats.Metrics {
		header = append(header, m.String())
	}

	rows := make([][]string, len(s.Stats))
	for i, name := range s.Stats {
		row := []string{name}
		for _, m := range stats.Metrics {
			row = append(row, strconv.FormatFloat(s.Values[i][m], 'f', -1, 64))
		}
		rows[i] = row
	}
	return document.Table{Header: header, Rows: rows}
}
