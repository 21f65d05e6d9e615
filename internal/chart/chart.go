// Package chart renders report visualizations to PNG. Every render builds
// its own plot and canvas, so calls share no drawing state.
package chart

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

// Chart identifiers, in the order they appear in a report.
const (
	MetricComparisonID  = 1
	CorrelationMatrixID = 2
	WeeklyTrendID       = 3
)

const (
	width  = 6 * vg.Inch
	height = 4 * vg.Inch
)

var titles = map[int]string{
	MetricComparisonID:  "Metric comparison",
	CorrelationMatrixID: "Metric correlation",
	WeeklyTrendID:       "Activity by weekday",
}

// Title returns the section heading for a chart identifier.
func Title(id int) string {
	if t, ok := titles[id]; ok {
		return t
	}
	return fmt.Sprintf("Chart %d", id)
}

// Artifact is an encoded chart image.
type Artifact struct {
	ID  int
	PNG []byte
}

var barColors = [stats.NumMetrics]color.Color{
	color.RGBA{R: 68, G: 1, B: 84, A: 255},
	color.RGBA{R: 33, G: 145, B: 140, A: 255},
	color.RGBA{R: 94, G: 201, B: 98, A: 255},
}

// All renders the three report charts in report order.
func All(ds *stats.Dataset) ([]Artifact, error) {
	renderers := []func(*stats.Dataset) (Artifact, error){
		MetricComparison,
		CorrelationMatrix,
		WeeklyTrend,
	}
	out := make([]Artifact, 0, len(renderers))
	for _, render := range renderers {
		a, err := render(ds)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// MetricComparison draws the mean of each metric as a bar.
func MetricComparison(ds *stats.Dataset) (Artifact, error) {
	means := ds.Means()

	p := plot.New()
	p.Title.Text = "Average engagement per post"
	p.Y.Label.Text = "Count"
	p.Y.Min = 0

	names := make([]string, 0, stats.NumMetrics)
	for _, m := range stats.Metrics {
		bar, err := plotter.NewBarChart(plotter.Values{means[m]}, vg.Points(48))
		if err != nil {
			return Artifact{}, fmt.Errorf("building %s bar: %w", m, err)
		}
		bar.XMin = float64(m)
		bar.Color = barColors[m]
		bar.LineStyle.Width = 0
		p.Add(bar)
		names = append(names, m.String())
	}
	p.NominalX(names...)

	return render(p, MetricComparisonID)
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 is drawn
// at the top.
type corrGrid [stats.NumMetrics][stats.NumMetrics]float64

func (g corrGrid) Dims() (c, r int)   { return stats.NumMetrics, stats.NumMetrics }
func (g corrGrid) Z(c, r int) float64 { return g[stats.NumMetrics-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// CorrelationMatrix draws the Pearson matrix as an annotated heatmap.
func CorrelationMatrix(ds *stats.Dataset) (Artifact, error) {
	grid := corrGrid(ds.Correlation())

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	heat := plotter.NewHeatMap(grid, cmap.Palette(255))
	heat.Min, heat.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation between metrics"
	p.Add(heat)

	var xys plotter.XYs
	var labels []string
	c, r := grid.Dims()
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			xys = append(xys, plotter.XY{X: grid.X(x), Y: grid.Y(y)})
			labels = append(labels, fmt.Sprintf("%.2f", grid.Z(x, y)))
		}
	}
	annot, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return Artifact{}, fmt.Errorf("building heatmap labels: %w", err)
	}
	for i := range annot.TextStyle {
		annot.TextStyle[i].XAlign = draw.XCenter
		annot.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(annot)

	names := make([]string, 0, stats.NumMetrics)
	reversed := make([]string, stats.NumMetrics)
	for _, m := range stats.Metrics {
		names = append(names, m.String())
		reversed[stats.NumMetrics-1-int(m)] = m.String()
	}
	p.NominalX(names...)
	p.NominalY(reversed...)

	return render(p, CorrelationMatrixID)
}

// WeeklyTrend draws total likes per weekday, Monday to Sunday.
func WeeklyTrend(ds *stats.Dataset) (Artifact, error) {
	totals := ds.WeekdayTotals(stats.Likes)

	xys := make(plotter.XYs, len(totals))
	for i, v := range totals {
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return Artifact{}, fmt.Errorf("building trend line: %w", err)
	}
	line.Color = barColors[stats.Likes]
	points.GlyphStyle.Shape = draw.CircleGlyph{}
	points.GlyphStyle.Color = barColors[stats.Likes]
	points.GlyphStyle.Radius = vg.Points(3)

	p := plot.New()
	p.Title.Text = "Activity by weekday"
	p.Y.Label.Text = "Likes"
	p.Y.Min = 0
	p.Add(plotter.NewGrid(), line, points)
	p.NominalX(stats.Weekdays[:]...)

	return render(p, WeeklyTrendID)
}

func render(p *plot.Plot, id int) (Artifact, error) {
	w, err := p.WriterTo(width, height, "png")
	if err != nil {
		return Artifact{}, fmt.Errorf("creating chart %d canvas: %w", id, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return Artifact{}, fmt.Errorf("encoding chart %d: %w", id, err)
	}
	return Artifact{ID: id, PNG: buf.Bytes()}, nil
}
