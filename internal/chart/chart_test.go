package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testDataset(t *testing.T) *stats.Dataset {
	t.Helper()
	ds, err := stats.PrepareDataset([]database.EngagementRecord{
		{ID: 1, PostID: "1", Likes: 10, Comments: 2, Shares: 1, Date: "2024-01-01", Channel: "c"},
		{ID: 2, PostID: "2", Likes: 20, Comments: 4, Shares: 2, Date: "2024-01-02", Channel: "c"},
		{ID: 3, PostID: "3", Likes: 12, Comments: 9, Shares: 0, Date: "2024-01-06", Channel: "c"},
	})
	require.NoError(t, err)
	return ds
}

func assertPNG(t *testing.T, a Artifact, id int) {
	t.Helper()
	assert.Equal(t, id, a.ID)
	require.True(t, bytes.HasPrefix(a.PNG, pngSignature), "expected PNG signature")
	img, err := png.Decode(bytes.NewReader(a.PNG))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestMetricComparison(t *testing.T) {
	a, err := MetricComparison(testDataset(t))
	require.NoError(t, err)
	assertPNG(t, a, MetricComparisonID)
}

func TestCorrelationMatrix(t *testing.T) {
	a, err := CorrelationMatrix(testDataset(t))
	require.NoError(t, err)
	assertPNG(t, a, CorrelationMatrixID)
}

func TestWeeklyTrend(t *testing.T) {
	a, err := WeeklyTrend(testDataset(t))
	require.NoError(t, err)
	assertPNG(t, a, WeeklyTrendID)
}

func TestAllOrder(t *testing.T) {
	arts, err := All(testDataset(t))
	require.NoError(t, err)
	require.Len(t, arts, 3)
	for i, a := range arts {
		assert.Equal(t, i+1, a.ID)
	}
}

func TestRendersAreIndependent(t *testing.T) {
	ds := testDataset(t)
	first, err := WeeklyTrend(ds)
	require.NoError(t, err)
	_, err = CorrelationMatrix(ds)
	require.NoError(t, err)
	second, err := WeeklyTrend(ds)
	require.NoError(t, err)
	assert.Equal(t, first.PNG, second.PNG)
}

func TestCorrGridOrientation(t *testing.T) {
	var m [stats.NumMetrics][stats.NumMetrics]float64
	m[0][1] = 0.5
	g := corrGrid(m)
	// Row 0 of the matrix sits at the top of the grid.
	assert.Equal(t, 0.5, g.Z(1, stats.NumMetrics-1))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Metric comparison", Title(MetricComparisonID))
	assert.Equal(t, "Activity by weekday", Title(WeeklyTrendID))
	assert.Equal(t, "Chart 9", Title(9))
}
