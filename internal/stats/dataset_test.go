package stats

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

func record(id int64, likes, comments, shares int64, date string) database.EngagementRecord {
	return database.EngagementRecord{
		ID: id, PostID: "p", Likes: likes, Comments: comments, Shares: shares, Date: date, Channel: "c",
	}
}

func TestPrepareDatasetEmpty(t *testing.T) {
	_, err := PrepareDataset(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reporterr.ErrEmptyDataset))
	assert.True(t, reporterr.IsValidation(err))
}

func TestPrepareDatasetInvalidDate(t *testing.T) {
	_, err := PrepareDataset([]database.EngagementRecord{
		record(1, 1, 1, 1, "2024-01-01"),
		record(2, 1, 1, 1, "yesterday-ish"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, reporterr.ErrInvalidDate))
}

func TestPrepareDatasetSortsStably(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 1, 0, 0, "2024-01-03T00:00:00.000Z"),
		record(2, 2, 0, 0, "2024-01-01T00:00:00.000Z"),
		record(3, 3, 0, 0, "2024-01-03T00:00:00.000Z"),
		record(4, 4, 0, 0, "2024-01-02 12:00:00"),
		record(5, 5, 0, 0, "2024-01-01T00:00:00.000Z"),
	})
	require.NoError(t, err)

	var ids []int64
	rows := ds.Rows()
	for i, r := range rows {
		ids = append(ids, r.ID)
		if i > 0 {
			assert.False(t, r.Date.Before(rows[i-1].Date), "rows must be non-decreasing by date")
		}
	}
	assert.Equal(t, []int64{2, 5, 4, 1, 3}, ids)
}

func TestPrepareDatasetDoesNotAliasInput(t *testing.T) {
	in := []database.EngagementRecord{
		record(1, 1, 0, 0, "2024-01-02"),
		record(2, 2, 0, 0, "2024-01-01"),
	}
	_, err := PrepareDataset(in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), in[0].ID)
}

func TestMeans(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 10, 2, 1, "2024-01-01"),
		record(2, 20, 4, 2, "2024-01-02"),
	})
	require.NoError(t, err)

	means := ds.Means()
	assert.Equal(t, 15.0, means[Likes])
	assert.Equal(t, 3.0, means[Comments])
	assert.Equal(t, 1.5, means[Shares])
}

func TestCorrelationProperties(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 10, 2, 7, "2024-01-01"),
		record(2, 20, 4, 1, "2024-01-02"),
		record(3, 15, 9, 3, "2024-01-03"),
		record(4, 40, 1, 8, "2024-01-04"),
	})
	require.NoError(t, err)

	corr := ds.Correlation()
	for i := 0; i < NumMetrics; i++ {
		assert.Equal(t, 1.0, corr[i][i])
		for j := 0; j < NumMetrics; j++ {
			assert.Equal(t, corr[i][j], corr[j][i], "matrix must be symmetric")
			assert.GreaterOrEqual(t, corr[i][j], -1.0)
			assert.LessOrEqual(t, corr[i][j], 1.0)
		}
	}
}

func TestCorrelationPerfectlyLinear(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 10, 2, 1, "2024-01-01"),
		record(2, 20, 4, 2, "2024-01-02"),
		record(3, 30, 6, 3, "2024-01-03"),
	})
	require.NoError(t, err)

	corr := ds.Correlation()
	assert.InDelta(t, 1.0, corr[Likes][Comments], 1e-9)
	assert.InDelta(t, 1.0, corr[Likes][Shares], 1e-9)
}

func TestCorrelationZeroVariance(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 10, 5, 0, "2024-01-01"),
		record(2, 20, 5, 0, "2024-01-02"),
	})
	require.NoError(t, err)

	corr := ds.Correlation()
	assert.Equal(t, 1.0, corr[Comments][Comments])
	assert.Equal(t, 0.0, corr[Likes][Comments])
	assert.Equal(t, 0.0, corr[Comments][Shares])
	for i := 0; i < NumMetrics; i++ {
		for j := 0; j < NumMetrics; j++ {
			assert.False(t, math.IsNaN(corr[i][j]))
		}
	}
}

func TestWeekdayTotalsSpanMultipleWeeks(t *testing.T) {
	// 2024-01-01 and 2024-01-08 are Mondays, 2024-01-07 is a Sunday.
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 10, 0, 0, "2024-01-01"),
		record(2, 5, 0, 0, "2024-01-07"),
		record(3, 7, 0, 0, "2024-01-08"),
		record(4, 1, 0, 0, "2024-01-03"),
	})
	require.NoError(t, err)

	totals := ds.WeekdayTotals(Likes)
	assert.Equal(t, [7]float64{17, 0, 1, 0, 0, 0, 5}, totals)
	assert.Equal(t, "Monday", Weekdays[0])
	assert.Equal(t, "Sunday", Weekdays[6])
}

func TestDateRange(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 0, 0, 0, "2024-01-05"),
		record(2, 0, 0, 0, "2024-01-02"),
	})
	require.NoError(t, err)

	first, last := ds.DateRange()
	assert.Equal(t, "2024-01-02", first.Format(database.DateLayout))
	assert.Equal(t, "2024-01-05", last.Format(database.DateLayout))
}

func TestDescribe(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{
		record(1, 1, 0, 3, "2024-01-01"),
		record(2, 2, 0, 3, "2024-01-02"),
		record(3, 3, 0, 3, "2024-01-03"),
		record(4, 4, 1, 3, "2024-01-04"),
	})
	require.NoError(t, err)

	s := ds.Describe()
	require.Equal(t, SummaryStats, s.Stats)
	require.Len(t, s.Values, len(SummaryStats))

	likes := func(stat int) float64 { return s.Values[stat][Likes] }
	assert.Equal(t, 4.0, likes(0))
	assert.Equal(t, 2.5, likes(1))
	assert.Equal(t, 1.29, likes(2))
	assert.Equal(t, 1.0, likes(3))
	assert.Equal(t, 1.75, likes(4))
	assert.Equal(t, 2.5, likes(5))
	assert.Equal(t, 3.25, likes(6))
	assert.Equal(t, 4.0, likes(7))

	assert.Equal(t, 0.0, s.Values[2][Shares])
	assert.Equal(t, 0.25, s.Values[1][Comments])
}

func TestDescribeSingleRowStd(t *testing.T) {
	ds, err := PrepareDataset([]database.EngagementRecord{record(1, 5, 5, 5, "2024-01-01")})
	require.NoError(t, err)

	s := ds.Describe()
	assert.True(t, math.IsNaN(s.Values[2][Likes]))
	assert.Equal(t, 5.0, s.Values[4][Likes])
}
