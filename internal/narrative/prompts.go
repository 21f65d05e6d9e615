package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/TobiSchelling/ChannelReports/internal/chart"
	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

const chartCommentaryPrompt = `Analyze chart %d (%s) built from the channel's likes, comments and shares.
Data covers %s to %s across %d posts. Highlight the key trends.`

const synthesisPrompt = `Analyze these charts based on the data below. Draw conclusions.
%s`

const deepDivePrompt = `Analyze the channel data from %s to %s:
- identify seasonal activity patterns
- find posts with anomalous engagement
- compare the effectiveness of different content types
- suggest the best time to publish`

const recommendationsPrompt = `Based on the likes, comments and shares data from %s to %s, give recommendations:
- on publishing time
- on format and topics
- on improving audience interaction`

func dateSpan(ds *stats.Dataset) (string, string) {
	first, last := ds.DateRange()
	return first.Format(database.DateLayout), last.Format(database.DateLayout)
}

// ChartCommentaryPrompt asks for the trends shown by one chart.
func ChartCommentaryPrompt(chartID int, ds *stats.Dataset) string {
	from, to := dateSpan(ds)
	return fmt.Sprintf(chartCommentaryPrompt, chartID, chart.Title(chartID), from, to, ds.Len())
}

// SynthesisPrompt embeds the numbers behind all three charts.
func SynthesisPrompt(ds *stats.Dataset) string {
	return fmt.Sprintf(synthesisPrompt, Summary(ds))
}

// Summary renders means, pairwise correlations and weekday like totals as
// plain text.
func Summary(ds *stats.Dataset) string {
	means := ds.Means()
	corr := ds.Correlation()
	weekdays := ds.WeekdayTotals(stats.Likes)

	var b strings.Builder
	fmt.Fprintf(&b, "Chart 1. Means: likes %.2f, comments %.2f, shares %.2f.\n",
		means[stats.Likes], means[stats.Comments], means[stats.Shares])
	fmt.Fprintf(&b, "Chart 2. Correlations: likes-comments %.2f, likes-shares %.2f, comments-shares %.2f.\n",
		corr[stats.Likes][stats.Comments], corr[stats.Likes][stats.Shares], corr[stats.Comments][stats.Shares])
	b.WriteString("Chart 3. Likes by weekday:\n")
	for i, name := range stats.Weekdays {
		fmt.Fprintf(&b, "%s: %s\n", name, strconv.FormatFloat(weekdays[i], 'f', -1, 64))
	}
	return b.String()
}

// DeepDivePrompt asks for a deeper analysis over the dataset's date span.
func DeepDivePrompt(ds *stats.Dataset) string {
	from, to := dateSpan(ds)
	return fmt.Sprintf(deepDivePrompt, from, to)
}

// RecommendationsPrompt asks for publishing advice over the dataset's date span.
func RecommendationsPrompt(ds *stats.Dataset) string {
	from, to := dateSpan(ds)
	return fmt.Sprintf(recommendationsPrompt, from, to)
}
