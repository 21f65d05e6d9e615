package narrative

import (
	"strings"
	"testing"
)

func TestSummary(t *testing.T) {
	s := Summary(testDataset(t))

	for _, want := range []string{
		"Means: likes 15.00, comments 3.00, shares 1.50.",
		"likes-comments 1.00",
		"Monday: 10\n",
		"Sunday: 20\n",
		"Wednesday: 0\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestPromptsAreDeterministic(t *testing.T) {
	ds := testDataset(t)
	if SynthesisPrompt(ds) != SynthesisPrompt(ds) {
		t.Error("synthesis prompt changed between calls")
	}
	if ChartCommentaryPrompt(1, ds) != ChartCommentaryPrompt(1, ds) {
		t.Error("commentary prompt changed between calls")
	}
}

func TestChartCommentaryPrompt(t *testing.T) {
	got := ChartCommentaryPrompt(3, testDataset(t))
	if !strings.Contains(got, "chart 3 (Activity by weekday)") {
		t.Errorf("unexpected prompt %q", got)
	}
	if !strings.Contains(got, "across 2 posts") {
		t.Errorf("prompt missing row count: %q", got)
	}
}
