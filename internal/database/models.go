package database

// EngagementRecord is one observed channel post with its counters.
// Likes holds views; shares holds forwards.
type EngagementRecord struct {
	ID       int64  `json:"id,omitempty"`
	PostID   string `json:"post_id"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
	Shares   int64  `json:"shares"`
	Date     string `json:"date"`
	Channel  string `json:"channel"`
}

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// RunRecord holds metadata about one report generation attempt.
type RunRecord struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`  // "period" or "range"
	Label       string  `json:"label"` // period name or "start..end"
	Path        string  `json:"path,omitempty"`
	RowCount    int     `json:"row_count"`
	Status      string  `json:"status"`
	Error       *string `json:"error,omitempty"`
	GeneratedAt *string `json:"generated_at,omitempty"`
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalRecords int
	Channels     int
	FirstDate    *string
	LastDate     *string
	ReportRuns   int
	FailedRuns   int
}
