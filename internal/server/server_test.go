package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TobiSchelling/ChannelReports/internal/access"
	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/monitoring"
	"github.com/TobiSchelling/ChannelReports/internal/pipeline"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

const adminID = "42"

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type mockReporter struct {
	path  string
	err   error
	calls []string
}

func (m *mockReporter) GenerateReport(_ context.Context, period string) (*pipeline.Result, error) {
	m.calls = append(m.calls, period)
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.Result{RunID: "run-1", Path: m.path}, nil
}

func (m *mockReporter) GenerateReportByRange(_ context.Context, start, end string) (*pipeline.Result, error) {
	m.calls = append(m.calls, start+".."+end)
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.Result{RunID: "run-2", Path: m.path}, nil
}

func newTestServer(t *testing.T, db *database.DB, rep Reporter) *Server {
	t.Helper()
	srv, err := New(db, rep, access.NewGuard([]int64{42}), monitoring.NewMetrics(prometheus.NewRegistry()), logging.Discard())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func do(srv *Server, method, target, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body["error"]
}

func writeReportFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Report_week_2024-01-08.docx")
	if err := os.WriteFile(path, []byte("PK fake docx"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	msg := "no data to analyze"
	db.InsertRun(database.RunRecord{ID: "r1", Kind: "period", Label: "week", Status: database.RunFailed, Error: &msg})
	srv := newTestServer(t, db, &mockReporter{})

	rec := do(srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Recent runs") || !strings.Contains(body, "week") {
		t.Error("expected runs table in response body")
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	if rec := do(srv, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	rec := do(srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	if rec := do(srv, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPeriodReportRequiresAdmin(t *testing.T) {
	rep := &mockReporter{}
	srv := newTestServer(t, openTestDB(t), rep)

	for _, user := range []string{"", "7", "not-a-number"} {
		rec := do(srv, http.MethodPost, "/api/reports/period/week", user)
		if rec.Code != http.StatusForbidden {
			t.Errorf("user %q: expected 403, got %d", user, rec.Code)
		}
		if msg := errorMessage(t, rec); msg != "access denied" {
			t.Errorf("unexpected message %q", msg)
		}
	}
	if len(rep.calls) != 0 {
		t.Errorf("reporter must not run for non-admins, got %v", rep.calls)
	}
}

func TestPeriodReportSendsFile(t *testing.T) {
	rep := &mockReporter{path: writeReportFile(t)}
	srv := newTestServer(t, openTestDB(t), rep)

	rec := do(srv, http.MethodPost, "/api/reports/period/week", adminID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Report_week_2024-01-08.docx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if rec.Header().Get("X-Run-ID") != "run-1" {
		t.Errorf("missing run id header")
	}
	if rep.calls[0] != "week" {
		t.Errorf("unexpected period %v", rep.calls)
	}
}

func TestPeriodReportValidationError(t *testing.T) {
	rep := &mockReporter{err: reporterr.InvalidPeriod("fortnight")}
	srv := newTestServer(t, openTestDB(t), rep)

	rec := do(srv, http.MethodPost, "/api/reports/period/fortnight", adminID)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, "fortnight") {
		t.Errorf("expected verbatim validation message, got %q", msg)
	}
}

func TestPeriodReportInternalError(t *testing.T) {
	rep := &mockReporter{err: reporterr.Internal("querying engagement", errors.New("disk I/O error"))}
	srv := newTestServer(t, openTestDB(t), rep)

	rec := do(srv, http.MethodPost, "/api/reports/period/week", adminID)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	msg := errorMessage(t, rec)
	if msg != reporterr.GenericFailureMessage {
		t.Errorf("expected generic message, got %q", msg)
	}
}

func TestRangeReport(t *testing.T) {
	rep := &mockReporter{path: writeReportFile(t)}
	srv := newTestServer(t, openTestDB(t), rep)

	rec := do(srv, http.MethodPost, "/api/reports/range?start=2024-01-01&end=2024-01-07", adminID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rep.calls[0] != "2024-01-01..2024-01-07" {
		t.Errorf("unexpected range %v", rep.calls)
	}
}

func TestRangeReportMissingParams(t *testing.T) {
	rep := &mockReporter{}
	srv := newTestServer(t, openTestDB(t), rep)

	rec := do(srv, http.MethodPost, "/api/reports/range?start=2024-01-01", adminID)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if len(rep.calls) != 0 {
		t.Error("reporter must not run without both dates")
	}
}

func TestRecentRoute(t *testing.T) {
	db := openTestDB(t)
	db.UpsertEngagement(database.EngagementRecord{PostID: "1", Likes: 3, Date: "2024-01-01", Channel: "c"})
	srv := newTestServer(t, db, &mockReporter{})

	rec := do(srv, http.MethodGet, "/api/recent?limit=5", adminID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows []database.EngagementRecord
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(rows) != 1 || rows[0].Likes != 3 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestRunsRouteEmpty(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	rec := do(srv, http.MethodGet, "/api/runs", adminID)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminHelp(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	rec := do(srv, http.MethodGet, "/api/admin", adminID)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/api/reports/range") {
		t.Errorf("unexpected help %d %s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, openTestDB(t), &mockReporter{})
	if rec := do(srv, http.MethodGet, "/api/reports/period/week", adminID); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
