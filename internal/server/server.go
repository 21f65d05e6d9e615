package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TobiSchelling/ChannelReports/internal/access"
	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/monitoring"
	"github.com/TobiSchelling/ChannelReports/internal/pipeline"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

//go:embed templates/*.html
var templateFS embed.FS

// UserHeader carries the numeric ID of the caller.
const UserHeader = "X-User-ID"

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const adminHelp = `Admin commands:
POST /api/reports/period/{period}  report for daily, week, month or year
POST /api/reports/range?start=YYYY-MM-DD&end=YYYY-MM-DD  report for a date range
GET  /api/recent  latest stored engagement rows
GET  /api/runs  latest report runs`

// Reporter generates report files.
type Reporter interface {
	GenerateReport(ctx context.Context, period string) (*pipeline.Result, error)
	GenerateReportByRange(ctx context.Context, start, end string) (*pipeline.Result, error)
}

// Store is the read side of the database used by the server.
type Store interface {
	GetRecentEngagement(limit int) ([]database.EngagementRecord, error)
	GetRecentRuns(limit int) ([]database.RunRecord, error)
	GetStats() (*database.Stats, error)
	Ping() error
}

// Server is the HTTP front end for report commands.
type Server struct {
	store    Store
	reporter Reporter
	guard    *access.Guard
	metrics  *monitoring.Metrics
	logger   logging.Logger
	index    *template.Template
	mux      *http.ServeMux
}

// New creates a new Server.
func New(store Store, reporter Reporter, guard *access.Guard, metrics *monitoring.Metrics, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"base": func(p string) string {
			if p == "" {
				return ""
			}
			return filepath.Base(p)
		},
	}

	index, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		store:    store,
		reporter: reporter,
		guard:    guard,
		metrics:  metrics,
		logger:   logger,
		index:    index,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.HandleFunc("GET /api/admin", s.admin(s.handleAdminHelp))
	s.mux.HandleFunc("POST /api/reports/period/{period}", s.admin(s.handlePeriodReport))
	s.mux.HandleFunc("POST /api/reports/range", s.admin(s.handleRangeReport))
	s.mux.HandleFunc("GET /api/recent", s.admin(s.handleRecent))
	s.mux.HandleFunc("GET /api/runs", s.admin(s.handleRuns))
}

// admin wraps h with the caller check. Missing or malformed IDs are denied.
func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.ParseInt(strings.TrimSpace(r.Header.Get(UserHeader)), 10, 64)
		if err := s.guard.Check(userID); err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.GetRecentRuns(20)
	if err != nil {
		s.writeError(w, r, reporterr.Internal("listing runs", err))
		return
	}
	stats, _ := s.store.GetStats()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.ExecuteTemplate(w, "base.html", map[string]any{"Runs": runs, "Stats": stats}); err != nil {
		s.logger.WithError(err).Error("rendering index")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, adminHelp)
}

func (s *Server) handlePeriodReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.reporter.GenerateReport(r.Context(), r.PathValue("period"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sendReport(w, r, res)
}

func (s *Server) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if start == "" || end == "" {
		s.writeError(w, r, reporterr.InvalidDateRange("start and end are required (YYYY-MM-DD)", nil))
		return
	}
	res, err := s.reporter.GenerateReportByRange(r.Context(), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sendReport(w, r, res)
}

func (s *Server) sendReport(w http.ResponseWriter, r *http.Request, res *pipeline.Result) {
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(res.Path)))
	w.Header().Set("X-Run-ID", res.RunID)
	http.ServeFile(w, r, res.Path)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 10)
	rows, err := s.store.GetRecentEngagement(limit)
	if err != nil {
		s.writeError(w, r, reporterr.Internal("listing engagement", err))
		return
	}
	if rows == nil {
		rows = []database.EngagementRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.GetRecentRuns(queryLimit(r, 20))
	if err != nil {
		s.writeError(w, r, reporterr.Internal("listing runs", err))
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 500 {
		return def
	}
	return n
}

// writeError maps the error taxonomy to a status code and a caller-safe
// message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch reporterr.KindOf(err) {
	case reporterr.KindValidation:
		status = http.StatusBadRequest
	case reporterr.KindPermissionDenied:
		status = http.StatusForbidden
	case reporterr.KindServiceUnavailable:
		status = http.StatusServiceUnavailable
	}

	entry := s.logger.WithFields(logging.Fields{"path": r.URL.Path, "status": status})
	var classified *reporterr.Error
	if status >= 500 || !errors.As(err, &classified) {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Info("request rejected")
	}

	writeJSON(w, status, map[string]string{"error": reporterr.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Serve starts the HTTP server on the given port.
func Serve(ctx context.Context, srv *Server, port int, logger logging.Logger) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		<-ctx.Done()
		httpSrv.Close()
	}()

	logger.Infof("Server listening on http://%s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
