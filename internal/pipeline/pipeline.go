package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/ChannelReports/internal/compose"
	"github.com/TobiSchelling/ChannelReports/internal/config"
	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/document"
	"github.com/TobiSchelling/ChannelReports/internal/llm"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/monitoring"
	"github.com/TobiSchelling/ChannelReports/internal/narrative"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
	"github.com/TobiSchelling/ChannelReports/internal/stats"
)

// Run kinds recorded in the ledger and metrics.
const (
	KindPeriod = "period"
	KindRange  = "range"
)

// Store is the slice of the database the pipeline reads and writes.
type Store interface {
	GetEngagementByPeriod(period database.Period, channel string) ([]database.EngagementRecord, error)
	GetEngagementByRange(start, end, channel string) ([]database.EngagementRecord, error)
	InsertRun(run database.RunRecord) error
}

// Builder lays out a document for a dataset.
type Builder interface {
	BuildDocument(ctx context.Context, ds *stats.Dataset, title string) (*document.Document, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
}

// Result describes a generated report.
type Result struct {
	RunID string
	Path  string
	Rows  int
	Steps []StepResult
}

// Options configures where reports go and which channel they cover.
type Options struct {
	OutputDir string
	// Channel restricts queries to one channel. Empty means all channels.
	Channel string
}

// Pipeline generates reports: query, validate, compose, save.
type Pipeline struct {
	store     Store
	builder   Builder
	outputDir string
	channel   string
	logger    logging.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// New creates a pipeline from its collaborators.
func New(store Store, builder Builder, opts Options, logger logging.Logger, metrics *monitoring.Metrics) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	return &Pipeline{
		store:     store,
		builder:   builder,
		outputDir: dir,
		channel:   opts.Channel,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// FromConfig wires the narrative engine and composer from configuration. It
// probes the narrative endpoint and fails if it is unreachable.
func FromConfig(ctx context.Context, cfg *config.Config, db *database.DB, logger logging.Logger, metrics *monitoring.Metrics) (*Pipeline, error) {
	provider := llm.NewOllamaProvider(cfg.Narrative)
	engine, err := narrative.New(ctx, provider, narrative.Options{
		Endpoint:        cfg.Narrative.URL,
		Language:        cfg.Narrative.Language,
		BreakerFailures: cfg.Narrative.BreakerFailures,
	}, logger, metrics)
	if err != nil {
		return nil, err
	}
	composer := compose.NewComposer(engine, document.DefaultStyles, logger)
	return New(db, composer, Options{
		OutputDir: cfg.GetOutputDir(),
		Channel:   cfg.Report.Channel,
	}, logger, metrics), nil
}

type run struct {
	id      string
	kind    string
	label   string
	started time.Time
	log     *logrus.Entry
}

func (p *Pipeline) newRun(kind, label string) *run {
	id := uuid.NewString()
	return &run{
		id:      id,
		kind:    kind,
		label:   label,
		started: p.now(),
		log: p.logger.WithFields(logging.Fields{
			"run_id": id,
			"kind":   kind,
			"label":  label,
		}),
	}
}

// GenerateReport builds the report for a named period ending now and
// returns where it was written. The period is validated before any query.
func (p *Pipeline) GenerateReport(ctx context.Context, period string) (*Result, error) {
	r := p.newRun(KindPeriod, period)

	per, err := database.ParsePeriod(period)
	if err != nil {
		return nil, p.reject(r, err)
	}

	rows, err := p.store.GetEngagementByPeriod(per, p.channel)
	if err != nil {
		return nil, p.fail(r, reporterr.Internal("querying engagement", err), 0)
	}

	title := fmt.Sprintf("Engagement report for period: %s", per)
	filename := fmt.Sprintf("Report_%s_%s.docx", per, p.now().Format(database.DateLayout))
	return p.generate(ctx, r, rows, title, filename)
}

// GenerateReportByRange builds the report for an inclusive YYYY-MM-DD date
// range. Dates are validated before any query.
func (p *Pipeline) GenerateReportByRange(ctx context.Context, start, end string) (*Result, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	r := p.newRun(KindRange, start+".."+end)

	if _, _, err := database.ParseDateRange(start, end); err != nil {
		return nil, p.reject(r, err)
	}

	rows, err := p.store.GetEngagementByRange(start, end, p.channel)
	if err != nil {
		if reporterr.IsValidation(err) {
			return nil, p.reject(r, err)
		}
		return nil, p.fail(r, reporterr.Internal("querying engagement", err), 0)
	}

	title := fmt.Sprintf("Engagement report %s - %s", start, end)
	filename := fmt.Sprintf("Report_%s_to_%s.docx", start, end)
	return p.generate(ctx, r, rows, title, filename)
}

func (p *Pipeline) generate(ctx context.Context, r *run, rows []database.EngagementRecord, title, filename string) (*Result, error) {
	res := &Result{RunID: r.id, Rows: len(rows)}
	res.Steps = append(res.Steps, StepResult{Name: "Query", Summary: fmt.Sprintf("%d rows", len(rows))})

	ds, err := stats.PrepareDataset(rows)
	if err != nil {
		return nil, p.fail(r, err, len(rows))
	}
	p.metrics.ObserveDataset(ds.Len())
	first, last := ds.DateRange()
	res.Steps = append(res.Steps, StepResult{
		Name:    "Prepare",
		Summary: fmt.Sprintf("%d rows from %s to %s", ds.Len(), first.Format(database.DateLayout), last.Format(database.DateLayout)),
	})

	doc, err := p.builder.BuildDocument(ctx, ds, title)
	if err != nil {
		return nil, p.fail(r, reporterr.Internal("building document", err), len(rows))
	}
	res.Steps = append(res.Steps, StepResult{Name: "Compose", Summary: fmt.Sprintf("%d sections", len(doc.Sections))})

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, p.fail(r, reporterr.Internal("creating output directory", err), len(rows))
	}
	path := filepath.Join(p.outputDir, filename)
	if err := doc.Save(path); err != nil {
		return nil, p.fail(r, reporterr.Internal("saving report", err), len(rows))
	}
	res.Path = path
	res.Steps = append(res.Steps, StepResult{Name: "Save", Summary: path})

	p.record(r, database.RunRecord{Path: path, RowCount: len(rows), Status: database.RunSucceeded})
	p.metrics.ObserveReport(r.kind, monitoring.OutcomeSucceeded, p.now().Sub(r.started))
	r.log.WithFields(logging.Fields{"path": path, "rows": len(rows)}).Info("report generated")
	return res, nil
}

// reject handles input errors found before touching storage. Nothing is
// recorded in the ledger.
func (p *Pipeline) reject(r *run, err error) error {
	r.log.WithError(err).Warn("report request rejected")
	p.metrics.ObserveReport(r.kind, monitoring.OutcomeValidation, p.now().Sub(r.started))
	return err
}

// fail records a failed run and returns err unchanged.
func (p *Pipeline) fail(r *run, err error, rows int) error {
	outcome := monitoring.OutcomeFailed
	if reporterr.IsValidation(err) {
		outcome = monitoring.OutcomeValidation
		r.log.WithError(err).Warn("report data rejected")
	} else {
		r.log.WithError(err).Error("report generation failed")
	}

	msg := err.Error()
	p.record(r, database.RunRecord{RowCount: rows, Status: database.RunFailed, Error: &msg})
	p.metrics.ObserveReport(r.kind, outcome, p.now().Sub(r.started))
	return err
}

func (p *Pipeline) record(r *run, rec database.RunRecord) {
	rec.ID = r.id
	rec.Kind = r.kind
	rec.Label = r.label
	if err := p.store.InsertRun(rec); err != nil {
		r.log.WithError(err).Warn("could not record run")
	}
}
