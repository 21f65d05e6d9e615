package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/ChannelReports/internal/access"
	"github.com/TobiSchelling/ChannelReports/internal/config"
	"github.com/TobiSchelling/ChannelReports/internal/database"
	"github.com/TobiSchelling/ChannelReports/internal/logging"
	"github.com/TobiSchelling/ChannelReports/internal/monitoring"
	"github.com/TobiSchelling/ChannelReports/internal/pipeline"
	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
	"github.com/TobiSchelling/ChannelReports/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	channel    string
	cfg        *config.Config
	logger     logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cliMessage(err))
		os.Exit(1)
	}
}

// cliMessage hides internal detail behind the generic failure text; the
// detail is already in the log. Setup errors are shown as is.
func cliMessage(err error) string {
	var classified *reporterr.Error
	if !errors.As(err, &classified) || classified.Kind == reporterr.KindServiceUnavailable {
		return err.Error()
	}
	return reporterr.UserMessage(err)
}

var rootCmd = &cobra.Command{
	Use:           "channelreports",
	Short:         "Channel engagement reports",
	Long:          "channelreports turns stored channel engagement metrics into narrated .docx analytics reports.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(config.Logging{})

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		// A missing .env is fine; the environment may already be set.
		_ = godotenv.Load()

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if channel != "" {
			cfg.Report.Channel = channel
		}

		logger = logging.New(cfg.Logging)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		logrus.SetLevel(logger.GetLevel())
		logrus.SetFormatter(logger.Formatter)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&channel, "channel", "", "Restrict reports to one channel")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportRangeCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("channelreports", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/channelreports/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the narrative endpoint, admin IDs and output directory.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", database.GetToday())
		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Engagement:")
		fmt.Printf("  Posts tracked: %d\n", stats.TotalRecords)
		fmt.Printf("  Channels: %d\n", stats.Channels)
		if stats.FirstDate != nil {
			fmt.Printf("  Span: %s to %s\n", *stats.FirstDate, *stats.LastDate)
		}
		fmt.Println("\nReports:")
		fmt.Printf("  Runs: %d\n", stats.ReportRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Printf("  Output directory: %s\n", cfg.GetOutputDir())
		fmt.Printf("  Narrative endpoint: %s (%s)\n", cfg.Narrative.URL, cfg.Narrative.Model)
		return nil
	},
}

// --- ingest command ---

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.json]",
	Short: "Load engagement rows from a JSON array (use - for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		var records []database.EngagementRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var stored, rejected int
		for _, rec := range records {
			if rec.Channel == "" {
				rec.Channel = cfg.Report.Channel
			}
			if _, err := db.UpsertEngagement(rec); err != nil {
				logger.WithError(err).WithField("post_id", rec.PostID).Warn("skipping row")
				rejected++
				continue
			}
			stored++
		}

		fmt.Println("Ingest complete:")
		fmt.Printf("  Stored: %d\n", stored)
		fmt.Printf("  Rejected: %d\n", rejected)
		return nil
	},
}

// --- recent command ---

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recently stored engagement rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := db.GetRecentEngagement(recentLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No engagement data stored yet. Load some with: channelreports ingest")
			return nil
		}

		fmt.Printf("%-26s %-14s %-10s %8s %8s %8s\n", "DATE", "CHANNEL", "POST", "LIKES", "COMMENTS", "SHARES")
		for _, r := range rows {
			fmt.Printf("%-26s %-14s %-10s %8d %8d %8d\n", r.Date, r.Channel, r.PostID, r.Likes, r.Comments, r.Shares)
		}
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "Number of rows to show")
}

// --- report commands ---

var reportCmd = &cobra.Command{
	Use:   "report [daily|week|month|year]",
	Short: "Generate a report for a period ending now",
	Args:  periodArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
			return p.GenerateReport(ctx, args[0])
		})
	},
}

var reportRangeCmd = &cobra.Command{
	Use:   "report-range [start] [end]",
	Short: "Generate a report for an inclusive YYYY-MM-DD date range",
	Args:  rangeArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
			return p.GenerateReportByRange(ctx, args[0], args[1])
		})
	},
}

// periodArgs and rangeArgs reject bad input before config loading and the
// narrative endpoint probe, so the caller sees the validation message even
// when the endpoint is down.
func periodArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	_, err := database.ParsePeriod(args[0])
	return err
}

func rangeArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return err
	}
	_, _, err := database.ParseDateRange(args[0], args[1])
	return err
}

func runReport(ctx context.Context, generate func(context.Context, *pipeline.Pipeline) (*pipeline.Result, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	pipe, err := pipeline.FromConfig(ctx, cfg, db, logger, nil)
	if err != nil {
		return err
	}

	result, err := generate(ctx, pipe)
	if err != nil {
		return err
	}

	for i, step := range result.Steps {
		fmt.Printf("Step %d/%d: %s\n  %s\n", i+1, len(result.Steps), step.Name, step.Summary)
	}
	fmt.Printf("\nReport saved: %s\n", result.Path)
	return nil
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := monitoring.NewMetrics(reg)

		pipe, err := pipeline.FromConfig(ctx, cfg, db, logger, metrics)
		if err != nil {
			return err
		}

		srv, err := server.New(db, pipe, access.NewGuard(cfg.Access.AdminIDs), metrics, logger)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		if len(cfg.Access.AdminIDs) == 0 {
			logger.Warn("no admin IDs configured; report endpoints will deny every caller")
		}
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port, logger)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "channelreports.db")
	return database.Open(dbPath, logger)
}
