package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TobiSchelling/ChannelReports/internal/reporterr"
)

func TestCLIMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("no config file found"), "no config file found"},
		{"validation", fmt.Errorf("report: %w", reporterr.EmptyDataset()), reporterr.EmptyDataset().Message},
		{"internal", reporterr.Internal("querying engagement", errors.New("disk I/O error")), reporterr.GenericFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cliMessage(tt.err); got != tt.want {
				t.Errorf("cliMessage() = %q, want %q", got, tt.want)
			}
		})
	}

	down := reporterr.ServiceUnavailable("http://localhost:11434", errors.New("connection refused"))
	if got := cliMessage(down); got != down.Error() {
		t.Errorf("service unavailable should show detail, got %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"init", "version", "status", "ingest", "recent", "report", "report-range", "serve"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestReportArgsValidatedFirst(t *testing.T) {
	if err := periodArgs(reportCmd, []string{"invalid"}); !errors.Is(err, reporterr.ErrInvalidPeriod) {
		t.Errorf("expected invalid period, got %v", err)
	}
	if err := periodArgs(reportCmd, []string{"week"}); err != nil {
		t.Errorf("expected week to be accepted, got %v", err)
	}
	if err := rangeArgs(reportRangeCmd, []string{"2024-02-30", "2024-03-01"}); !errors.Is(err, reporterr.ErrInvalidDateRange) {
		t.Errorf("expected invalid date range, got %v", err)
	}
	if err := rangeArgs(reportRangeCmd, []string{"2024-01-01"}); err == nil {
		t.Error("expected an error for a missing end date")
	}
}

func TestInvalidPeriodNeedsNoConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"report", "invalid", "--config", "/nonexistent/config.yaml"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if !errors.Is(err, reporterr.ErrInvalidPeriod) {
		t.Fatalf("expected invalid period before config loading, got %v", err)
	}
	if cliMessage(err) == reporterr.GenericFailureMessage {
		t.Error("validation message should be shown verbatim")
	}
}
