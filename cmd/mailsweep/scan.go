package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nhle/mailsweep/internal/classify"
	"github.com/nhle/mailsweep/internal/credential"
	"github.com/nhle/mailsweep/internal/mailbox"
	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/internal/report"
	"github.com/nhle/mailsweep/internal/scan"
	"github.com/nhle/mailsweep/internal/store"
	"github.com/nhle/mailsweep/internal/ui/progress"
	"github.com/nhle/mailsweep/internal/ui/summary"
)

// Report file names inside the configured report directory.
const (
	personalizedFile = "personalized_senders.csv"
	domainFile       = "domain_analysis.csv"
	selectionFile    = "unsubscribe_selection.csv"
)

func scanCmd() *cobra.Command {
	var months int
	var noUI bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the inbox and write the analysis reports",
		Long: `Scan INBOX messages within the lookback window, skipping anything
processed on a previous run, and write the personalized-senders,
domain-analysis, and unsubscribe-selection CSV files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(months, noUI)
		},
	}

	cmd.Flags().IntVar(&months, "months", 0,
		"lookback window in months (default from config, 12)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false,
		"log progress instead of showing the progress bar")

	return cmd
}

func runScan(months int, noUI bool) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if months < 1 {
		months = cfg.Scan.Months
	}

	password, err := credential.IMAPPassword(cfg.IMAP)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mb, err := mailbox.Dial(ctx, cfg.IMAP, password)
	if err != nil {
		return err
	}
	defer mb.Close()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	classifier := classify.New(cfg.Taxonomy(), cfg.Scan.Name, cfg.Scan.WholeWord)
	pipeline := scan.NewPipeline(mb, st, classifier, logger, cfg.Scan.BatchSize)

	since := time.Now().AddDate(0, -months, 0)

	var result *scan.Summary
	if noUI {
		result, err = pipeline.Run(ctx, since, nil)
	} else {
		result, err = runWithProgress(ctx, pipeline, since, logger)
	}
	if err != nil {
		return err
	}

	if err := writeReports(cfg, result); err != nil {
		return err
	}

	fmt.Println(summary.Render(result))
	fmt.Printf("Reports written to %s\n", cfg.ReportDir)
	return nil
}

// runWithProgress runs the pipeline in the background while the
// progress UI consumes its events in the foreground.
func runWithProgress(
	ctx context.Context,
	pipeline *scan.Pipeline,
	since time.Time,
	logger *log.Logger,
) (*scan.Summary, error) {
	events := make(chan scan.Event, 64)

	type runResult struct {
		summary *scan.Summary
		err     error
	}
	done := make(chan runResult, 1)

	go func() {
		s, err := pipeline.Run(ctx, since, events)
		close(events)
		done <- runResult{summary: s, err: err}
	}()

	// The program may exit before the scan does (quit key or a render
	// failure). The pipeline drops progress events once nothing
	// consumes them, so it keeps running either way.
	program := tea.NewProgram(progress.New(events))
	if _, err := program.Run(); err != nil {
		logger.Warn("progress display failed", "err", err)
	}

	res := <-done
	return res.summary, res.err
}

// writeReports renders the three CSV outputs. Each file is written to
// a temp file and renamed so an abort never corrupts a prior report.
func writeReports(cfg *model.Config, s *scan.Summary) error {
	if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
		return fmt.Errorf("creating report directory %s: %w", cfg.ReportDir, err)
	}

	err := writeFileAtomic(filepath.Join(cfg.ReportDir, personalizedFile), func(f *os.File) error {
		return report.WritePersonalized(f, s.Personalized)
	})
	if err != nil {
		return err
	}

	err = writeFileAtomic(filepath.Join(cfg.ReportDir, domainFile), func(f *os.File) error {
		return report.WriteDomainAnalysis(f, s.Domains)
	})
	if err != nil {
		return err
	}

	return writeFileAtomic(filepath.Join(cfg.ReportDir, selectionFile), func(f *os.File) error {
		return report.WriteSelection(f, s.Domains)
	})
}

func writeFileAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
