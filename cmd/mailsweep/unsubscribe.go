package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/mailsweep/internal/credential"
	"github.com/nhle/mailsweep/internal/mailbox"
	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/internal/report"
	"github.com/nhle/mailsweep/internal/store"
	"github.com/nhle/mailsweep/internal/theme"
	"github.com/nhle/mailsweep/internal/ui/selectform"
	"github.com/nhle/mailsweep/internal/unsub"
)

func selectCmd() *cobra.Command {
	var selectionPath string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Interactively mark domains for unsubscribing",
		Long: `Open the unsubscribe selection file in an interactive multi-select
and update its Delete column from your choices. This replaces editing
the CSV by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(selectionPath)
		},
	}

	cmd.Flags().StringVar(&selectionPath, "selection", "",
		"selection file (default is <report_dir>/unsubscribe_selection.csv)")

	return cmd
}

func runSelect(selectionPath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if selectionPath == "" {
		selectionPath = filepath.Join(cfg.ReportDir, selectionFile)
	}

	f, err := os.Open(selectionPath)
	if err != nil {
		return fmt.Errorf("opening selection file: %w", err)
	}
	records, err := report.ReadSelectionRecords(f)
	f.Close()
	if err != nil {
		return err
	}

	rows, err := report.ParseSelection(records)
	if err != nil {
		return err
	}

	edited, err := selectform.Domains(rows)
	if err != nil {
		return err
	}

	err = writeFileAtomic(selectionPath, func(f *os.File) error {
		return report.ApplySelection(f, records, edited)
	})
	if err != nil {
		return err
	}

	selected := 0
	for _, row := range edited {
		if row.Selected() {
			selected++
		}
	}
	fmt.Printf("%d domain(s) marked for unsubscribing in %s\n", selected, selectionPath)
	return nil
}

func unsubscribeCmd() *cobra.Command {
	var selectionPath string
	var days int
	var dryRun, yes bool

	cmd := &cobra.Command{
		Use:   "unsubscribe",
		Short: "Execute unsubscribe actions for the selected domains",
		Long: `Read the edited selection file and, for every row whose Delete and
List-Unsubscribe flags are both "yes", re-locate the originating
message within the lookback window and invoke its unsubscribe
mechanism. Every attempt is appended to the outcome log; messages are
never modified or deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnsubscribe(selectionPath, days, dryRun, yes)
		},
	}

	cmd.Flags().StringVar(&selectionPath, "selection", "",
		"selection file (default is <report_dir>/unsubscribe_selection.csv)")
	cmd.Flags().IntVar(&days, "days", 0,
		"lookback window in days (default from config, 30)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"list the domains that would be acted on, without issuing requests")
	cmd.Flags().BoolVar(&yes, "yes", false,
		"skip the confirmation prompt")

	return cmd
}

func runUnsubscribe(selectionPath string, days int, dryRun, yes bool) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if selectionPath == "" {
		selectionPath = filepath.Join(cfg.ReportDir, selectionFile)
	}
	if days < 1 {
		days = cfg.Unsubscribe.Days
	}

	f, err := os.Open(selectionPath)
	if err != nil {
		return fmt.Errorf("opening selection file: %w", err)
	}
	rows, err := report.ReadSelection(f)
	f.Close()
	if err != nil {
		return err
	}

	var selected []string
	for _, row := range rows {
		if row.Selected() {
			selected = append(selected, row.Domain)
		}
	}
	if len(selected) == 0 {
		fmt.Println("No rows selected: nothing to do.")
		return nil
	}

	if dryRun {
		fmt.Printf("Would attempt to unsubscribe from %d domain(s):\n", len(selected))
		for _, domain := range selected {
			fmt.Printf("  - %s\n", domain)
		}
		return nil
	}

	if !yes {
		ok, err := selectform.Confirm(fmt.Sprintf(
			"Unsubscribe from %d domain(s)? Requests cannot be undone.", len(selected)))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Canceled.")
			return nil
		}
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

	var sender unsub.MailSender
	if cfg.Unsubscribe.SendMail {
		sender = &unsub.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.IMAP.Username,
			Password: password,
		}
	}

	executor := unsub.NewExecutor(mb, st, logger, cfg.Unsubscribe, sender)
	outcomes, runErr := executor.Run(ctx, rows, days)

	// Outcomes logged before an interrupt stay on disk; the log file
	// mirrors them for human review (original tooling behavior).
	if len(outcomes) > 0 {
		logPath := filepath.Join(cfg.ReportDir,
			fmt.Sprintf("unsubscribe_log_%s.txt", time.Now().Format("20060102_150405")))
		if err := writeOutcomeLog(logPath, outcomes); err != nil {
			logger.Error("writing outcome log", "path", logPath, "err", err)
		} else {
			fmt.Printf("Outcome log written to %s\n", logPath)
		}
	}

	printOutcomes(outcomes)
	return runErr
}

func writeOutcomeLog(path string, outcomes []model.UnsubscribeOutcome) error {
	return writeFileAtomic(path, func(f *os.File) error {
		return report.WriteOutcomeLog(f, outcomes)
	})
}

func printOutcomes(outcomes []model.UnsubscribeOutcome) {
	counts := make(map[model.OutcomeResult]int)
	for _, o := range outcomes {
		counts[o.Result]++
		fmt.Printf("%s %s %s\n",
			theme.ResultStyle(string(o.Result)).Render(fmt.Sprintf("%-14s", o.Result)),
			theme.DomainStyle.Render(o.Domain),
			theme.LabelStyle.Render(o.Detail))
	}
	fmt.Printf("Attempted %d domain(s): %d succeeded, %d failed, %d need manual action\n",
		len(outcomes),
		counts[model.OutcomeSuccess],
		counts[model.OutcomeFailed],
		counts[model.OutcomeManualRequired])
}
