// mailsweep scans an IMAP inbox, classifies senders into service
// categories, detects personalized correspondence, and executes
// selected unsubscribe actions.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nhle/mailsweep/internal/model"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsweep",
		Short: "Inbox scanner and bulk unsubscriber",
		Long: `mailsweep scans your inbox over time, groups mail by sender domain,
classifies domains into service categories, finds messages that address
you by name, and extracts unsubscribe mechanisms.

The scan writes three CSV files: personalized senders, domain analysis,
and an unsubscribe selection file. Mark domains in the selection file
(or use "mailsweep select") and run "mailsweep unsubscribe" to execute
the selected unsubscribe actions.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ~/.config/mailsweep/config.yaml)")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(selectCmd())
	rootCmd.AddCommand(unsubscribeCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path and loads it.
func loadConfig() (*model.Config, error) {
	path := cfgFile
	if path == "" {
		path = model.DefaultConfigPath()
	}
	return model.LoadConfig(path)
}

// newLogger builds the application logger.
func newLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "mailsweep",
	})
}
