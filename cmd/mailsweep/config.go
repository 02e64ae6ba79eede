package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/mailsweep/internal/credential"
	"github.com/nhle/mailsweep/internal/model"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the mailsweep configuration",
	}
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		Long: `Prompt for the mailbox server, account, and the name to scan for,
store the password in the system keyring, and write the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit()
		},
	}
}

func runConfigInit() error {
	path := cfgFile
	if path == "" {
		path = model.DefaultConfigPath()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return err
	}

	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP server").
				Description("Host of your mail provider's IMAP server").
				Placeholder("imap.gmail.com").
				Value(&cfg.IMAP.Host).
				Validate(required("IMAP server")),
			huh.NewInput().
				Title("Email address").
				Description("The mailbox account to scan").
				Placeholder("you@example.com").
				Value(&cfg.IMAP.Username).
				Validate(required("Email address")),
			huh.NewInput().
				Title("Password").
				Description("App password for IMAP access; stored in the system keyring").
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Validate(required("Password")),
			huh.NewInput().
				Title("Your name").
				Description("Messages containing this name are flagged as personalized").
				Value(&cfg.Scan.Name).
				Validate(required("Name")),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}

	credKey := "imap-" + cfg.IMAP.Username
	if err := credential.Set(credKey, password); err != nil {
		return err
	}
	cfg.IMAP.PasswordRef = credKey

	if err := model.SaveConfig(path, cfg); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
