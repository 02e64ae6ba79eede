package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IMAPConfig holds the mailbox server settings.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// PasswordRef names the keyring entry holding the password. An
	// empty ref falls back to the MAILSWEEP_PASSWORD environment
	// variable.
	PasswordRef string `mapstructure:"password_ref" yaml:"password_ref"`
}

// SMTPConfig holds the outgoing server settings, used only when
// mailto unsubscribe sending is enabled.
type SMTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// ScanConfig holds the scan pipeline settings.
type ScanConfig struct {
	// Name is the personal name whose appearance marks a message as
	// personalized.
	Name string `mapstructure:"name" yaml:"name"`

	// Months is the lookback window for candidate messages.
	Months int `mapstructure:"months" yaml:"months"`

	// WholeWord switches personalization matching from substring to
	// word-boundary matching.
	WholeWord bool `mapstructure:"whole_word" yaml:"whole_word"`

	// BatchSize is how many processed message ids are merged into the
	// dedup store per transaction.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`
}

// UnsubscribeConfig holds the executor settings.
type UnsubscribeConfig struct {
	// Days is the lookback window when re-locating the originating
	// message for a selected domain.
	Days int `mapstructure:"days" yaml:"days"`

	// TimeoutSec bounds each HTTP unsubscribe request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// Retries is the total attempt budget per row.
	Retries int `mapstructure:"retries" yaml:"retries"`

	// SendMail enables sending a minimal unsubscribe message for
	// mailto mechanisms. Off by default: mailto stays ManualRequired.
	SendMail bool `mapstructure:"send_mail" yaml:"send_mail"`
}

// Config is the top-level application configuration. It is loaded
// once and passed by value through the components; nothing mutates it
// after startup.
type Config struct {
	IMAP        IMAPConfig          `mapstructure:"imap" yaml:"imap"`
	SMTP        SMTPConfig          `mapstructure:"smtp" yaml:"smtp"`
	Scan        ScanConfig          `mapstructure:"scan" yaml:"scan"`
	Unsubscribe UnsubscribeConfig   `mapstructure:"unsubscribe" yaml:"unsubscribe"`
	Categories  map[string][]string `mapstructure:"categories" yaml:"categories"`

	// DBPath locates the sqlite database holding the dedup set, run
	// metadata, and outcome log.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// ReportDir is where report and selection CSVs are written.
	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`
}

// Taxonomy builds the effective taxonomy: the default table with any
// configured categories merged in, keywords pre-lowered.
func (c Config) Taxonomy() Taxonomy {
	return DefaultTaxonomy().Merge(c.Categories).Normalized()
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/mailsweep/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailsweep", "config.yaml")
}

// defaultDataDir returns the directory holding the database and
// reports when the config does not say otherwise.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "mailsweep")
}

func defaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		IMAP: IMAPConfig{
			Host: "imap.gmail.com",
			Port: "993",
			TLS:  true,
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: "587",
		},
		Scan: ScanConfig{
			Months:    12,
			BatchSize: 50,
		},
		Unsubscribe: UnsubscribeConfig{
			Days:       30,
			TimeoutSec: 30,
			Retries:    3,
		},
		DBPath:    filepath.Join(dataDir, "mailsweep.db"),
		ReportDir: dataDir,
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.tls", true)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("scan.months", 12)
	v.SetDefault("scan.batch_size", 50)
	v.SetDefault("unsubscribe.days", 30)
	v.SetDefault("unsubscribe.timeout_sec", 30)
	v.SetDefault("unsubscribe.retries", 3)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("smtp", cfg.SMTP)
	v.Set("scan", cfg.Scan)
	v.Set("unsubscribe", cfg.Unsubscribe)
	v.Set("categories", cfg.Categories)
	v.Set("db_path", cfg.DBPath)
	v.Set("report_dir", cfg.ReportDir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
