package credential

import (
	"fmt"
	"os"

	"github.com/nhle/mailsweep/internal/model"
)

// passwordEnv is consulted when no keyring reference is configured.
const passwordEnv = "MAILSWEEP_PASSWORD"

// IMAPPassword resolves the mailbox password for the given IMAP
// configuration: the configured keyring entry first, then the
// MAILSWEEP_PASSWORD environment variable.
func IMAPPassword(cfg model.IMAPConfig) (string, error) {
	if cfg.PasswordRef != "" {
		pw, err := Get(cfg.PasswordRef)
		if err != nil {
			return "", fmt.Errorf("resolving IMAP password: %w", err)
		}
		return pw, nil
	}

	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	return "", fmt.Errorf(
		"no IMAP password: set imap.password_ref in the config or export %s",
		passwordEnv,
	)
}
