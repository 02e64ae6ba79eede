// Package mailbox supplies raw message bytes keyed by IMAP UID. It is
// the pipeline's only view of the mail server: list candidate UIDs
// since a date, fetch one raw message.
package mailbox

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/mailsweep/internal/model"
)

// AuthError indicates the server rejected the configured credentials.
// It is fatal to the run.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Client is a single authenticated IMAP session with INBOX selected.
// The scan touches every candidate message, so the connection is
// opened once and reused sequentially; Client is not safe for
// concurrent use.
type Client struct {
	username string
	imap     *imapclient.Client
}

// Dial connects to the IMAP server, authenticates, and selects INBOX.
// The caller must Close the returned client.
func Dial(_ context.Context, cfg model.IMAPConfig, password string) (*Client, error) {
	addr := cfg.Host + ":" + cfg.Port

	var conn *imapclient.Client
	var err error

	if cfg.TLS {
		conn, err = imapclient.DialTLS(addr, nil)
	} else {
		conn, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := conn.Login(cfg.Username, password).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return nil, &AuthError{Username: cfg.Username, Err: err}
	}

	if _, err := conn.Select("INBOX", nil).Wait(); err != nil {
		_ = conn.Logout().Wait()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	return &Client{username: cfg.Username, imap: conn}, nil
}

// Close logs out and drops the connection.
func (c *Client) Close() error {
	return c.imap.Logout().Wait()
}

// ListCandidateUIDs returns the UIDs of all INBOX messages received
// since the given date, in mailbox order.
func (c *Client) ListCandidateUIDs(_ context.Context, since time.Time) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		Since: since,
	}

	searchData, err := c.imap.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages since %s: %w",
			since.Format("2006-01-02"), err)
	}

	imapUIDs := searchData.AllUIDs()
	uids := make([]uint32, len(imapUIDs))
	for i, uid := range imapUIDs {
		uids[i] = uint32(uid)
	}
	return uids, nil
}

// Fetch retrieves the full raw message for uid along with its server
// arrival date. The body section is fetched with Peek so the scan
// never alters message flags.
func (c *Client) Fetch(_ context.Context, uid uint32) (*model.RawMessage, error) {
	uidSet := imap.UIDSetNum(imap.UID(uid))

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := c.imap.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message UID %d: %w", uid, err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body section", uid)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("closing fetch for UID %d: %w", uid, err)
	}

	return &model.RawMessage{
		UID:     uid,
		Arrival: buf.InternalDate,
		Raw:     raw,
	}, nil
}
