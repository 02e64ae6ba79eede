// Package unsub executes the unsubscribe actions the user selected.
// Each selected domain moves through locate (find the originating
// message inside the lookback window by token), execute (HTTP request
// with retries, or mailto handling), and a terminal Success, Failed,
// or ManualRequired outcome. Every attempt is logged; no message is
// ever mutated or deleted.
package unsub

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/mailsweep/internal/classify"
	"github.com/nhle/mailsweep/internal/decode"
	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/internal/store"
)

// Mailbox supplies raw messages for re-locating unsubscribe links.
type Mailbox interface {
	ListCandidateUIDs(ctx context.Context, since time.Time) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) (*model.RawMessage, error)
}

// MailSender sends a minimal unsubscribe message for mailto
// mechanisms. A nil sender leaves mailto rows ManualRequired.
type MailSender interface {
	Send(to, subject, body string) error
}

// Executor drives the per-row unsubscribe state machine.
type Executor struct {
	mailbox Mailbox
	store   *store.Store
	logger  *log.Logger
	client  *http.Client
	sender  MailSender

	retries int
	backoff time.Duration

	// Injection points for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewExecutor builds an Executor from the unsubscribe configuration.
// sender may be nil, in which case mailto mechanisms are never
// attempted automatically.
func NewExecutor(
	mb Mailbox,
	st *store.Store,
	logger *log.Logger,
	cfg model.UnsubscribeConfig,
	sender MailSender,
) *Executor {
	retries := cfg.Retries
	if retries < 1 {
		retries = 3
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Executor{
		mailbox: mb,
		store:   st,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		sender:  sender,
		retries: retries,
		backoff: time.Second,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Run processes the selection rows sequentially. Rows are acted on
// only when both the Delete and List-Unsubscribe flags are
// affirmative; everything else is skipped without an outcome entry.
// Cancellation stops further requests and returns the outcomes logged
// so far; nothing is rolled back.
func (e *Executor) Run(
	ctx context.Context,
	rows []model.SelectionRow,
	days int,
) ([]model.UnsubscribeOutcome, error) {
	if days < 1 {
		days = 30
	}

	var outcomes []model.UnsubscribeOutcome
	seen := make(map[string]struct{})

	for _, row := range rows {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}

		if !row.Selected() {
			continue
		}
		if _, dup := seen[row.Domain]; dup {
			continue
		}
		seen[row.Domain] = struct{}{}

		outcome, err := e.processRow(ctx, row, days)
		if err != nil {
			// Cancellation mid-row, or a persistence failure: the
			// outcome log is the audit trail, so losing it aborts
			// the run.
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// processRow runs the state machine for one selected row and records
// its terminal outcome.
func (e *Executor) processRow(
	ctx context.Context,
	row model.SelectionRow,
	days int,
) (model.UnsubscribeOutcome, error) {
	e.logger.Info("processing unsubscribe", "domain", row.Domain, "token", row.Token)

	// Locating: re-find the originating message so the request uses a
	// fresh link rather than a possibly stale stored URL.
	info, err := e.locate(ctx, row, days)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.UnsubscribeOutcome{}, ctxErr
		}
		return e.record(ctx, row, model.OutcomeManualRequired,
			fmt.Sprintf("locating message: %v", err))
	}
	if info == nil {
		return e.record(ctx, row, model.OutcomeManualRequired,
			fmt.Sprintf("no message with token %q in last %d days", row.Token, days))
	}

	// Executing.
	if info.IsMailto() {
		return e.executeMailto(ctx, row, info)
	}
	return e.executeHTTP(ctx, row, info)
}

// locate searches the lookback window, newest first, for a message
// whose extracted unsubscribe token matches the row's stored token.
func (e *Executor) locate(
	ctx context.Context,
	row model.SelectionRow,
	days int,
) (*model.UnsubscribeInfo, error) {
	since := e.now().AddDate(0, 0, -days)

	uids, err := e.mailbox.ListCandidateUIDs(ctx, since)
	if err != nil {
		return nil, err
	}

	for i := len(uids) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		raw, err := e.mailbox.Fetch(ctx, uids[i])
		if err != nil {
			e.logger.Warn("fetch failed while locating", "uid", uids[i], "err", err)
			continue
		}

		msg, err := decode.Decode(raw)
		if err != nil {
			continue
		}

		info := classify.ExtractUnsubscribe(msg.RawHeader, msg.BodyText)
		if info != nil && info.Token == row.Token {
			return info, nil
		}
	}

	return nil, nil
}

// executeHTTP issues the unsubscribe request with the configured retry
// budget. Timeouts and 5xx responses are retried with exponential
// backoff; a 4xx response is a terminal failure.
func (e *Executor) executeHTTP(
	ctx context.Context,
	row model.SelectionRow,
	info *model.UnsubscribeInfo,
) (model.UnsubscribeOutcome, error) {
	delay := e.backoff

	for attempt := 1; attempt <= e.retries; attempt++ {
		// No outcome for an interrupted row: cancellation stops
		// issuing requests, it is not a verdict on the mechanism.
		if err := ctx.Err(); err != nil {
			return model.UnsubscribeOutcome{}, err
		}

		status, err := e.request(ctx, info.URL)

		switch {
		case err == nil && status < 400:
			return e.record(ctx, row, model.OutcomeSuccess,
				fmt.Sprintf("HTTP %d after %d attempt(s)", status, attempt))

		case err == nil && status < 500:
			// Client errors will not improve with retries.
			return e.record(ctx, row, model.OutcomeFailed,
				fmt.Sprintf("HTTP %d", status))

		case attempt == e.retries:
			detail := fmt.Sprintf("HTTP %d after %d attempts", status, attempt)
			if err != nil {
				detail = fmt.Sprintf("%v after %d attempts", err, attempt)
			}
			return e.record(ctx, row, model.OutcomeFailed, detail)
		}

		if err != nil {
			e.logger.Warn("unsubscribe request failed",
				"domain", row.Domain, "attempt", attempt, "err", err)
		} else {
			e.logger.Warn("unsubscribe request failed",
				"domain", row.Domain, "attempt", attempt, "status", status)
		}

		e.sleep(delay)
		delay *= 2
	}

	// Unreachable: the loop always returns on the final attempt.
	return e.record(ctx, row, model.OutcomeFailed, "retry budget exhausted")
}

func (e *Executor) request(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// executeMailto handles a mailto mechanism: ManualRequired unless a
// sender is configured, in which case a minimal unsubscribe message is
// sent.
func (e *Executor) executeMailto(
	ctx context.Context,
	row model.SelectionRow,
	info *model.UnsubscribeInfo,
) (model.UnsubscribeOutcome, error) {
	if e.sender == nil {
		return e.record(ctx, row, model.OutcomeManualRequired,
			fmt.Sprintf("mailto mechanism %s; sending mail is disabled", info.URL))
	}

	to, subject, body := ParseMailto(info.URL)
	if err := e.sender.Send(to, subject, body); err != nil {
		return e.record(ctx, row, model.OutcomeFailed,
			fmt.Sprintf("sending unsubscribe mail to %s: %v", to, err))
	}

	return e.record(ctx, row, model.OutcomeSuccess,
		fmt.Sprintf("unsubscribe mail sent to %s", to))
}

// record appends the terminal outcome to the persistent log and
// reports it.
func (e *Executor) record(
	ctx context.Context,
	row model.SelectionRow,
	result model.OutcomeResult,
	detail string,
) (model.UnsubscribeOutcome, error) {
	outcome := model.UnsubscribeOutcome{
		Domain:      row.Domain,
		Token:       row.Token,
		AttemptedAt: e.now(),
		Result:      result,
		Detail:      detail,
	}

	if err := e.store.AppendOutcome(ctx, outcome); err != nil {
		return outcome, err
	}

	switch result {
	case model.OutcomeSuccess:
		e.logger.Info("unsubscribed", "domain", row.Domain, "detail", detail)
	case model.OutcomeFailed:
		e.logger.Error("unsubscribe failed", "domain", row.Domain, "detail", detail)
	default:
		e.logger.Warn("manual action required", "domain", row.Domain, "detail", detail)
	}

	return outcome, nil
}
