// Package scan runs the inbox scan pipeline: list candidate UIDs,
// fetch and decode each message, classify it, gate it against the
// scanned-id set, and fold it into per-domain aggregates. The pipeline
// is sequential: one IMAP connection, one message at a time, one
// writer of aggregate and dedup state.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/mailsweep/internal/classify"
	"github.com/nhle/mailsweep/internal/decode"
	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/internal/store"
)

// Mailbox supplies raw message bytes keyed by UID.
type Mailbox interface {
	ListCandidateUIDs(ctx context.Context, since time.Time) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) (*model.RawMessage, error)
}

// Event reports per-message progress to an optional observer.
type Event struct {
	Index int
	Total int

	// Skipped marks a message gated out by the dedup set.
	Skipped bool

	// Failed marks a message that could not be fetched or decoded.
	Failed bool

	Domain string
}

// Summary is the result of one scan run.
type Summary struct {
	RunID        string
	Since        time.Time
	Total        int
	Processed    int
	Skipped      int
	Failed       int
	Domains      map[string]*model.DomainRecord
	Personalized []model.PersonalizedRecord
}

// Pipeline wires the scan components together.
type Pipeline struct {
	mailbox    Mailbox
	store      *store.Store
	classifier *classify.Classifier
	logger     *log.Logger
	batchSize  int
}

// NewPipeline builds a Pipeline. batchSize controls how many processed
// identifiers are merged into the dedup store per transaction; values
// below 1 fall back to 50.
func NewPipeline(
	mb Mailbox,
	st *store.Store,
	cl *classify.Classifier,
	logger *log.Logger,
	batchSize int,
) *Pipeline {
	if batchSize < 1 {
		batchSize = 50
	}
	return &Pipeline{
		mailbox:    mb,
		store:      st,
		classifier: cl,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Run executes one scan over all candidate messages since the given
// date. When events is non-nil, one Event is sent per candidate.
//
// Processed identifiers are merged into the dedup store after each
// batch, so an interrupted run loses at most the current batch and the
// next run reprocesses it: at-least-once, never double-counted within
// a run. Store failures are fatal; fetch and decode failures are not.
func (p *Pipeline) Run(ctx context.Context, since time.Time, events chan<- Event) (*Summary, error) {
	runID := uuid.New().String()
	startedAt := time.Now()

	if err := p.store.BeginRun(ctx, runID, startedAt); err != nil {
		return nil, err
	}

	scanned, err := p.store.LoadScannedIDs(ctx)
	if err != nil {
		return nil, err
	}

	uids, err := p.mailbox.ListCandidateUIDs(ctx, since)
	if err != nil {
		return nil, err
	}

	p.logger.Info("scan started",
		"run", runID, "since", since.Format(time.DateOnly), "candidates", len(uids))

	summary := &Summary{
		RunID: runID,
		Since: since,
		Total: len(uids),
	}
	agg := NewAggregator()

	var batch []string
	flush := func() error {
		if err := p.store.MergeScannedIDs(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i, uid := range uids {
		if ctx.Err() != nil {
			// Stop issuing fetches but keep what was already processed
			// durable. The run context is gone, so the final merge gets
			// its own short deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := p.store.MergeScannedIDs(flushCtx, batch); err != nil {
				p.logger.Warn("merging batch after cancellation", "err", err)
			}
			cancel()
			return summary, ctx.Err()
		}

		// Without a progress observer, log a line every 100 candidates.
		if events == nil && (i+1)%100 == 0 {
			p.logger.Info("scan progress", "done", i+1, "total", len(uids))
		}

		event := Event{Index: i + 1, Total: len(uids)}

		raw, err := p.mailbox.Fetch(ctx, uid)
		if err != nil {
			p.logger.Warn("fetch failed", "uid", uid, "err", err)
			summary.Failed++
			event.Failed = true
			emit(events, event)
			continue
		}

		msg, err := decode.Decode(raw)
		if err != nil {
			// Skipped without being marked scanned: eligible for
			// retry on the next run.
			var decErr *decode.Error
			if errors.As(err, &decErr) {
				p.logger.Warn("decode failed", "uid", uid, "reason", decErr.Reason)
			} else {
				p.logger.Warn("decode failed", "uid", uid, "err", err)
			}
			summary.Failed++
			event.Failed = true
			emit(events, event)
			continue
		}

		if _, done := scanned[msg.MessageID]; done {
			summary.Skipped++
			event.Skipped = true
			emit(events, event)
			continue
		}

		cls := p.classifier.Classify(msg)
		agg.Fold(msg, cls)

		// Marking the id in the loaded set also collapses duplicate
		// candidates within this run.
		scanned[msg.MessageID] = struct{}{}
		batch = append(batch, msg.MessageID)
		summary.Processed++
		event.Domain = msg.SenderDomain
		emit(events, event)

		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}

	summary.Domains = agg.Domains()
	summary.Personalized = agg.Personalized()

	err = p.store.FinishRun(ctx, model.ScanRun{
		ID:         runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Processed:  summary.Processed,
		Skipped:    summary.Skipped,
		Failed:     summary.Failed,
	})
	if err != nil {
		return summary, err
	}

	p.logger.Info("scan finished",
		"run", runID,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"domains", len(summary.Domains))

	return summary, nil
}

// emit delivers an event when the observer is keeping up. Once nothing
// consumes the channel (the progress display was dismissed), events
// are dropped rather than blocking the scan.
func emit(events chan<- Event, e Event) {
	if events == nil {
		return
	}
	select {
	case events <- e:
	default:
	}
}
