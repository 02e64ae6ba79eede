package model

import (
	"sort"
	"strings"
	"time"
)

// DomainRecord aggregates everything seen from one sender domain
// within a scan. Categories and UniqueSenders are sets; SenderList
// preserves first-seen order for reproducible report output.
type DomainRecord struct {
	Domain        string
	Categories    map[CategoryTag]struct{}
	UniqueSenders map[string]struct{}
	TotalEmails   int
	SenderList    []string
	Unsubscribe   *UnsubscribeInfo
	LastUpdated   time.Time
}

// NewDomainRecord creates an empty record for domain.
func NewDomainRecord(domain string) *DomainRecord {
	return &DomainRecord{
		Domain:        domain,
		Categories:    make(map[CategoryTag]struct{}),
		UniqueSenders: make(map[string]struct{}),
	}
}

// CategoryNames returns the record's categories sorted alphabetically.
func (r *DomainRecord) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for tag := range r.Categories {
		names = append(names, string(tag))
	}
	sort.Strings(names)
	return names
}

// PersonalizedRecord is one message that addressed the user by the
// configured name.
type PersonalizedRecord struct {
	SenderName string
	SenderAddr string
	RawHeader  string
}

// ScanRun holds per-run metadata persisted alongside the dedup set.
type ScanRun struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Processed  int       `db:"processed"`
	Skipped    int       `db:"skipped"`
	Failed     int       `db:"failed"`
	Completed  bool      `db:"completed"`
}

// OutcomeResult is the terminal state of one unsubscribe attempt.
type OutcomeResult string

const (
	OutcomeSuccess        OutcomeResult = "Success"
	OutcomeFailed         OutcomeResult = "Failed"
	OutcomeManualRequired OutcomeResult = "ManualRequired"
)

// UnsubscribeOutcome is one append-only log entry for an unsubscribe
// attempt against a selected domain.
type UnsubscribeOutcome struct {
	Domain      string        `db:"domain"`
	Token       string        `db:"token"`
	AttemptedAt time.Time     `db:"attempted_at"`
	Result      OutcomeResult `db:"result"`
	Detail      string        `db:"detail"`
}

// SelectionRow is one row of the externally edited unsubscribe
// selection file. Delete is user-set; ListUnsubscribe is
// system-populated and indicates whether automation is possible.
type SelectionRow struct {
	Domain          string
	UnsubscribeURL  string
	Token           string
	Delete          string
	ListUnsubscribe string
}

// Selected reports whether the executor should act on the row: both
// the user flag and the availability flag must be affirmative.
func (r SelectionRow) Selected() bool {
	return equalsYes(r.Delete) && equalsYes(r.ListUnsubscribe)
}

func equalsYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}
