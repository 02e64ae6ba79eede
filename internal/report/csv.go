// Package report renders aggregate scan state into the CSV schemas
// that form the external contract: the personalized-senders table, the
// domain-analysis table, and the unsubscribe selection file, plus the
// parser for the selection file after the user has edited it.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/mailsweep/internal/model"
)

// minReportEmails is the domain-analysis threshold: domains with fewer
// total emails are noise and are not reported.
const minReportEmails = 2

const timeLayout = "2006-01-02 15:04:05"

// listSeparator joins set and list contents inside a single CSV field.
const listSeparator = "; "

// PersonalizedHeader is the column set of the personalized-senders table.
var PersonalizedHeader = []string{"Sender Name", "Email Address", "Full Header"}

// DomainHeader is the column set of the domain-analysis table.
var DomainHeader = []string{
	"Domain", "Categories", "Unique Senders", "Total Emails",
	"Sender List", "Unsubscribe URL", "Token", "Last Updated",
}

// SelectionHeader is the domain-analysis columns plus the two
// selection flags: Delete (user-edited) and List-Unsubscribe
// (system-populated).
var SelectionHeader = append(append([]string{}, DomainHeader...), "Delete", "List-Unsubscribe")

// WritePersonalized writes the personalized-senders table: one row per
// personalized message.
func WritePersonalized(w io.Writer, records []model.PersonalizedRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(PersonalizedHeader); err != nil {
		return fmt.Errorf("writing personalized header: %w", err)
	}

	for _, rec := range records {
		row := []string{rec.SenderName, rec.SenderAddr, rec.RawHeader}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing personalized row for %s: %w", rec.SenderAddr, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDomainAnalysis writes the domain-analysis table: one row per
// domain with at least two emails, sorted by domain.
func WriteDomainAnalysis(w io.Writer, domains map[string]*model.DomainRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(DomainHeader); err != nil {
		return fmt.Errorf("writing domain header: %w", err)
	}

	for _, rec := range reportableDomains(domains) {
		if err := cw.Write(domainRow(rec)); err != nil {
			return fmt.Errorf("writing domain row for %s: %w", rec.Domain, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSelection writes the selection file the user edits before
// running the executor. Delete starts out "no"; List-Unsubscribe
// reflects whether an unsubscribe mechanism was found.
func WriteSelection(w io.Writer, domains map[string]*model.DomainRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(SelectionHeader); err != nil {
		return fmt.Errorf("writing selection header: %w", err)
	}

	for _, rec := range reportableDomains(domains) {
		available := "no"
		if rec.Unsubscribe != nil {
			available = "yes"
		}
		row := append(domainRow(rec), "no", available)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing selection row for %s: %w", rec.Domain, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// reportableDomains filters to the >= 2 email threshold and sorts by
// domain for reproducible output.
func reportableDomains(domains map[string]*model.DomainRecord) []*model.DomainRecord {
	var out []*model.DomainRecord
	for _, rec := range domains {
		if rec.TotalEmails >= minReportEmails {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func domainRow(rec *model.DomainRecord) []string {
	var unsubURL, token string
	if rec.Unsubscribe != nil {
		unsubURL = rec.Unsubscribe.URL
		token = rec.Unsubscribe.Token
	}

	return []string{
		rec.Domain,
		strings.Join(rec.CategoryNames(), listSeparator),
		strconv.Itoa(len(rec.UniqueSenders)),
		strconv.Itoa(rec.TotalEmails),
		strings.Join(rec.SenderList, listSeparator),
		unsubURL,
		token,
		rec.LastUpdated.Format(timeLayout),
	}
}

// WriteOutcomeLog renders the unsubscribe outcome log: one line per
// attempt with timestamp, domain, token, result, and detail.
func WriteOutcomeLog(w io.Writer, outcomes []model.UnsubscribeOutcome) error {
	for _, o := range outcomes {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.AttemptedAt.Format(time.RFC3339),
			o.Domain, o.Token, o.Result, o.Detail)
		if err != nil {
			return fmt.Errorf("writing outcome line for %s: %w", o.Domain, err)
		}
	}
	return nil
}
