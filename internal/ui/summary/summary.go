// Package summary renders the end-of-scan report printed to the
// terminal: counters, the busiest domains, and the personalized-sender
// count.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/mailsweep/internal/model"
	"github.com/nhle/mailsweep/internal/scan"
	"github.com/nhle/mailsweep/internal/theme"
)

// maxListedDomains bounds the rendered domain list; the full set is in
// the CSV report.
const maxListedDomains = 10

// Render formats a scan summary for the terminal.
func Render(s *scan.Summary) string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Scan summary"))
	b.WriteString("\n")

	b.WriteString(counter("candidates", s.Total))
	b.WriteString(counter("processed", s.Processed))
	b.WriteString(counter("previously scanned", s.Skipped))
	b.WriteString(counter("decode/fetch failures", s.Failed))
	b.WriteString(counter("personalized senders", len(s.Personalized)))
	b.WriteString(counter("sender domains", len(s.Domains)))

	domains := topDomains(s.Domains)
	if len(domains) > 0 {
		b.WriteString(theme.TitleStyle.Render("Busiest domains"))
		b.WriteString("\n")
		for _, rec := range domains {
			line := fmt.Sprintf("%s %s (%d senders)",
				theme.CountStyle.Render(fmt.Sprintf("%4d", rec.TotalEmails)),
				theme.DomainStyle.Render(rec.Domain),
				len(rec.UniqueSenders))
			if len(rec.Categories) > 0 {
				line += theme.LabelStyle.Render(" · " + strings.Join(rec.CategoryNames(), ", "))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

func counter(label string, n int) string {
	return fmt.Sprintf("%s %s\n",
		theme.CountStyle.Render(fmt.Sprintf("%6d", n)),
		theme.LabelStyle.Render(label))
}

// topDomains sorts domain records by email count, descending, and
// truncates to maxListedDomains.
func topDomains(domains map[string]*model.DomainRecord) []*model.DomainRecord {
	out := make([]*model.DomainRecord, 0, len(domains))
	for _, rec := range domains {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalEmails != out[j].TotalEmails {
			return out[i].TotalEmails > out[j].TotalEmails
		}
		return out[i].Domain < out[j].Domain
	})
	if len(out) > maxListedDomains {
		out = out[:maxListedDomains]
	}
	return out
}
