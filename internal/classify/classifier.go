// Package classify makes the per-message decisions: which service
// categories a sender belongs to, whether the message is personalized
// correspondence, and what unsubscribe mechanism it carries. All
// decisions are deterministic functions of the normalized message,
// the taxonomy, and the configured name.
package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nhle/mailsweep/internal/model"
)

// automatedSenderMarkers flags broadcast addresses whose use of the
// recipient's name is template insertion, not correspondence.
var automatedSenderMarkers = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"do-not-reply",
	"notifications",
	"notification@",
	"mailer-daemon",
	"bounce",
	"newsletter",
}

// Classifier evaluates messages against a fixed taxonomy and personal
// name. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	taxonomy model.Taxonomy
	tags     []model.CategoryTag
	name     string
	nameRe   *regexp.Regexp
}

// New builds a Classifier. The taxonomy is expected to be normalized
// (lowercased keywords); name matching is case-insensitive, substring
// by default or whole-word when wholeWord is set.
func New(taxonomy model.Taxonomy, name string, wholeWord bool) *Classifier {
	tags := make([]model.CategoryTag, 0, len(taxonomy))
	for tag := range taxonomy {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	c := &Classifier{
		taxonomy: taxonomy,
		tags:     tags,
		name:     strings.ToLower(strings.TrimSpace(name)),
	}
	if wholeWord && c.name != "" {
		c.nameRe = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c.name) + `\b`)
	}
	return c
}

// Classify returns the categories, personalization verdict, and
// unsubscribe mechanism for one message.
func (c *Classifier) Classify(msg *model.NormalizedMessage) model.Classification {
	return model.Classification{
		Categories:   c.categories(msg),
		Personalized: c.personalized(msg),
		Unsubscribe:  ExtractUnsubscribe(msg.RawHeader, msg.BodyText),
	}
}

// categories matches taxonomy keywords against the sender domain,
// sender address, and subject. Tags are evaluated in sorted order so
// the result slice is reproducible.
func (c *Classifier) categories(msg *model.NormalizedMessage) []model.CategoryTag {
	domain := msg.SenderDomain
	addr := strings.ToLower(msg.SenderAddr)
	subject := strings.ToLower(msg.Subject)

	var matched []model.CategoryTag
	for _, tag := range c.tags {
		for _, kw := range c.taxonomy[tag] {
			if strings.Contains(domain, kw) ||
				strings.Contains(addr, kw) ||
				strings.Contains(subject, kw) {
				matched = append(matched, tag)
				break
			}
		}
	}
	return matched
}

// personalized reports whether the configured name appears in the
// subject or body and the sender does not look like an automated
// broadcast address.
func (c *Classifier) personalized(msg *model.NormalizedMessage) bool {
	if c.name == "" {
		return false
	}
	if isAutomatedSender(msg.SenderAddr) {
		return false
	}
	return c.nameAppears(msg.Subject) || c.nameAppears(msg.BodyText)
}

func (c *Classifier) nameAppears(text string) bool {
	if text == "" {
		return false
	}
	if c.nameRe != nil {
		return c.nameRe.MatchString(text)
	}
	return strings.Contains(strings.ToLower(text), c.name)
}

// isAutomatedSender applies the no-reply heuristic to an address.
func isAutomatedSender(addr string) bool {
	lowered := strings.ToLower(addr)
	for _, marker := range automatedSenderMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
