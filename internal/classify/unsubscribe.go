package classify

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/nhle/mailsweep/internal/decode"
	"github.com/nhle/mailsweep/internal/model"
)

// angleBracketPattern matches the <...> entries of a List-Unsubscribe
// header value.
var angleBracketPattern = regexp.MustCompile(`<([^>]+)>`)

// linkPattern matches http(s) URLs in body text or HTML.
var linkPattern = regexp.MustCompile(`https?://[^\s<>"')]+`)

// unsubscribeKeywords mark a body link as an unsubscribe mechanism.
var unsubscribeKeywords = []string{"unsubscribe", "opt-out", "optout", "remove"}

// qpResidue undoes quoted-printable residue that survives in
// List-Unsubscribe values copied out of raw headers.
var qpResidue = strings.NewReplacer(
	"=3A//", "://",
	"=3A", ":",
	"=2E", ".",
	"=2F", "/",
	"=5F", "_",
	"=2D", "-",
	"=3D", "=",
	"=26", "&",
	"=3F", "?",
	"=40", "@",
)

// ExtractUnsubscribe finds the unsubscribe mechanism for a message.
// The List-Unsubscribe header wins; otherwise the body text is
// scanned for links carrying unsubscribe keywords. Returns nil when
// no mechanism exists. Every found mechanism yields a non-empty token.
func ExtractUnsubscribe(rawHeader, bodyText string) *model.UnsubscribeInfo {
	if info := fromListUnsubscribe(rawHeader); info != nil {
		return info
	}
	return fromBodyLinks(bodyText)
}

// fromListUnsubscribe parses the List-Unsubscribe header: angle
// bracket entries, HTTP URLs preferred over mailto.
func fromListUnsubscribe(rawHeader string) *model.UnsubscribeInfo {
	value := decode.HeaderValue(rawHeader, "List-Unsubscribe")
	if value == "" {
		return nil
	}

	var httpURL, mailtoURL string
	for _, match := range angleBracketPattern.FindAllStringSubmatch(value, -1) {
		entry := cleanURL(match[1])
		switch {
		case strings.HasPrefix(entry, "http://"), strings.HasPrefix(entry, "https://"):
			if httpURL == "" {
				httpURL = entry
			}
		case strings.HasPrefix(entry, "mailto:"):
			if mailtoURL == "" {
				mailtoURL = entry
			}
		}
	}

	switch {
	case httpURL != "":
		return &model.UnsubscribeInfo{URL: httpURL, Token: deriveToken(httpURL)}
	case mailtoURL != "":
		return &model.UnsubscribeInfo{URL: mailtoURL, Token: deriveToken(mailtoURL)}
	}
	return nil
}

// fromBodyLinks scans body text (including link targets preserved from
// HTML) for a link containing an unsubscribe keyword.
func fromBodyLinks(bodyText string) *model.UnsubscribeInfo {
	if bodyText == "" {
		return nil
	}

	for _, link := range linkPattern.FindAllString(bodyText, -1) {
		lowered := strings.ToLower(link)
		for _, kw := range unsubscribeKeywords {
			if strings.Contains(lowered, kw) {
				cleaned := strings.TrimRight(link, ".,;")
				return &model.UnsubscribeInfo{
					URL:   cleaned,
					Token: deriveToken(cleaned),
				}
			}
		}
	}
	return nil
}

// cleanURL strips quoted-printable residue and percent-encoding from
// a header URL entry.
func cleanURL(raw string) string {
	cleaned := qpResidue.Replace(strings.TrimSpace(raw))
	if unescaped, err := url.QueryUnescape(cleaned); err == nil {
		cleaned = unescaped
	}
	return cleaned
}

// genericSegments are path components too common to re-identify a
// subscription later.
var genericSegments = map[string]bool{
	"unsubscribe": true,
	"unsub":       true,
	"optout":      true,
	"opt-out":     true,
	"remove":      true,
	"email":       true,
	"mail":        true,
	"list":        true,
	"link":        true,
	"click":       true,
	"u":           true,
	"e":           true,
}

// deriveToken extracts the most specific component of an unsubscribe
// URL: the longest query parameter value, else the last non-generic
// path segment, else the full URL. The result is never empty, so every
// found mechanism can be re-matched later.
func deriveToken(rawURL string) string {
	if strings.HasPrefix(rawURL, "mailto:") {
		addr := strings.TrimPrefix(rawURL, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr != "" {
			return addr
		}
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	if token := longestParamValue(parsed.Query()); token != "" {
		return token
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg != "" && !genericSegments[strings.ToLower(seg)] {
			return seg
		}
	}

	return rawURL
}

// longestParamValue picks the longest query parameter value,
// breaking ties by key order for determinism.
func longestParamValue(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var best string
	for _, k := range keys {
		for _, v := range values[k] {
			if len(v) > len(best) {
				best = v
			}
		}
	}
	return best
}
