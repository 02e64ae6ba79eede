// Package decode turns raw mailbox messages into normalized messages
// the classifier can work with. Decoding is best-effort: mixed and
// unknown header charsets degrade to raw values, HTML-only bodies are
// converted to text, and only a message whose headers cannot be parsed
// at all is reported as a failure.
package decode

import (
	"bytes"
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/jaytaylor/html2text"

	"github.com/nhle/mailsweep/internal/model"
)

// Error reports a message that could not be decoded. The message is
// skipped and stays out of the scanned set, so the next run retries it.
type Error struct {
	UID    uint32
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decoding message UID %d: %s", e.UID, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Decode parses one raw message into a NormalizedMessage. It returns
// an *Error when the headers are unparseable even by the fallback
// path; every other defect degrades to a partially filled message.
func Decode(raw *model.RawMessage) (*model.NormalizedMessage, error) {
	msg := &model.NormalizedMessage{
		Arrival:   raw.Arrival,
		RawHeader: headerBlock(raw.Raw),
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw.Raw))
	if mr == nil || (err != nil && !message.IsUnknownCharset(err)) {
		if fallbackErr := decodeFallback(raw, msg); fallbackErr != nil {
			return nil, &Error{
				UID:    raw.UID,
				Reason: "unparseable headers",
				Err:    err,
			}
		}
		finishMessage(raw, msg)
		return msg, nil
	}
	defer mr.Close()

	fillHeaders(mr.Header, msg)
	msg.BodyText = extractBody(mr)

	finishMessage(raw, msg)
	return msg, nil
}

// fillHeaders decodes subject and sender from a parsed header,
// falling back to the raw header values on decode errors.
func fillHeaders(h mail.Header, msg *model.NormalizedMessage) {
	subject, err := h.Subject()
	if err != nil || subject == "" {
		if raw := h.Get("Subject"); raw != "" {
			subject = raw
		}
	}
	msg.Subject = subject

	if addrs, err := h.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.SenderName = addrs[0].Name
		msg.SenderAddr = addrs[0].Address
		return
	}

	// Encoded or malformed From header: try a plain parse of the raw
	// value, keep the raw value itself as a last resort.
	rawFrom := h.Get("From")
	if addr, err := netmail.ParseAddress(rawFrom); err == nil {
		msg.SenderName = addr.Name
		msg.SenderAddr = addr.Address
		return
	}
	msg.SenderAddr = strings.TrimSpace(rawFrom)
}

// extractBody walks the MIME parts and returns the first usable text
// part, converting an HTML-only body to text. Attachments are skipped.
func extractBody(mr *mail.Reader) string {
	var textBody, htmlBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	if textBody != "" {
		return textBody
	}
	return htmlToText(htmlBody)
}

// htmlToText strips markup from an HTML body while keeping link
// targets in the output, which the unsubscribe link scan depends on.
func htmlToText(html string) string {
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{})
	if err != nil {
		// Leave the markup in place rather than losing the content;
		// link targets are still findable in raw HTML.
		return html
	}
	return text
}

// decodeFallback handles messages go-message rejects outright. It
// parses headers with net/mail and treats the remainder as plain text.
func decodeFallback(raw *model.RawMessage, msg *model.NormalizedMessage) error {
	parsed, err := netmail.ReadMessage(bytes.NewReader(raw.Raw))
	if err != nil {
		return err
	}

	msg.Subject = parsed.Header.Get("Subject")
	rawFrom := parsed.Header.Get("From")
	if addr, err := netmail.ParseAddress(rawFrom); err == nil {
		msg.SenderName = addr.Name
		msg.SenderAddr = addr.Address
	} else {
		msg.SenderAddr = strings.TrimSpace(rawFrom)
	}

	body, err := io.ReadAll(parsed.Body)
	if err == nil {
		msg.BodyText = string(body)
	}
	return nil
}

// finishMessage derives the fields that depend on other fields:
// sender domain and the message identifier.
func finishMessage(raw *model.RawMessage, msg *model.NormalizedMessage) {
	msg.SenderDomain = SenderDomain(msg.SenderAddr)
	msg.MessageID = messageID(raw, msg.RawHeader)
}

// SenderDomain returns the lowercased part of addr after the last
// '@'. A malformed address without '@' yields the whole value,
// lowercased, so the pipeline keeps going instead of dropping mail.
func SenderDomain(addr string) string {
	lowered := strings.ToLower(strings.TrimSpace(addr))
	at := strings.LastIndexByte(lowered, '@')
	if at < 0 || at == len(lowered)-1 {
		return strings.Trim(lowered, "<>")
	}
	return strings.Trim(lowered[at+1:], "<>")
}

// messageID returns the Message-Id header value when present,
// otherwise a synthetic identifier from UID and arrival date.
func messageID(raw *model.RawMessage, headerBlock string) string {
	if id := HeaderValue(headerBlock, "Message-Id"); id != "" {
		return strings.Trim(id, "<> ")
	}
	return fmt.Sprintf("uid:%d@%s", raw.UID, raw.Arrival.Format(time.DateOnly))
}

// headerBlock returns the raw header portion of a message: everything
// up to the first blank line.
func headerBlock(raw []byte) string {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[:i])
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

// HeaderValue extracts a single header value from a raw header block,
// unfolding continuation lines. The name match is case-insensitive.
// The classifier uses it to read List-Unsubscribe.
func HeaderValue(block, name string) string {
	prefix := strings.ToLower(name) + ":"
	lines := strings.Split(block, "\n")

	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if !strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			continue
		}

		value := strings.TrimSpace(trimmed[len(prefix):])
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimRight(lines[j], "\r")
			if !strings.HasPrefix(next, " ") && !strings.HasPrefix(next, "\t") {
				break
			}
			value += " " + strings.TrimSpace(next)
		}
		return value
	}
	return ""
}
