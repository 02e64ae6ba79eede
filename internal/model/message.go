package model

import "time"

// RawMessage is one message as supplied by the mailbox collaborator:
// the raw RFC 5322 bytes plus the UID and arrival date reported by the
// server. It is immutable and only retained while decoding.
type RawMessage struct {
	UID     uint32
	Arrival time.Time
	Raw     []byte
}

// NormalizedMessage is the decoded form of a RawMessage that the
// pipeline operates on.
type NormalizedMessage struct {
	// MessageID is the Message-Id header when present, otherwise a
	// synthetic identifier derived from the UID and arrival date.
	MessageID string

	SenderName   string
	SenderAddr   string
	SenderDomain string
	Subject      string
	BodyText     string

	// RawHeader is the undecoded header block of the message, kept for
	// List-Unsubscribe extraction and the personalized-senders report.
	RawHeader string

	Arrival time.Time
}

// UnsubscribeInfo describes an unsubscribe mechanism found in a
// message: an http(s) or mailto URL plus an opaque token used to
// re-locate the originating message later.
type UnsubscribeInfo struct {
	URL   string
	Token string
}

// IsMailto reports whether the mechanism is a mailto address rather
// than an HTTP endpoint.
func (u UnsubscribeInfo) IsMailto() bool {
	return len(u.URL) >= 7 && u.URL[:7] == "mailto:"
}

// Classification is the classifier's verdict for one message.
type Classification struct {
	Categories   []CategoryTag
	Personalized bool
	Unsubscribe  *UnsubscribeInfo
}
