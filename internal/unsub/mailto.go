package unsub

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// defaultMailtoBody is used when the mailto URL carries no body
// parameter.
const defaultMailtoBody = "Please unsubscribe me from this mailing list."

// ParseMailto splits a mailto URL into recipient, subject, and body,
// applying defaults for missing parameters.
func ParseMailto(mailtoURL string) (to, subject, body string) {
	raw := strings.TrimPrefix(mailtoURL, "mailto:")
	subject = "Unsubscribe"
	body = defaultMailtoBody

	var params string
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw, params = raw[:i], raw[i+1:]
	}

	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	to = strings.TrimSpace(raw)

	if params != "" {
		if values, err := url.ParseQuery(params); err == nil {
			if s := values.Get("subject"); s != "" {
				subject = s
			}
			if b := values.Get("body"); b != "" {
				body = b
			}
		}
	}

	return to, subject, body
}

// SMTPSender sends unsubscribe mail over SMTP with STARTTLS. It is
// only constructed when the send_mail switch is enabled.
type SMTPSender struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Send composes and delivers a minimal plain-text message.
func (s *SMTPSender) Send(to, subject, body string) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.Username))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := s.Host + ":" + s.Port

	conn, err := net.DialTimeout("tcp", addr, 30*time.Second)
	if err != nil {
		return fmt.Errorf("dial to %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	tlsConfig := &tls.Config{ServerName: s.Host}
	if err := client.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("SMTP STARTTLS: %w", err)
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth: %w", err)
	}

	if err := client.Mail(s.Username); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}
	if _, err := writer.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("writing message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing message body: %w", err)
	}

	return client.Quit()
}
