// Package smtp provides outbound email for Forgepoint. Server settings come
// from the environment (SMTP_*); mail is disabled when no host is set.
// Sending is throttled by a token bucket so a burst of contact submissions
// cannot trip the provider's rate limits.
package smtp

import (
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Encryption modes accepted in SMTP_ENCRYPTION.
const (
	EncryptionStartTLS = "starttls"
	EncryptionSSL      = "ssl"
	EncryptionNone     = "none"
)

// Mail represents an email message to be sent.
type Mail struct {
	To      []string
	Subject string
	Body    string
}

// Status describes the mail configuration for the admin API. Credentials
// are never included.
type Status struct {
	Configured  bool     `json:"configured"`
	Host        string   `json:"host,omitempty"`
	Port        int      `json:"port,omitempty"`
	Encryption  string   `json:"encryption,omitempty"`
	FromAddress string   `json:"fromAddress,omitempty"`
	NotifyTo    []string `json:"notifyTo"`
}

// headerSafe removes CR and LF so user-supplied text cannot inject headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// buildMessage renders an RFC 5322 plain-text message.
func buildMessage(from mail.Address, m Mail, now time.Time) []byte {
	domain := "localhost"
	if _, d, ok := strings.Cut(from.Address, "@"); ok && d != "" {
		domain = d
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", headerSafe(strings.Join(m.To, ", "))))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodeHeader(headerSafe(m.Subject))))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", now.UTC().Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), domain))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(strings.ReplaceAll(m.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(msg.String())
}

// encodeHeader encodes a header value as an RFC 2047 word when it is not ASCII.
func encodeHeader(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return mime.QEncoding.Encode("utf-8", s)
		}
	}
	return s
}
