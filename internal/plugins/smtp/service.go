package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/keyxmakerx/forgepoint/internal/apperror"
	"github.com/keyxmakerx/forgepoint/internal/config"
)

// dialTimeout bounds connecting to the mail server.
const dialTimeout = 10 * time.Second

// ErrNotConfigured is returned by SendMail when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp is not configured")

// MailService is the interface other plugins use to send email.
// The contact pipeline uses it for submission notifications.
type MailService interface {
	SendMail(ctx context.Context, m Mail) error
	IsConfigured() bool

	// NotifyRecipients returns the addresses that receive site
	// notifications (SMTP_NOTIFY_TO).
	NotifyRecipients() []string
}

// SMTPService extends MailService with admin diagnostics.
type SMTPService interface {
	MailService

	// Status returns the mail configuration without credentials.
	Status() Status

	// TestConnection verifies connectivity and authentication.
	TestConnection(ctx context.Context) error
}

// sendFunc delivers a rendered message. Swapped out in tests.
type sendFunc func(ctx context.Context, from string, to []string, msg []byte) error

// smtpService implements SMTPService.
type smtpService struct {
	cfg     config.SMTPConfig
	limiter *rate.Limiter
	send    sendFunc
	now     func() time.Time
}

// NewSMTPService creates a mail service from environment settings.
func NewSMTPService(cfg config.SMTPConfig) SMTPService {
	perSecond := cfg.PerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.Encryption == "" {
		cfg.Encryption = EncryptionStartTLS
	}

	s := &smtpService{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		now:     time.Now,
	}
	s.send = s.deliver
	return s
}

// --- MailService (cross-plugin interface) ---

// IsConfigured returns true if an SMTP host is set.
func (s *smtpService) IsConfigured() bool {
	return s.cfg.IsConfigured()
}

func (s *smtpService) NotifyRecipients() []string {
	return append([]string(nil), s.cfg.NotifyTo...)
}

// SendMail waits for a send token, then delivers m. Blocks until the
// throttle admits the message or ctx is done.
func (s *smtpService) SendMail(ctx context.Context, m Mail) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(m.To) == 0 {
		return errors.New("no recipients")
	}
	for _, addr := range m.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", addr, err)
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}

	from := mail.Address{Name: headerSafe(s.cfg.FromName), Address: s.cfg.FromAddress}
	msg := buildMessage(from, m, s.now())

	if err := s.send(ctx, from.Address, m.To, msg); err != nil {
		return err
	}
	slog.Debug("mail sent", slog.Int("recipients", len(m.To)), slog.String("subject", m.Subject))
	return nil
}

func (s *smtpService) addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *smtpService) auth() gosmtp.Auth {
	if s.cfg.Username == "" {
		return nil
	}
	return gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
}

// deliver sends msg based on the configured encryption mode.
func (s *smtpService) deliver(ctx context.Context, from string, to []string, msg []byte) error {
	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}
	return sendMessage(client, from, to, msg)
}

// dial connects and, for starttls, upgrades the session. "ssl" uses
// implicit TLS (port 465 typical); "none" stays plaintext.
func (s *smtpService) dial(ctx context.Context) (*gosmtp.Client, error) {
	addr := s.addr()
	tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: dialTimeout}

	var conn net.Conn
	var err error
	if s.cfg.Encryption == EncryptionSSL {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s (SSL): %w", addr, err)
		}
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", addr, err)
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	if s.cfg.Encryption == EncryptionStartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("starting TLS: %w", err)
		}
	}
	return client, nil
}

// sendMessage handles MAIL FROM, RCPT TO, DATA for an existing SMTP client.
func sendMessage(client *gosmtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// --- SMTPService (admin diagnostics) ---

func (s *smtpService) Status() Status {
	st := Status{Configured: s.IsConfigured(), NotifyTo: s.NotifyRecipients()}
	if st.NotifyTo == nil {
		st.NotifyTo = []string{}
	}
	if st.Configured {
		st.Host = s.cfg.Host
		st.Port = s.cfg.Port
		st.Encryption = s.cfg.Encryption
		st.FromAddress = s.cfg.FromAddress
	}
	return st
}

// TestConnection performs the handshake and authentication without sending
// a message.
func (s *smtpService) TestConnection(ctx context.Context) error {
	if !s.IsConfigured() {
		return apperror.NewBadRequest("SMTP host is not configured")
	}

	client, err := s.dial(ctx)
	if err != nil {
		slog.Warn("smtp connection test failed", slog.String("host", s.cfg.Host), slog.Any("error", err))
		return apperror.NewBadRequest("could not connect to the SMTP server")
	}
	defer client.Close()

	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			slog.Warn("smtp authentication test failed", slog.String("host", s.cfg.Host), slog.Any("error", err))
			return apperror.NewBadRequest("SMTP authentication failed")
		}
	}
	return client.Quit()
}
