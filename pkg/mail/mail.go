// Package mail sends account lifecycle email over SMTP.
package mail

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// Mailer delivers account lifecycle email. Implementations must not
// block callers beyond their configured timeout.
type Mailer interface {
	SendVerification(to, token string) error
	SendPasswordReset(to, token string) error
}

// Config carries SMTP connection details. User and Password empty means
// delivery is disabled and emails are logged instead of sent.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FrontendURL string
	Timeout     time.Duration
}

const defaultSMTPTimeout = 10 * time.Second

// SMTPMailer sends HTML mail over a STARTTLS SMTP connection.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger
}

func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) SendVerification(to, token string) error {
	link := m.cfg.FrontendURL + "/verify-email?token=" + url.QueryEscape(token)
	return m.send(to, "Verify your email", verificationBody(link))
}

func (m *SMTPMailer) SendPasswordReset(to, token string) error {
	link := m.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	return m.send(to, "Reset your password", resetBody(link))
}

func (m *SMTPMailer) send(to, subject, html string) error {
	if m.cfg.User == "" || m.cfg.Password == "" {
		m.logger.Warn("smtp not configured, email skipped", "to", to, "subject", subject)
		return nil
	}

	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprintf("%d", m.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, m.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(m.cfg.Timeout))

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("mail: starttls: %w", err)
	}
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mail: from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("mail: rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("mail: data: %w", err)
	}
	msg := buildMessage(m.cfg.From, to, subject, html)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mail: close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("mail: quit: %w", err)
	}

	m.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

func buildMessage(from, to, subject, html string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return b.String()
}

// NopMailer records requested sends without delivering anything. Used in
// tests and when no SMTP account is available.
type NopMailer struct {
	Verifications []string
	Resets        []string
}

func (n *NopMailer) SendVerification(to, token string) error {
	n.Verifications = append(n.Verifications, to+":"+token)
	return nil
}

func (n *NopMailer) SendPasswordReset(to, token string) error {
	n.Resets = append(n.Resets, to+":"+token)
	return nil
}
