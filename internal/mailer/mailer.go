// Package mailer delivers verification-code email over implicit-TLS SMTP.
package mailer

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

type Config struct {
	Host     string
	Port     int
	Sender   string
	Password string
}

type Sender struct {
	cfg   Config
	sleep func(time.Duration)
	send  func(receiver, subject, body string) error
}

func New(cfg Config) *Sender {
	s := &Sender{cfg: cfg, sleep: time.Sleep}
	s.send = s.smtpSend
	return s
}

// SendVerificationCode delivers the code with up to three attempts.
// Authentication failures are not retried: a bad app password will not fix
// itself between attempts.
func (s *Sender) SendVerificationCode(receiver, code string) error {
	body := fmt.Sprintf("Your verification code is %s. It is valid for 5 minutes.", code)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := s.send(receiver, "Agriculture Monitoring Console - Verification Code", body)
		if err == nil {
			slog.Info("verification code email sent", "receiver", receiver, "attempt", attempt)
			return nil
		}

		lastErr = err
		slog.Warn("verification code email failed", "receiver", receiver, "attempt", attempt, "error", err)

		if strings.Contains(err.Error(), "535") { // authentication rejected
			return err
		}
		if attempt < maxAttempts {
			s.sleep(retryDelay)
		}
	}
	return lastErr
}

func (s *Sender) smtpSend(receiver, subject, body string) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	// Port 465 speaks TLS from the first byte, so the plain smtp.SendMail
	// helper (which expects STARTTLS) cannot be used.
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("could not connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create SMTP client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := client.Mail(s.cfg.Sender); err != nil {
		return err
	}
	if err := client.Rcpt(receiver); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.cfg.Sender, receiver, subject, body)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}
