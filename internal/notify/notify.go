package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Dispatcher delivers one HTML message to a single recipient.
type Dispatcher interface {
	Send(ctx context.Context, recipient string, subject string, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPDispatcher struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg, sendMail: smtp.SendMail}
}

func (d *SMTPDispatcher) Send(ctx context.Context, recipient string, subject string, htmlBody string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return errors.New("recipient is required")
	}
	if strings.ContainsAny(recipient+subject, "\r\n") {
		return errors.New("header values must not contain line breaks")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	msg := buildMessage(d.cfg.From, recipient, subject, htmlBody)

	if err := d.sendMail(addr, auth, d.cfg.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// LogDispatcher writes messages to the log instead of delivering them.
// Only meant for local development.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(_ context.Context, recipient string, subject string, htmlBody string) error {
	d.logger.Info("notification dispatched to log",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", htmlBody),
	)
	return nil
}
