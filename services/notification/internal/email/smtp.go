// Package email отправляет письма по SMTP (go-mail).
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/go-mail/mail"
	"go.uber.org/zap"
)

// Message письмо в текстовом виде
type Message struct {
	To      []string
	Subject string
	Body    string
}

// SMTPConfig параметры подключения
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLSMode auto | starttls | ssl | none
	TLSMode string
	Timeout time.Duration
}

// SMTPSender реализует отправку писем через SMTP
type SMTPSender struct {
	logger *zap.Logger
	cfg    SMTPConfig
}

// NewSMTPSender создаёт SMTP sender
func NewSMTPSender(logger *zap.Logger, cfg SMTPConfig) *SMTPSender {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{
		logger: logger,
		cfg:    cfg,
	}
}

// Send собирает письмо и отправляет одним соединением.
// go-mail не принимает context, поэтому отменённый ctx проверяется до отправки.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	if err := s.dialer().DialAndSend(m); err != nil {
		s.logger.Error("smtp send failed",
			zap.Error(err),
			zap.String("host", s.cfg.Host),
			zap.Int("recipients", len(msg.To)),
		)
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.Debug("email sent",
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) (*mail.Message, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("email has no recipients")
	}
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", strings.TrimSpace(msg.Subject))
	m.SetBody("text/plain", msg.Body)
	return m, nil
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	d.Timeout = s.cfg.Timeout
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}

	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// auto: STARTTLS, если сервер его предлагает
	}
	return d
}

// NoOpSender используется, когда SMTP отключён
type NoOpSender struct {
	logger *zap.Logger
}

// NewNoOpSender создаёт no-op sender
func NewNoOpSender(logger *zap.Logger) *NoOpSender {
	return &NoOpSender{
		logger: logger,
	}
}

// Send ничего не делает, только логирует
func (s *NoOpSender) Send(ctx context.Context, msg Message) error {
	s.logger.Debug("no-op email sender: message not sent",
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}
