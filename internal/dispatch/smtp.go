package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// SMTPConfig configures the relay channel.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
}

// SMTPChannel delivers through a plain SMTP relay. It is the second rung
// of the chain, reachable when the Gmail channel is unconfigured or
// failed.
type SMTPChannel struct {
	config  SMTPConfig
	fetcher *attachmentFetcher
	logger  *slog.Logger

	// sendMail is swapped in tests; production uses smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPChannel creates the relay channel.
func NewSMTPChannel(cfg SMTPConfig, logger *slog.Logger) *SMTPChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	return &SMTPChannel{
		config:   cfg,
		fetcher:  newAttachmentFetcher(0, logger),
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Name implements Channel.
func (c *SMTPChannel) Name() string { return "smtp" }

// Send implements Channel.
func (c *SMTPChannel) Send(ctx context.Context, msg *Message) (*Result, error) {
	if c.config.Host == "" {
		return &Result{Outcome: OutcomeUnavailable}, nil
	}

	attachments := c.fetcher.fetchAll(ctx, msg.Attachments)
	raw := buildMIME(msg, attachments)

	recipients := append([]string{msg.To}, msg.CC...)

	addr := fmt.Sprintf("%s:%s", c.config.Host, c.config.Port)
	var auth smtp.Auth
	if c.config.Username != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	if err := c.sendMail(addr, auth, msg.From, recipients, raw); err != nil {
		return nil, fmt.Errorf("smtp send failed: %w", err)
	}

	c.logger.Info("approval mail sent via smtp relay",
		"to", msg.To,
		"attachments", len(attachments),
	)
	return &Result{Outcome: OutcomeDelivered}, nil
}
