package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"stockpilot/internal/logger"
)

// Mailer delivers a composed report.
type Mailer interface {
	Send(ctx context.Context, r *Report) error
}

// SMTPConfig holds SMTP delivery settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers reports over SMTP.
type SMTPMailer struct {
	config SMTPConfig
	logger *logger.Logger
}

// NewSMTPMailer creates a new SMTP mailer.
func NewSMTPMailer(cfg SMTPConfig, log *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		config: cfg,
		logger: log,
	}
}

// Send delivers the report to its recipient.
func (m *SMTPMailer) Send(ctx context.Context, r *Report) error {
	if r.Recipient == "" {
		return fmt.Errorf("report has no recipient")
	}

	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}

	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", m.config.From, err)
	}
	if err := msg.To(r.Recipient); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", r.Recipient, err)
	}
	msg.Subject(r.Subject)
	msg.SetBodyString(mail.TypeTextPlain, RenderBody(r))

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	m.logger.InfoCtx(ctx, "report sent",
		logger.Field{Key: "recipient", Value: r.Recipient},
		logger.Field{Key: "subject", Value: r.Subject})
	return nil
}

// LogMailer is the dispatch path used when SMTP is disabled: the report is
// written to the log instead of a mailbox.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

// Send logs the report instead of delivering it.
func (m *LogMailer) Send(ctx context.Context, r *Report) error {
	m.logger.InfoCtx(ctx, "smtp disabled, logging report instead",
		logger.Field{Key: "recipient", Value: r.Recipient},
		logger.Field{Key: "subject", Value: r.Subject},
		logger.Field{Key: "body", Value: RenderBody(r)})
	return nil
}

// RenderBody renders the plain text body sent to the recipient.
func RenderBody(r *Report) string {
	var b strings.Builder
	b.WriteString(r.Content.Summary)

	if len(r.Content.DailyPriceChange) > 0 {
		b.WriteString("\n\nNotable movers:\n")
		for _, mv := range r.Content.DailyPriceChange {
			fmt.Fprintf(&b, "- %s (%s): %.2f (%+.2f%%)\n", mv.Symbol, mv.Name, mv.Price, mv.ChangePercent)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
