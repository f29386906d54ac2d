package mail

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"contactsss/internal/metrics"
)

// SMTPConfig holds the outbound mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SSL      bool
	Timeout  time.Duration
}

// SMTPSender delivers messages over SMTP, retrying transient failures
// with fibonacci backoff inside the caller's deadline.
type SMTPSender struct {
	config SMTPConfig
	logger *zap.Logger
}

// NewSMTPSender creates an [SMTPSender]. A zero timeout defaults to 10s.
func NewSMTPSender(cfg SMTPConfig, logger *zap.Logger) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{config: cfg, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.config.From); err != nil {
		return err
	}
	if err := m.To(msg.To); err != nil {
		return err
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)

	opts := []gomail.Option{
		gomail.WithPort(s.config.Port),
		gomail.WithTimeout(s.config.Timeout),
	}
	if s.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.config.Username),
			gomail.WithPassword(s.config.Password),
		)
	}
	if s.config.SSL {
		opts = append(opts, gomail.WithSSL())
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		client, err := gomail.NewClient(s.config.Host, opts...)
		if err != nil {
			return err
		}
		if err := client.DialAndSendWithContext(ctx, m); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		metrics.MailFailures.Inc()
		s.logger.Warn("mail delivery failed", zap.String("to", msg.To), zap.Error(err))
		return err
	}
	return nil
}
