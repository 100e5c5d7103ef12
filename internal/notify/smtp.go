package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/membership/backend/internal/config"
	"github.com/membership/backend/pkg/logger"
	"github.com/wneessen/go-mail"
)

type smtpEndpoint struct {
	host string
	port int
}

// Well-known providers selectable through EMAIL_SERVICE.
var knownServices = map[string]smtpEndpoint{
	"gmail":    {host: "smtp.gmail.com", port: 587},
	"outlook":  {host: "smtp-mail.outlook.com", port: 587},
	"sendgrid": {host: "smtp.sendgrid.net", port: 587},
	"mailgun":  {host: "smtp.mailgun.org", port: 587},
	"ses":      {host: "email-smtp.us-east-1.amazonaws.com", port: 587},
}

type SMTPTransport struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

// NewTransport picks SMTP when a host can be resolved from the config and
// falls back to a LogTransport otherwise.
func NewTransport(cfg config.EmailConfig) (Transport, error) {
	host, port, err := resolveEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	if host == "" {
		logger.Warn("email_transport_log_only", map[string]interface{}{
			"reason": "no smtp host or service configured",
		})
		return LogTransport{}, nil
	}

	return &SMTPTransport{
		host:     host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout,
	}, nil
}

func resolveEndpoint(cfg config.EmailConfig) (string, int, error) {
	if cfg.Host != "" {
		return cfg.Host, cfg.Port, nil
	}
	if cfg.Service == "" {
		return "", 0, nil
	}
	endpoint, ok := knownServices[strings.ToLower(cfg.Service)]
	if !ok {
		return "", 0, fmt.Errorf("unknown email service %q", cfg.Service)
	}
	return endpoint.host, endpoint.port, nil
}

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return Receipt{}, fmt.Errorf("invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.To...); err != nil {
		return Receipt{}, fmt.Errorf("invalid recipients: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return Receipt{}, fmt.Errorf("invalid reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetMessageID()

	bodyType := mail.TypeTextPlain
	if msg.ContentType == ContentHTML {
		bodyType = mail.TypeTextHTML
	}
	m.SetBodyString(bodyType, msg.Body)

	opts := []mail.Option{
		mail.WithPort(t.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if t.timeout > 0 {
		opts = append(opts, mail.WithTimeout(t.timeout))
	}
	if t.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.username),
			mail.WithPassword(t.password),
		)
	}

	client, err := mail.NewClient(t.host, opts...)
	if err != nil {
		return Receipt{}, err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Receipt{}, err
	}

	var messageID string
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		messageID = ids[0]
	}

	return Receipt{
		MessageID: messageID,
		Accepted:  append([]string(nil), msg.To...),
		SentAt:    time.Now().UTC(),
	}, nil
}

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, msg Message) (Receipt, error) {
	logger.Info("email_logged", map[string]interface{}{
		"from":         msg.From,
		"to":           msg.To,
		"subject":      msg.Subject,
		"content_type": string(msg.ContentType),
		"body_bytes":   len(msg.Body),
	})
	return Receipt{
		Accepted: append([]string(nil), msg.To...),
		SentAt:   time.Now().UTC(),
	}, nil
}
