// Package notify sends HTML and plain-text email. Each send validates its
// parameters synchronously and then hands the message to a Transport on a
// separate goroutine, returning a Pending result the caller may wait on.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/membership/backend/internal/config"
)

var ErrInvalidParameters = errors.New("invalid email parameters")

type ContentType string

const (
	ContentHTML  ContentType = "text/html"
	ContentPlain ContentType = "text/plain"
)

// Options describes one email as callers see it. From falls back to the
// configured default sender.
type Options struct {
	To      []string
	From    string
	Subject string
	Body    string
	ReplyTo string
}

// To builds a recipient list; a single address becomes a one-element slice.
func To(addresses ...string) []string {
	return append([]string(nil), addresses...)
}

// Message is the normalised form handed to a Transport.
type Message struct {
	From        string
	To          []string
	Subject     string
	Body        string
	ContentType ContentType
	ReplyTo     string
}

type Receipt struct {
	MessageID string
	Accepted  []string
	SentAt    time.Time
}

type Transport interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "email transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Mailer struct {
	transport   Transport
	defaultFrom string
	timeout     time.Duration
}

func NewMailer(cfg config.EmailConfig, transport Transport) *Mailer {
	return &Mailer{
		transport:   transport,
		defaultFrom: cfg.DefaultFrom,
		timeout:     cfg.Timeout,
	}
}

func (m *Mailer) SendHTMLEmail(ctx context.Context, opts Options) (*Pending, error) {
	return m.send(ctx, opts, ContentHTML)
}

func (m *Mailer) SendPlainTextEmail(ctx context.Context, opts Options) (*Pending, error) {
	return m.send(ctx, opts, ContentPlain)
}

func (m *Mailer) send(ctx context.Context, opts Options, contentType ContentType) (*Pending, error) {
	msg, err := m.buildMessage(opts, contentType)
	if err != nil {
		return nil, err
	}

	p := newPending()
	go func() {
		sendCtx := ctx
		if m.timeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, m.timeout)
			defer cancel()
		}

		receipt, err := m.transport.Send(sendCtx, msg)
		if err != nil {
			p.resolve(Receipt{}, &TransportError{Err: err})
			return
		}
		p.resolve(receipt, nil)
	}()

	return p, nil
}

func (m *Mailer) buildMessage(opts Options, contentType ContentType) (Message, error) {
	recipients := make([]string, 0, len(opts.To))
	for _, addr := range opts.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return Message{}, ErrInvalidParameters
	}

	from := strings.TrimSpace(opts.From)
	if from == "" {
		from = m.defaultFrom
	}

	return Message{
		From:        from,
		To:          recipients,
		Subject:     opts.Subject,
		Body:        opts.Body,
		ContentType: contentType,
		ReplyTo:     strings.TrimSpace(opts.ReplyTo),
	}, nil
}
