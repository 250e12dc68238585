package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/gatehouse-dev/gatehouse/pkg/mail"
)

// EmailNotifier renders templates and hands the result to a Mailer.
type EmailNotifier struct {
	mailer    mail.Mailer
	site      Site
	from      string
	replyTo   string
	templates map[Event]*templateSet
}

type templateSet struct {
	subject *template.Template
	body    *template.Template
}

// EmailOption customises an EmailNotifier.
type EmailOption func(*emailConfig)

type emailConfig struct {
	from      string
	replyTo   string
	overrides map[Event][2]string
}

// WithFrom sets the sender address for all notifications.
func WithFrom(address string) EmailOption {
	return func(cfg *emailConfig) {
		cfg.from = address
	}
}

// WithReplyTo sets a Reply-To header for all notifications.
func WithReplyTo(address string) EmailOption {
	return func(cfg *emailConfig) {
		cfg.replyTo = address
	}
}

// WithTemplate replaces the subject and body template source for one event.
func WithTemplate(event Event, subject, body string) EmailOption {
	return func(cfg *emailConfig) {
		if cfg.overrides == nil {
			cfg.overrides = make(map[Event][2]string)
		}
		cfg.overrides[event] = [2]string{subject, body}
	}
}

// NewEmailNotifier builds a notifier over the given mailer and site identity.
func NewEmailNotifier(mailer mail.Mailer, site Site, opts ...EmailOption) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("notify: mailer is required")
	}
	if strings.TrimSpace(site.Domain) == "" {
		return nil, errors.New("notify: site domain is required")
	}

	cfg := emailConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	sources := map[Event][2]string{
		EventRegistration: {defaultRegistrationSubject, defaultRegistrationBody},
		EventAcceptance:   {defaultAcceptanceSubject, defaultAcceptanceBody},
		EventRejection:    {defaultRejectionSubject, defaultRejectionBody},
		EventActivation:   {defaultActivationSubject, defaultActivationBody},
	}
	for event, override := range cfg.overrides {
		if _, ok := sources[event]; !ok {
			return nil, fmt.Errorf("notify: unknown event %q", event)
		}
		sources[event] = override
	}

	templates := make(map[Event]*templateSet, len(sources))
	for event, source := range sources {
		subject, err := template.New(string(event) + "_subject").Parse(source[0])
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s subject: %w", event, err)
		}
		body, err := template.New(string(event) + "_body").Parse(source[1])
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s body: %w", event, err)
		}
		templates[event] = &templateSet{subject: subject, body: body}
	}

	return &EmailNotifier{
		mailer:    mailer,
		site:      site,
		from:      cfg.from,
		replyTo:   cfg.replyTo,
		templates: templates,
	}, nil
}

func (n *EmailNotifier) RegistrationReceived(ctx context.Context, data Data) error {
	return n.send(ctx, EventRegistration, data)
}

func (n *EmailNotifier) RegistrationAccepted(ctx context.Context, data Data) error {
	return n.send(ctx, EventAcceptance, data)
}

func (n *EmailNotifier) RegistrationRejected(ctx context.Context, data Data) error {
	return n.send(ctx, EventRejection, data)
}

func (n *EmailNotifier) AccountActivated(ctx context.Context, data Data) error {
	return n.send(ctx, EventActivation, data)
}

func (n *EmailNotifier) send(ctx context.Context, event Event, data Data) error {
	if data.Account == nil {
		return errors.New("notify: account is required")
	}

	data.Site = n.site
	if data.ActivationKey != "" && data.ActivationURL == "" {
		data.ActivationURL = n.site.ActivationURL(data.ActivationKey)
	}

	set := n.templates[event]

	var subject bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return fmt.Errorf("notify: render %s subject: %w", event, err)
	}

	var body bytes.Buffer
	if err := set.body.Execute(&body, data); err != nil {
		return fmt.Errorf("notify: render %s body: %w", event, err)
	}

	msg := mail.Message{
		From:    n.from,
		To:      []string{data.Account.Email},
		ReplyTo: n.replyTo,
		Subject: singleLine(subject.String()),
		Body:    body.String(),
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %s email: %w", event, err)
	}
	return nil
}

// singleLine joins a possibly multi-line rendering into one header line.
func singleLine(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return strings.TrimSpace(value)
}
