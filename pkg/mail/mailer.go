package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// ErrDisabled signals that mail delivery is switched off via configuration.
// Callers that treat delivery as optional should tolerate this error.
var ErrDisabled = errors.New("mail: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Supported backend names for New.
const (
	BackendSMTP     = "smtp"
	BackendLog      = "log"
	BackendDisabled = "disabled"
)

// Settings selects and configures a delivery backend.
type Settings struct {
	Backend string
	From    string
	ReplyTo string
	SMTP    SMTPSettings
}

// New constructs the mailer selected by cfg.Backend. The log backend writes
// messages to the supplied logger instead of delivering them, which is the
// intended mode for local development.
func New(cfg Settings, log *zap.Logger) (Mailer, error) {
	switch cfg.Backend {
	case BackendSMTP:
		return NewSMTPMailer(cfg.SMTP)
	case BackendLog:
		return NewLogMailer(log), nil
	case BackendDisabled, "":
		return Disabled(), nil
	default:
		return nil, fmt.Errorf("mail: unknown backend %q", cfg.Backend)
	}
}

// Disabled returns a Mailer whose Send always reports ErrDisabled.
func Disabled() Mailer {
	return disabledMailer{}
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, Message) error {
	return ErrDisabled
}

// LogMailer records messages on a logger. No delivery takes place.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	recipients, err := checkEnvelope(msg)
	if err != nil {
		return err
	}

	m.log.Info("outbound mail",
		zap.String("from", msg.From),
		zap.Strings("to", recipients),
		zap.String("subject", sanitizeHeader(msg.Subject)))
	m.log.Debug("outbound mail body", zap.String("body", msg.Body))
	return nil
}

// checkEnvelope validates the sender and recipient addresses and returns the
// deduplicated recipient list.
func checkEnvelope(msg Message) ([]string, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return nil, errors.New("mail: at least one recipient is required")
	}

	if strings.TrimSpace(msg.From) == "" {
		return nil, errors.New("mail: sender address is required")
	}
	if _, err := mail.ParseAddress(msg.From); err != nil {
		return nil, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return nil, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}
	return recipients, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

// sanitizeHeader folds newlines out of header values.
func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
