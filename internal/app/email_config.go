package app

import (
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/notify"
	"github.com/gatehouse-dev/gatehouse/pkg/mail"
)

// MailSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) MailSettings() mail.Settings {
	return mail.Settings{
		Backend: c.Backend,
		From:    c.From,
		ReplyTo: c.ReplyTo,
		SMTP: mail.SMTPSettings{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.From,
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.SMTP.Timeout,
		},
	}
}

// NotifierOptions derives the notifier options for the configured addresses.
func (c EmailConfig) NotifierOptions() []notify.EmailOption {
	var opts []notify.EmailOption
	if from := strings.TrimSpace(c.From); from != "" {
		opts = append(opts, notify.WithFrom(from))
	}
	if replyTo := strings.TrimSpace(c.ReplyTo); replyTo != "" {
		opts = append(opts, notify.WithReplyTo(replyTo))
	}
	return opts
}
