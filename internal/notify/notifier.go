// Package notify renders and delivers the workflow emails: registration
// received, acceptance with the activation link, rejection, and activation
// confirmation.
package notify

import (
	"context"
	"fmt"

	"github.com/gatehouse-dev/gatehouse/internal/models"
)

// Event identifies one of the workflow notifications.
type Event string

const (
	EventRegistration Event = "registration"
	EventAcceptance   Event = "acceptance"
	EventRejection    Event = "rejection"
	EventActivation   Event = "activation"
)

// Site describes the public identity used in notification content and links.
type Site struct {
	Name   string
	Domain string
	Scheme string
}

// ActivationURL renders the public activation link for a key.
func (s Site) ActivationURL(key string) string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/activate/%s", scheme, s.Domain, key)
}

// Data is the rendering context shared by all notification templates. Fields
// that do not apply to an event are left at their zero values.
type Data struct {
	Account *models.Account
	Site    Site

	ActivationKey  string
	ActivationURL  string
	ExpirationDays int

	// Message is free-form text an inspector attached to the decision.
	Message string

	// Password is only set for activation notices, and Generated only when
	// the password was drawn for the registrant rather than chosen.
	Password  string
	Generated bool
}

// Notifier delivers workflow notifications to registrants.
type Notifier interface {
	RegistrationReceived(ctx context.Context, data Data) error
	RegistrationAccepted(ctx context.Context, data Data) error
	RegistrationRejected(ctx context.Context, data Data) error
	AccountActivated(ctx context.Context, data Data) error
}

// Nop returns a Notifier that discards every notification.
func Nop() Notifier {
	return nopNotifier{}
}

type nopNotifier struct{}

func (nopNotifier) RegistrationReceived(context.Context, Data) error { return nil }
func (nopNotifier) RegistrationAccepted(context.Context, Data) error { return nil }
func (nopNotifier) RegistrationRejected(context.Context, Data) error { return nil }
func (nopNotifier) AccountActivated(context.Context, Data) error     { return nil }
