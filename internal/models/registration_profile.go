package models

import (
	"gorm.io/datatypes"

	"github.com/gatehouse-dev/gatehouse/internal/registration"
)

// RegistrationProfile tracks the inspection status of one account. A profile
// exists from registration until activation, at which point it is deleted and
// only the account remains.
type RegistrationProfile struct {
	BaseModel

	AccountID string   `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	Account   *Account `json:"account,omitempty"`

	// Status holds persistable statuses only. Expiry is derived on read
	// from the account join time, never stored.
	Status registration.Status `gorm:"not null;default:untreated;index" json:"status"`

	// ActivationKey is present exactly while the profile is accepted.
	ActivationKey *string `gorm:"size:40;index" json:"-"`

	// Supplement carries extra registrant-submitted fields for the
	// inspector to review alongside the username and email.
	Supplement datatypes.JSON `json:"supplement,omitempty"`
}

// State exposes the transition-relevant slice of the profile.
func (p *RegistrationProfile) State() registration.State {
	return registration.State{
		Status:        p.Status,
		ActivationKey: p.Key(),
	}
}

// Key returns the activation key, or empty when none is held.
func (p *RegistrationProfile) Key() string {
	if p.ActivationKey == nil {
		return ""
	}
	return *p.ActivationKey
}

// SetKey stores key on the profile, treating empty as absent.
func (p *RegistrationProfile) SetKey(key string) {
	if key == "" {
		p.ActivationKey = nil
		return
	}
	p.ActivationKey = &key
}
