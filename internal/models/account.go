package models

import "time"

// Account is a registered person. Accounts are created inactive with
// unusable credentials; both change when the registrant activates.
type Account struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	// PasswordHash is empty until activation. Empty means no password
	// login is possible.
	PasswordHash string `json:"-"`

	IsActive bool `gorm:"default:false" json:"is_active"`

	// IsStaff marks inspector accounts. Staff accounts are provisioned at
	// startup, never through registration.
	IsStaff bool `gorm:"default:false" json:"is_staff"`

	// JoinedAt is stamped at registration and restamped when an inspector
	// accepts the profile. It anchors the activation window.
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

// HasUsablePassword reports whether the account can authenticate with a
// password at all.
func (a *Account) HasUsablePassword() bool {
	return a.PasswordHash != ""
}
