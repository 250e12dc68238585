package app

import (
	"time"

	"github.com/gatehouse-dev/gatehouse/internal/services"
)

// ServiceOptions converts RegistrationConfig into registration service options.
// Zero values fall through to the service defaults.
func (c RegistrationConfig) ServiceOptions() []services.RegistrationOption {
	opts := []services.RegistrationOption{
		services.WithRegistrationOpen(c.Open),
	}
	if c.ActivationDays > 0 {
		opts = append(opts, services.WithActivationWindow(time.Duration(c.ActivationDays)*24*time.Hour))
	}
	if c.PasswordLength > 0 {
		opts = append(opts, services.WithGeneratedPasswordLength(c.PasswordLength))
	}
	return opts
}
