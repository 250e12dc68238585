package app

import (
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/auth"
	"github.com/gatehouse-dev/gatehouse/internal/services"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	return auth.TokenConfig{
		Secret:   c.JWT.Secret,
		Issuer:   c.JWT.Issuer,
		TokenTTL: ttl,
	}
}

// InspectorInput converts the inspector bootstrap settings for EnsureInspector.
func (c AuthConfig) InspectorInput() services.InspectorInput {
	return services.InspectorInput{
		Username: strings.TrimSpace(c.Inspector.Username),
		Email:    strings.TrimSpace(c.Inspector.Email),
		Password: c.Inspector.Password,
	}
}
