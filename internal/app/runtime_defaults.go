package app

import (
	"fmt"
	"strings"

	"github.com/gatehouse-dev/gatehouse/pkg/crypto"
)

// jwtSecretBytes sizes the generated signing secret before encoding.
const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills in secrets left blank so the server can start
// from an empty configuration. It reports the config keys it populated;
// callers log the key names, never the values.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	var generated []string

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}

	return generated, nil
}
