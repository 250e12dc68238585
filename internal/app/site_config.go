package app

import (
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/notify"
)

// Identity converts SiteConfig to the notify package representation.
func (c SiteConfig) Identity() notify.Site {
	return notify.Site{
		Name:   strings.TrimSpace(c.Name),
		Domain: strings.TrimSpace(c.Domain),
		Scheme: strings.TrimSpace(c.Scheme),
	}
}
