package app

import (
	"strings"

	"github.com/gatehouse-dev/gatehouse/internal/app/maintenance"
)

// CleanerOptions converts MaintenanceConfig into cleaner options. Empty
// schedules keep the cleaner defaults.
func (c MaintenanceConfig) CleanerOptions() []maintenance.Option {
	var opts []maintenance.Option
	if spec := strings.TrimSpace(c.ExpiredSchedule); spec != "" {
		opts = append(opts, maintenance.WithExpiredSchedule(spec))
	}
	if spec := strings.TrimSpace(c.RejectedSchedule); spec != "" {
		opts = append(opts, maintenance.WithRejectedSchedule(spec))
	}
	if !c.DeleteRejected {
		opts = append(opts, maintenance.WithRejectedSweep(false))
	}
	return opts
}
