package app

import "strings"

import "github.com/gatehouse-dev/gatehouse/pkg/logger"

// ConfigureLogging initialises the global logger with the provided level and
// format, defaulting to info level json output.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, strings.TrimSpace(format))
}
