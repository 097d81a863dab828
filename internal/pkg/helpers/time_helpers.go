package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses s, or returns def when s is empty or malformed.
// It runs while config is loaded, so it logs through the global logger.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Warn().Err(err).Str("value", s).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}
