package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// IsTraceEnabled gates route-table dumps and other verbose diagnostics.
func IsTraceEnabled() bool {
	return os.Getenv("STATELY_TRACE") != ""
}
