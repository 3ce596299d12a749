package util

import (
	"os"
	"strings"

	"github.com/mxcd/go-config/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

func InitLogger() error {
	zerolog.SetGlobalLevel(ParseLogLevel(config.Get().String("LOG_LEVEL")))
	setLogOutput(config.Get().Bool("DEV"))
	return nil
}

func setLogOutput(dev bool) {
	const timeLayout = "2006-01-02T15:04:05.000Z07:00"
	zerolog.TimeFieldFormat = timeLayout
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	if dev {
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			NoColor:    false,
			TimeFormat: timeLayout,
		}).With().Caller().Logger()
	} else {
		log.Logger = log.Logger.With().Caller().Logger()
	}
}

// ParseLogLevel maps LOG_LEVEL to a zerolog level. Unknown values fall back to info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "err", "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
