package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// init instantiates the global logger and sets up some global parameters from the zerolog package.
func init() {
	// The global logger is disabled until a debugger configures it
	GlobalLogger = NewLogger(zerolog.Disabled, false)

	// Setup stack trace support and set the timestamp format to UNIX
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
