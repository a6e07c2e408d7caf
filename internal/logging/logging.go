// Package logging builds the zap logger shared by the scheduler server and
// the trace CLI, matching the encoder setup the teacher's HTTP server uses.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a development-style zap logger. Level encoding is colorized
// when stderr is a terminal and plain otherwise, so piping a trace run to a
// file or CI log doesn't end up full of ANSI escapes.
func New(name string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true

	if isatty.IsTerminal(os.Stderr.Fd()) {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	log := zap.Must(cfg.Build())
	return log.Named(name)
}
