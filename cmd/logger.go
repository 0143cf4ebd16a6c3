package cmd

import (
	"log/slog"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/webitel/typing-tournament/config"
)

// ProvideLogger builds the process-wide *slog.Logger. When cfg.LogFile is
// set it writes JSON to a rotating file sink instead of stdout, so an
// operator can ship logs off-box without an external log-collector sidecar.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.LogFile != "" {
		sink := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		handler = slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
