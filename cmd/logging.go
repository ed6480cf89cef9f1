package cmd

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newMigrationLogger builds the structured logger behind §6's optional
// migration.log: one JSON line per executor lifecycle event, written
// through a rotating file writer so a long-running tenant fan-out never
// fills a disk. Returns nil when path is empty, meaning logToFile wasn't
// requested.
func newMigrationLogger(path string) *slog.Logger {
	if path == "" {
		return nil
	}
	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(writer, nil))
}
