// Package logging sets up the core's process-level diagnostic logger: a
// structured, day-rolling event log in the style of apps/rtcmlogger's
// eventLogger, generalised from that program's single hardcoded logger to a
// small Config a process entry point builds from its own JSON config file.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goblimey/go-tools/dailylogger"
)

// Config describes where and how verbosely the core should log. The zero
// value logs Info and above to stderr, matching the firmware's behaviour
// before a log directory has been configured.
type Config struct {
	// Directory holds the day-rolling log files. Empty means log to
	// stderr instead of a file.
	Directory string

	// Prefix and Suffix name each day's file, e.g. "tracker." and ".log"
	// produce "tracker.20260729.log", following dailylogger's own
	// datestamp-in-the-middle convention.
	Prefix string
	Suffix string

	// Level sets the minimum record level. Defaults to slog.LevelInfo.
	Level slog.Level

	// AddSource annotates each record with its call site, useful during
	// bring-up and left off in normal running.
	AddSource bool
}

// New builds the process event logger described by cfg. It never returns
// an error: a missing or unwritable log directory falls back to stderr
// rather than leaving the process without any diagnostics at all.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	if cfg.Directory == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	probe, err := os.CreateTemp(cfg.Directory, ".probe-*")
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	probe.Close()
	os.Remove(probe.Name())

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "tracker-core."
	}
	suffix := cfg.Suffix
	if suffix == "" {
		suffix = ".log"
	}

	w := dailylogger.New(cfg.Directory, prefix, suffix)
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithService returns a child logger tagging every record with the
// originating service, matching the firmware's practice of prefixing event
// log lines with the module that raised them.
func WithService(log *slog.Logger, service string) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	return log.With(slog.String("service", service))
}

// FormatStartupBanner renders the one-line startup record a process entry
// point logs before entering its run loop, naming the unit's Argos DEC and
// HEX ids (the ARGOS_DECID/ARGOS_HEXID parameters PARMR reads back).
func FormatStartupBanner(decID, hexID uint32) string {
	return fmt.Sprintf("tracker-core starting, dec_id=%d hex_id=%d", decID, hexID)
}
