package commands

import (
	"log"
	"os"
)

// logger is the single process-wide logger every subcommand writes
// through, matching the teacher's preference for one stderr logger per
// binary rather than per-package loggers. Verbose wires microsecond
// timestamps in on top of the "[basm] " prefix; quiet mode keeps the
// prefix alone so cache/log lines stay recognizable in a pipeline.
var logger = log.New(os.Stderr, "[basm] ", 0)

// SetVerbose turns on microsecond timestamps for subsequent log lines.
func SetVerbose(v bool) {
	if v {
		logger.SetFlags(log.Lmicroseconds)
	} else {
		logger.SetFlags(0)
	}
}
