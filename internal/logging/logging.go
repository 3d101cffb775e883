package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

const (
	// DefaultLogFilename is written to the working directory unless
	// configured otherwise.
	DefaultLogFilename = "qrtransfer.log"

	DefaultLevel = "info"

	rotateThresholdKB = 10 * 1024
	maxRolls          = 3
)

// Subsystem tags
const (
	SubsystemMain    = "QRTR"
	SubsystemEncoder = "ENCD"
	SubsystemDecoder = "DECD"
)

// Config selects the sinks of a Backend
type Config struct {
	// Console receives log lines at ConsoleLevel and above. Nil disables it.
	Console io.Writer

	// ConsoleLevel is one of trace, debug, info, warn, error, critical, off.
	ConsoleLevel string

	// LogFile receives every line at debug level and above. Empty disables it.
	LogFile string
}

// Backend owns the console and file sinks and hands out subsystem loggers
// that write to both.
type Backend struct {
	console *btclog.Backend
	file    *btclog.Backend
	rotator *rotator.Rotator
	level   btclog.Level
	loggers map[string]*teeLogger
}

// New creates a Backend. The log file's directory is created if needed.
func New(cfg Config) (*Backend, error) {
	level := cfg.ConsoleLevel
	if level == "" {
		level = DefaultLevel
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		level:   lvl,
		loggers: make(map[string]*teeLogger),
	}
	if cfg.Console != nil {
		b.console = btclog.NewBackend(cfg.Console)
	}

	if cfg.LogFile != "" {
		logDir, _ := filepath.Split(cfg.LogFile)
		if logDir != "" {
			if err := os.MkdirAll(logDir, 0700); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		r, err := rotator.New(cfg.LogFile, rotateThresholdKB, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %w", err)
		}
		b.rotator = r
		b.file = btclog.NewBackend(r)
	}

	return b, nil
}

// Logger returns the logger for a subsystem, creating it on first use.
func (b *Backend) Logger(subsystem string) btclog.Logger {
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}

	l := &teeLogger{}
	if b.console != nil {
		l.console = b.console.Logger(subsystem)
		l.console.SetLevel(b.level)
	}
	if b.file != nil {
		l.file = b.file.Logger(subsystem)
		l.file.SetLevel(btclog.LevelDebug)
	}
	b.loggers[subsystem] = l
	return l
}

// Close flushes and closes the log file.
func (b *Backend) Close() error {
	if b.rotator == nil {
		return nil
	}
	return b.rotator.Close()
}

// ParseLevel converts a level name to a btclog.Level.
func ParseLevel(level string) (btclog.Level, error) {
	lvl, ok := btclog.LevelFromString(level)
	if !ok {
		return btclog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of %s",
			level, strings.Join(SupportedLevels(), ", "))
	}
	return lvl, nil
}

// SupportedLevels returns the accepted level names.
func SupportedLevels() []string {
	return []string{"trace", "debug", "info", "warn", "error", "critical", "off"}
}
