// Package logging provides named component loggers that share one zap core
// per process. Entries go to ~/.domscope/logs/<session-id>-domscope.log and,
// optionally, to stderr. stdout is never written: it carries the MCP stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by Options.
const (
	LevelNone   = "none"
	LevelNormal = "normal"
	LevelDebug  = "debug"
)

// Options configures the process-wide log sinks.
type Options struct {
	// FileLevel is the file sink level: none, normal or debug.
	FileLevel string
	// ConsoleLevel is the stderr sink level: none, normal or debug.
	ConsoleLevel string
	// Path overrides the log file location.
	Path string
	// Console overrides the console destination (stderr by default).
	Console io.Writer
}

// Logger writes entries for one component.
type Logger struct {
	component string
	sugar     *zap.SugaredLogger
}

var (
	mu      sync.Mutex
	root    *zap.Logger
	logFile *os.File
	logPath string

	sessionID     string
	sessionIDOnce sync.Once
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// DefaultPath returns ~/.domscope/logs/<session-id>-domscope.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".domscope", "logs", getSessionID()+"-domscope.log"), nil
}

func levelEnabler(name string) (zapcore.LevelEnabler, bool, error) {
	switch name {
	case LevelNone:
		return nil, false, nil
	case LevelNormal, "":
		return zap.NewAtomicLevelAt(zap.InfoLevel), true, nil
	case LevelDebug:
		return zap.NewAtomicLevelAt(zap.DebugLevel), true, nil
	default:
		return nil, false, fmt.Errorf("unknown log level %q (want none, normal or debug)", name)
	}
}

// Configure replaces the process-wide sinks. Loggers created before the
// call keep writing to the previous sinks.
func Configure(opts Options) error {
	fileLevel, fileOn, err := levelEnabler(opts.FileLevel)
	if err != nil {
		return err
	}
	consoleLevel, consoleOn, err := levelEnabler(opts.ConsoleLevel)
	if err != nil {
		return err
	}
	if opts.ConsoleLevel == "" {
		consoleOn = false
	}

	cores := make([]zapcore.Core, 0, 2)
	var (
		file *os.File
		path string
	)
	if fileOn {
		path = opts.Path
		if path == "" {
			if path, err = DefaultPath(); err != nil {
				return err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeCaller = nil
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(file), fileLevel))
	}
	if consoleOn {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeCaller = nil
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(out), consoleLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...)).With(zap.String("session", getSessionID()))

	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
	root, logFile, logPath = logger, file, path
	return nil
}

// NewLogger creates a logger for a component. If Configure has not been
// called, the default file sink is set up first; when that fails the
// logger falls back to stderr and the error is returned alongside it.
func NewLogger(component string) (*Logger, error) {
	mu.Lock()
	configured := root != nil
	mu.Unlock()

	var initErr error
	if !configured {
		if initErr = Configure(Options{FileLevel: LevelNormal}); initErr != nil {
			_ = Configure(Options{FileLevel: LevelNone, ConsoleLevel: LevelNormal})
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return &Logger{component: component, sugar: root.Named(component).Sugar()}, initErr
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{component: "nop", sugar: zap.NewNop().Sugar()}
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) { l.sugar.Infof(format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) { l.sugar.Warnf(format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }

// With returns a logger that adds key/value pairs to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{component: l.component, sugar: l.sugar.With(keysAndValues...)}
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return getSessionID()
}

// LogPath returns the path of the log file, or "" when file logging is off.
func (l *Logger) LogPath() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// Shutdown flushes and closes the process-wide sinks.
func Shutdown() error {
	mu.Lock()
	defer mu.Unlock()

	var err error
	if root != nil {
		_ = root.Sync()
	}
	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}
	root = zap.NewNop()
	logPath = ""
	return err
}
