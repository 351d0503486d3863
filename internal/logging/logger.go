// Package logging provides structured logging for the CLI, GUI and TUI front ends.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/objectdesk/objectdesk/internal/events"
)

// Logger is a zerolog logger tagged with a component. Warnings and errors
// are mirrored onto the event bus, when one is given, so the GUI activity
// log shows them.
type Logger struct {
	zlog      zerolog.Logger
	component string
	eventBus  *events.EventBus
}

var (
	consoleMu  sync.RWMutex
	consoleOut io.Writer = os.Stderr
)

// SetConsoleOutput changes where newly created loggers write their console output.
// The TUI points this at a file or io.Discard so log lines do not corrupt the screen.
func SetConsoleOutput(w io.Writer) {
	consoleMu.Lock()
	defer consoleMu.Unlock()
	consoleOut = w
}

func consoleWriter() io.Writer {
	consoleMu.RLock()
	defer consoleMu.RUnlock()
	return consoleOut
}

// NewLogger creates a logger for component. eventBus may be nil.
// When file logging is enabled, output is duplicated into the rotating log file.
func NewLogger(component string, eventBus *events.EventBus) *Logger {
	l := &Logger{component: component, eventBus: eventBus}
	l.SetOutput(consoleWriter())
	return l
}

// SetOutput replaces the console writer, keeping the file log and bus hook.
func (l *Logger) SetOutput(w io.Writer) {
	zl := zerolog.New(buildOutput(w)).With().Timestamp().Str("component", l.component).Logger()
	if l.eventBus != nil {
		zl = zl.Hook(busHook{bus: l.eventBus, component: l.component})
	}
	l.zlog = zl
}

func buildOutput(w io.Writer) io.Writer {
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	if fw := fileWriter(); fw != nil {
		return zerolog.MultiLevelWriter(console, fw)
	}
	return console
}

// busHook publishes warn and error messages as events.LogEvent.
type busHook struct {
	bus       *events.EventBus
	component string
}

func (h busHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" || level < zerolog.WarnLevel || level > zerolog.PanicLevel {
		return
	}
	lvl := events.WarnLevel
	if level >= zerolog.ErrorLevel {
		lvl = events.ErrorLevel
	}
	h.bus.PublishLog(lvl, msg, h.component)
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
