package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crytic/medusa-debugger/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured when a debugger is created. Each
// package should create its own sub-logger from it.
var GlobalLogger *Logger

// Logger describes a custom logging object that can log events to any arbitrary channel in a structured format and
// can additionally print unstructured, colorized output to console.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// structuredLogger outputs JSON log events to every writer in writers.
	structuredLogger zerolog.Logger

	// consoleLogger outputs unstructured, colorized log events to stdout.
	consoleLogger zerolog.Logger

	// consoleEnabled describes whether consoleLogger emits anything.
	consoleEnabled bool

	// writers describes the io.Writer objects structured log output is sent to. It is shared with every sub-logger.
	writers *writerSet

	// fields describes the key-value context every log event of this logger carries.
	fields map[string]string
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger creates a new Logger with a specific log level. The Logger can output to console, if enabled, and to any
// number of arbitrary io.Writer channels.
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	l := &Logger{
		level:          level,
		consoleEnabled: consoleEnabled,
		writers:        newWriterSet(writers...),
		fields:         make(map[string]string),
	}
	l.rebuild()
	return l
}

// rebuild recreates the underlying zerolog loggers from the current level and context fields.
func (l *Logger) rebuild() {
	// The console logger is disabled so a Logger without console output never dereferences nil
	structured := zerolog.New(l.writers).Level(l.level).With().Timestamp().Logger()
	console := zerolog.New(io.Discard).Level(zerolog.Disabled)

	if l.consoleEnabled {
		console = zerolog.New(setupDefaultFormatting(zerolog.ConsoleWriter{Out: os.Stdout}, l.level)).Level(l.level)
	}

	for key, value := range l.fields {
		structured = structured.With().Str(key, value).Logger()
		console = console.With().Str(key, value).Logger()
	}

	l.structuredLogger = structured
	l.consoleLogger = console
}

// NewSubLogger creates a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have its own logger so that log output is "grep-able" by some key. The sub-logger
// shares its writers with l.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	fields := make(map[string]string, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	sub := &Logger{
		level:          l.level,
		consoleEnabled: l.consoleEnabled,
		writers:        l.writers,
		fields:         fields,
	}
	sub.rebuild()
	return sub
}

// AddWriter adds a writer to the list of channels where log output will be sent. Adding a writer twice is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	// Unstructured output to a writer is a console writer without ANSI coloring
	output := writer
	if format == UNSTRUCTURED {
		output = zerolog.ConsoleWriter{Out: writer, NoColor: true}
	}
	l.writers.add(writer, output)
}

// RemoveWriter removes a writer from the list of writers that the logger manages. If the writer does not exist, this
// function is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer) {
	l.writers.remove(writer)
}

// Level returns the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel updates the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.structuredLogger = l.structuredLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace logs a trace event
func (l *Logger) Trace(args ...any) {
	l.log(l.consoleLogger.Trace(), l.structuredLogger.Trace(), l.level <= zerolog.DebugLevel, args...)
}

// Debug logs a debug event
func (l *Logger) Debug(args ...any) {
	l.log(l.consoleLogger.Debug(), l.structuredLogger.Debug(), l.level <= zerolog.DebugLevel, args...)
}

// Info logs an info event
func (l *Logger) Info(args ...any) {
	l.log(l.consoleLogger.Info(), l.structuredLogger.Info(), l.level <= zerolog.DebugLevel, args...)
}

// Warn logs a warning event
func (l *Logger) Warn(args ...any) {
	l.log(l.consoleLogger.Warn(), l.structuredLogger.Warn(), l.level <= zerolog.DebugLevel, args...)
}

// Error logs an error event
func (l *Logger) Error(args ...any) {
	l.log(l.consoleLogger.Error(), l.structuredLogger.Error(), l.level <= zerolog.DebugLevel, args...)
}

// log builds the console and structured messages from args, chains any error and StructuredLogInfo provided, and
// sends both events.
func (l *Logger) log(consoleLog *zerolog.Event, structuredLog *zerolog.Event, withStack bool, args ...any) {
	consoleMsg, structuredMsg, err, info := buildMsgs(args...)

	// Err is safe to call with a nil error
	consoleLog.Err(err)
	structuredLog.Err(err)
	if withStack {
		consoleLog.Stack()
		structuredLog.Stack()
	}

	if info != nil {
		consoleLog.Any("info", info)
		structuredLog.Any("info", info)
	}

	structuredLog.Msg(structuredMsg)
	consoleLog.Msg(consoleMsg)
}

// buildMsgs takes a variadic list of arguments of any type and returns a colorized string for console output, a
// plain string for structured output and, optionally, an error and a StructuredLogInfo object. Only one error and one
// StructuredLogInfo may be provided per log message; later ones replace earlier ones.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	consoleOutput := make([]string, 0, len(args))
	structuredOutput := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			info = t
		case error:
			err = t
		default:
			consoleOutput = append(consoleOutput, colorCtx(t))
			structuredOutput = append(structuredOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(consoleOutput, ""), strings.Join(structuredOutput, ""), err, info
}

// setupDefaultFormatting updates the console writer's formatting: no timestamps, and a colored marker per level.
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	writer.FormatTimestamp = func(i any) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		switch parsed {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return colors.RedBold(zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return colors.RedBold(zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return colors.RedBold(zerolog.LevelPanicValue)
		default:
			return levelStr
		}
	}

	// Above debug level, the module context is noise on console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
