package lib

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LogDirectory = "logs"
	LogFileName  = "sortition.log"
)

/*
	This file implements a leveled logger (Debug, Info, Warn, Error, Fatal) with colored output.
	Logs are written to stdout and, unless an explicit writer is configured, to an auto-rotating file in the data directory.
	WithModule() derives a logger that tags every line with the emitting component.
*/

func init() {
	color.NoColor = false
}

// LoggerI defines the interface for various logging levels and formatted output
type LoggerI interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithModule(module string) LoggerI
}

const (
	DebugLevel int32 = -4
	InfoLevel  int32 = 0
	WarnLevel  int32 = 4
	ErrorLevel int32 = 8
)

var _ LoggerI = &Logger{}

// LoggerConfig holds the level, the output and the rotation policy of the log file
type LoggerConfig struct {
	Level      int32 `json:"level"`
	Out        io.Writer
	MaxSizeMB  int // rotate after this many megabytes
	MaxBackups int // rotated files to keep
	MaxAgeDays int // days to keep rotated files
}

// Logger is the concrete implementation of LoggerI
type Logger struct {
	config LoggerConfig
	module string
}

func (l *Logger) Debug(msg string) { l.log(DebugLevel, msg) }
func (l *Logger) Info(msg string)  { l.log(InfoLevel, msg) }
func (l *Logger) Warn(msg string)  { l.log(WarnLevel, msg) }
func (l *Logger) Error(msg string) { l.log(ErrorLevel, msg) }

// Fatal() logs an error message and terminates the program
func (l *Logger) Fatal(msg string) {
	l.write(color.RedString("FATAL: " + l.prefix() + msg))
	os.Exit(1)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(DebugLevel, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(InfoLevel, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(WarnLevel, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(ErrorLevel, format, args...) }

// Fatalf() logs a formatted error message and terminates the program
func (l *Logger) Fatalf(format string, args ...interface{}) { l.Fatal(fmt.Sprintf(format, args...)) }

// WithModule() returns a logger sharing this one's configuration that tags lines with a module name
func (l *Logger) WithModule(module string) LoggerI {
	return &Logger{config: l.config, module: module}
}

// logf() formats then logs at a level
func (l *Logger) logf(level int32, format string, args ...interface{}) {
	if l.config.Level <= level {
		l.log(level, fmt.Sprintf(format, args...))
	}
}

// log() filters by level and colors each line of the message
func (l *Logger) log(level int32, msg string) {
	if l.config.Level > level {
		return
	}
	var label string
	var paint func(format string, a ...interface{}) string
	switch {
	case level >= ErrorLevel:
		label, paint = "ERROR: ", color.RedString
	case level >= WarnLevel:
		label, paint = "WARN: ", color.YellowString
	case level >= InfoLevel:
		label, paint = "INFO: ", color.GreenString
	default:
		label, paint = "DEBUG: ", color.BlueString
	}
	lines := strings.Split(label+l.prefix()+msg, "\n")
	for i, line := range lines {
		lines[i] = paint("%s", line)
	}
	l.write(strings.Join(lines, "\n"))
}

// prefix() is the module tag
func (l *Logger) prefix() string {
	if l.module == "" {
		return ""
	}
	return "[" + l.module + "] "
}

// write() outputs the log message with a timestamp to the configured writer
func (l *Logger) write(msg string) {
	timestamp := color.HiBlackString(time.Now().Format(time.StampMilli))
	if _, err := fmt.Fprintf(l.config.Out, "%s %s\n", timestamp, msg); err != nil {
		fmt.Println(color.RedString("log write failed: %s", err.Error()))
	}
}

// NewLogger() creates a Logger; without an explicit writer it logs to stdout and a rotating file under dataDirPath
func NewLogger(config LoggerConfig, dataDirPath ...string) LoggerI {
	if config.Out == nil {
		dir := DefaultDataDirPath()
		if len(dataDirPath) != 0 && dataDirPath[0] != "" {
			dir = dataDirPath[0]
		}
		logDir := filepath.Join(dir, LogDirectory)
		if _, err := os.Stat(logDir); errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(logDir, os.ModePerm); err != nil {
				panic(err)
			}
		}
		config.Out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(logDir, LogFileName),
			MaxSize:    max(config.MaxSizeMB, 1),
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   true,
		})
	}
	return &Logger{config: config}
}

// NewDefaultLogger() creates a Logger at the Debug level writing to stdout
func NewDefaultLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: os.Stdout})
}

// NewNullLogger() creates a Logger that discards all output
func NewNullLogger() LoggerI {
	return NewLogger(LoggerConfig{Level: DebugLevel, Out: io.Discard})
}
