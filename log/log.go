//  Copyright (c) 2014 Couchbase, Inc.

// Package log implement leveled logging for the memory manager. The
// interface follows github.com/bnclabs/golog so that applications already
// integrated with golog can plug their logger via SetLogger().
package log

import "io"
import "os"
import "fmt"
import "time"
import "strings"

var timeformat, prefix = "2006-01-02T15:04:05.999Z-07:00", "[%v]"

func init() {
	SetLogger(nil, Defaultsettings())
}

// Logger interface for application logging, applications can supply a
// logger object implementing this interface, otherwise defaultLogger{}
// is used.
type Logger interface {
	// SetLogLevel can be one of the following: "ignore", "fatal",
	// "error", "warn", "info", "verbose", "debug", "trace"
	SetLogLevel(string)
	Fatalf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Verbosef(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Tracef(format string, v ...interface{})
	Printlf(loglevel LogLevel, format string, v ...interface{})
}

// LogLevel defines log level.
type LogLevel int

const (
	logLevelIgnore LogLevel = iota + 1
	logLevelFatal
	logLevelError
	logLevelWarn
	logLevelInfo
	logLevelVerbose
	logLevelDebug
	logLevelTrace
)

var log Logger

// Defaultsettings for the default logger.
//
// "log.level" (string, default: "info")
//		One of "ignore", "fatal", "error", "warn", "info", "verbose",
//		"debug", "trace".
//
// "log.file" (string, default: "")
//		Log file to append to, empty string logs to os.Stdout.
//
// "log.timeformat" (string, default: "2006-01-02T15:04:05.999Z-07:00")
//		Time format for every log line, empty string skips the timestamp.
//
// "log.prefix" (string, default: "[%v]")
//		Format for the log-level prefix.
func Defaultsettings() map[string]interface{} {
	return map[string]interface{}{
		"log.level":      "info",
		"log.file":       "",
		"log.timeformat": timeformat,
		"log.prefix":     prefix,
	}
}

// SetLogger to integrate logging with application logging. Missing
// settings fall back to Defaultsettings().
func SetLogger(logger Logger, setts map[string]interface{}) Logger {
	if logger != nil {
		log = logger
		return log
	}

	config := Defaultsettings()
	for key, value := range setts {
		config[key] = value
	}

	var err error
	logfd := os.Stdout
	if logfile := config["log.file"].(string); logfile != "" {
		logfd, err = os.OpenFile(logfile, os.O_RDWR|os.O_APPEND, 0660)
		if err != nil {
			if logfd, err = os.Create(logfile); err != nil {
				panic(err)
			}
		}
	}
	log = &defaultLogger{
		level:      string2logLevel(config["log.level"].(string)),
		output:     logfd,
		timeformat: config["log.timeformat"].(string),
		prefix:     config["log.prefix"].(string),
	}
	return log
}

type defaultLogger struct {
	level      LogLevel
	output     io.Writer
	timeformat string
	prefix     string
}

func (l *defaultLogger) SetLogLevel(level string) {
	l.level = string2logLevel(level)
}

func (l *defaultLogger) Fatalf(format string, v ...interface{}) {
	l.Printlf(logLevelFatal, format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	l.Printlf(logLevelError, format, v...)
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	l.Printlf(logLevelWarn, format, v...)
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	l.Printlf(logLevelInfo, format, v...)
}

func (l *defaultLogger) Verbosef(format string, v ...interface{}) {
	l.Printlf(logLevelVerbose, format, v...)
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	l.Printlf(logLevelDebug, format, v...)
}

func (l *defaultLogger) Tracef(format string, v ...interface{}) {
	l.Printlf(logLevelTrace, format, v...)
}

func (l *defaultLogger) Printlf(level LogLevel, format string, v ...interface{}) {
	if !l.canlog(level) {
		return
	}
	parts := make([]string, 0, 3)
	if l.timeformat != "" {
		parts = append(parts, time.Now().Format(l.timeformat))
	}
	if l.prefix != "" {
		parts = append(parts, fmt.Sprintf(l.prefix, level))
	}
	parts = append(parts, fmt.Sprintf(format, v...))
	fmt.Fprint(l.output, strings.TrimRight(strings.Join(parts, " "), "\n")+"\n")
}

func (l *defaultLogger) canlog(level LogLevel) bool {
	return level <= l.level
}

func (l LogLevel) String() string {
	switch l {
	case logLevelIgnore:
		return "Ignor"
	case logLevelFatal:
		return "Fatal"
	case logLevelError:
		return "Error"
	case logLevelWarn:
		return "Warng"
	case logLevelInfo:
		return "Infom"
	case logLevelVerbose:
		return "Verbs"
	case logLevelDebug:
		return "Debug"
	case logLevelTrace:
		return "Trace"
	}
	panic("unexpected log level") // should never reach here
}

func string2logLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "ignore":
		return logLevelIgnore
	case "fatal":
		return logLevelFatal
	case "error":
		return logLevelError
	case "warn":
		return logLevelWarn
	case "info":
		return logLevelInfo
	case "verbose":
		return logLevelVerbose
	case "debug":
		return logLevelDebug
	case "trace":
		return logLevelTrace
	}
	panic(fmt.Errorf("unexpected log level: %q", s))
}

// Fatalf log at fatal level. Unlike standard library it does not exit.
func Fatalf(format string, v ...interface{}) {
	log.Printlf(logLevelFatal, format, v...)
}

func Errorf(format string, v ...interface{}) {
	log.Printlf(logLevelError, format, v...)
}

func Warnf(format string, v ...interface{}) {
	log.Printlf(logLevelWarn, format, v...)
}

func Infof(format string, v ...interface{}) {
	log.Printlf(logLevelInfo, format, v...)
}

func Verbosef(format string, v ...interface{}) {
	log.Printlf(logLevelVerbose, format, v...)
}

func Debugf(format string, v ...interface{}) {
	log.Printlf(logLevelDebug, format, v...)
}

func Tracef(format string, v ...interface{}) {
	log.Printlf(logLevelTrace, format, v...)
}
