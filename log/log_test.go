package log

import "os"
import "strings"
import "testing"
import "path/filepath"

func TestSetLogger(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "setlogger_test.log")
	logline := "hello world"

	ref := &defaultLogger{level: logLevelIgnore, output: nil}
	log := SetLogger(ref, nil).(*defaultLogger)
	if log.level != logLevelIgnore || log.output != nil {
		t.Errorf("expected %v, got %v", ref, log)
	}

	setts := map[string]interface{}{
		"log.level": "info",
		"log.file":  logfile,
	}
	clog := SetLogger(nil, setts)
	clog.Infof(logline)
	clog.Verbosef(logline)
	clog.Fatalf(logline)
	clog.Errorf(logline)
	clog.Warnf(logline)
	clog.Tracef(logline)
	data, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("expected %v lines, got %v", 4, len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, logline) {
			t.Errorf("expected %q, got %q", logline, line)
		}
	}
	if !strings.Contains(lines[1], "[Fatal]") {
		t.Errorf("expected level prefix in %q", lines[1])
	}
	SetLogger(nil, map[string]interface{}{"log.level": "ignore"})
}

func TestLogFormat(t *testing.T) {
	logfile := filepath.Join(t.TempDir(), "logformat_test.log")
	SetLogger(nil, map[string]interface{}{
		"log.level":      "debug",
		"log.file":       logfile,
		"log.timeformat": "",
		"log.prefix":     "",
	})
	Debugf("chunks %v\n", 10)
	Tracef("never")
	data, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatal(err)
	} else if s := string(data); s != "chunks 10\n" {
		t.Errorf("unexpected %q", s)
	}
	SetLogger(nil, map[string]interface{}{"log.level": "ignore"})
}

func TestLogPrefix(t *testing.T) {
	if ref, s := "Ignor", logLevelIgnore.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Fatal", logLevelFatal.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Error", logLevelError.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Warng", logLevelWarn.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Infom", logLevelInfo.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Verbs", logLevelVerbose.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Debug", logLevelDebug.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	} else if ref, s = "Trace", logLevelTrace.String(); ref != s {
		t.Errorf("expected %v, got %v", ref, s)
	}
}

func TestLogLevelSettings(t *testing.T) {
	if r, l := logLevelIgnore, string2logLevel("ignore"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelFatal, string2logLevel("fatal"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelError, string2logLevel("Error"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelWarn, string2logLevel("warn"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelInfo, string2logLevel("info"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelVerbose, string2logLevel("verbose"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelDebug, string2logLevel("debug"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	} else if r, l = logLevelTrace, string2logLevel("TRACE"); r != l {
		t.Errorf("expected %v, got %v", r, l)
	}

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Errorf("expected panic")
			}
		}()
		string2logLevel("loud")
	}()
}
