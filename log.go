package mheap

import "sync/atomic"

import "github.com/bnclabs/mheap/log"
import "github.com/bnclabs/mheap/malloc"

var logok = int64(0)

// LogComponents enable logging. By default logging is disabled,
// if applications want log information for mheap components
// call this function with "self" or "all" or "mheap" or "malloc" as
// argument.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "mheap", "self":
			atomic.StoreInt64(&logok, 1)
		case "malloc":
			malloc.LogComponents(comp)
		case "all":
			atomic.StoreInt64(&logok, 1)
			malloc.LogComponents(comp)
		}
	}
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}

func errorf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Errorf(format, v...)
	}
}

func infof(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Infof(format, v...)
	}
}

func verbosef(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Verbosef(format, v...)
	}
}
