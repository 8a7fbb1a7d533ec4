package mheap

import "github.com/pkg/errors"

func panicerr(fmsg string, args ...interface{}) {
	panic(errors.Errorf(fmsg, args...))
}
