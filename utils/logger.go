package utils

import (
	"fmt"
	"io"
)

// Logger is a nil-safe trace sink. Parsers take a *Logger and print
// through it unconditionally; with a nil receiver everything is dropped.
type Logger struct {
	io.Writer
}

func (l *Logger) Println(a ...interface{}) {
	if l != nil {
		fmt.Fprintln(l, a...)
	}
}

func (l *Logger) Printf(format string, a ...interface{}) {
	if l != nil {
		fmt.Fprintf(l, format+"\n", a...)
	}
}
