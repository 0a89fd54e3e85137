// Package monitoring holds the diagnostic logger shared by the capture
// pipeline, the publishers and the command-line tools.
package monitoring

import "log"

// Logf receives every diagnostic line from facelink packages. It writes through
// log.Printf until SetLogger installs something else.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger installs f as Logf. A nil f discards all output.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Component returns a logger that prefixes every message with "[name] ".
// The returned func resolves Logf on each call, so SetLogger applies to
// component loggers created before it.
func Component(name string) func(format string, v ...interface{}) {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
