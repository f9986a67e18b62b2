// Package monitoring holds the side-channel observers of the pipeline:
// throughput and error counters and the logger they report through.
package monitoring

import "log"

// Logf receives counter reports. It defaults to log.Printf; SetLogger
// redirects or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
