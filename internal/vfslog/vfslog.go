// Package vfslog gives every kernel package a uniform leveled-logging
// surface keyed by the object being logged about, the way rclone's
// fs.Debugf/fs.Infof/fs.Errorf free functions work for every backend.
package vfslog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Log is the package-level logger. Replace it wholesale in tests or
// embedders that want a different sink; there is deliberately no
// service-loader indirection.
var Log = logrus.StandardLogger()

func subject(o interface{}) string {
	if o == nil {
		return "-"
	}
	if s, ok := o.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", o)
}

// Debugf logs at debug level, prefixed with subject's String().
func Debugf(o interface{}, format string, args ...interface{}) {
	Log.WithField("subject", subject(o)).Debugf(format, args...)
}

// Infof logs at info level, prefixed with subject's String().
func Infof(o interface{}, format string, args ...interface{}) {
	Log.WithField("subject", subject(o)).Infof(format, args...)
}

// Errorf logs at error level, prefixed with subject's String().
func Errorf(o interface{}, format string, args ...interface{}) {
	Log.WithField("subject", subject(o)).Errorf(format, args...)
}
