// Package smpplog backs the smpp.Logger interface with logrus, giving
// the worker structured fields instead of the package's bare Printf
// DefaultLogger.
package smpplog

import (
	"github.com/sirupsen/logrus"

	smpp "github.com/Mbosco/vumi"
)

// Logger implements smpp.Logger on top of a logrus.FieldLogger, so
// InfoF/ErrorF calls carry whatever fields the caller bound in with
// WithFields (system_id, session, command_id).
type Logger struct {
	entry *logrus.Entry
}

// New wraps l, binding no fields yet. Use With to attach fields before
// passing the result into smpp.SessionConf or worker.New.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{entry: logrus.NewEntry(l)}
}

// With returns a Logger that attaches fields to every subsequent call.
func (l Logger) With(fields logrus.Fields) Logger {
	return Logger{entry: l.entry.WithFields(fields)}
}

// InfoF implements smpp.Logger.
func (l Logger) InfoF(msg string, params ...interface{}) {
	l.entry.Infof(msg, params...)
}

// ErrorF implements smpp.Logger.
func (l Logger) ErrorF(msg string, params ...interface{}) {
	l.entry.Errorf(msg, params...)
}

var _ smpp.Logger = Logger{}
