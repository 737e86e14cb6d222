package scanner

import (
	log "github.com/sirupsen/logrus"
)

type AlertKind string

const (
	AlertSuccess AlertKind = "success"
	AlertFailure AlertKind = "failure"
	AlertInvalid AlertKind = "invalid"
)

// Alert is a discrete, dismissable notification for the operator.
type Alert struct {
	Kind    AlertKind
	Title   string
	Message string
}

type Reporter interface {
	Report(a Alert)
}

type ReporterFunc func(Alert)

func (f ReporterFunc) Report(a Alert) { f(a) }

// LogReporter writes alerts to the service log.
type LogReporter struct{}

func (LogReporter) Report(a Alert) {
	entry := log.WithField("kind", a.Kind)
	switch a.Kind {
	case AlertSuccess:
		entry.Infof("%s: %s", a.Title, a.Message)
	default:
		entry.Warnf("%s: %s", a.Title, a.Message)
	}
}

type MultiReporter []Reporter

func (m MultiReporter) Report(a Alert) {
	for _, r := range m {
		r.Report(a)
	}
}
