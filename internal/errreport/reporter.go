// Package errreport defines the error-reporting collaborator that makes
// component failures observable instead of burying them in ad-hoc logs.
package errreport

import "go.uber.org/zap"

// Kind classifies where a failure originated.
type Kind string

const (
	KindRPC    Kind = "RPC"
	KindSystem Kind = "SYSTEM"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// Severity ranks operator urgency.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// String returns the string representation of Severity.
func (s Severity) String() string {
	return string(s)
}

// Reporter receives every reported failure. Implementations must be safe
// for concurrent use.
type Reporter interface {
	Report(err error, kind Kind, severity Severity, context map[string]string)
}

// Nop discards every report. Useful in tests.
type Nop struct{}

// Report implements Reporter.
func (Nop) Report(error, Kind, Severity, map[string]string) {}

// LogReporter writes reports to the structured log, mapping severity to
// log level.
type LogReporter struct {
	log *zap.SugaredLogger
}

// NewLogReporter creates a reporter backed by the given logger.
func NewLogReporter(log *zap.SugaredLogger) *LogReporter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogReporter{log: log}
}

// Report implements Reporter.
func (r *LogReporter) Report(err error, kind Kind, severity Severity, context map[string]string) {
	fields := make([]interface{}, 0, 6+2*len(context))
	fields = append(fields,
		"kind", kind.String(),
		"severity", severity.String(),
		"error", err,
	)
	for k, v := range context {
		fields = append(fields, k, v)
	}

	switch severity {
	case SeverityLow:
		r.log.Infow("reported failure", fields...)
	case SeverityMedium:
		r.log.Warnw("reported failure", fields...)
	default:
		r.log.Errorw("reported failure", fields...)
	}
}

// Recorder counts reported failures; implemented by the metrics registry.
type Recorder interface {
	RecordReportedError(kind, severity string)
}

// MetricsReporter increments a failure counter per report.
type MetricsReporter struct {
	rec Recorder
}

// NewMetricsReporter creates a reporter backed by the given recorder.
func NewMetricsReporter(rec Recorder) *MetricsReporter {
	return &MetricsReporter{rec: rec}
}

// Report implements Reporter.
func (r *MetricsReporter) Report(_ error, kind Kind, severity Severity, _ map[string]string) {
	r.rec.RecordReportedError(kind.String(), severity.String())
}

// Multi fans a report out to several reporters in order.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(err error, kind Kind, severity Severity, context map[string]string) {
	for _, r := range m {
		r.Report(err, kind, severity, context)
	}
}
