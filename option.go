package loanflow

import (
	"github.com/viant/loanflow/model/session"
	"github.com/viant/loanflow/policy"
	"github.com/viant/loanflow/service/action/dataquery"
	"github.com/viant/loanflow/service/capability"
	"github.com/viant/loanflow/service/dao"
	"github.com/viant/loanflow/service/escalation"
	"github.com/viant/loanflow/service/messaging"
	"github.com/viant/loanflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises Service construction.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithSessionDAO sets the session store.
func WithSessionDAO(store dao.Service[string, session.Session]) Option {
	return func(s *Service) { s.sessions = store }
}

// WithEscalationDAO sets the escalation record store.
func WithEscalationDAO(store dao.Service[string, escalation.Record]) Option {
	return func(s *Service) { s.escalations = store }
}

// WithEventQueue sets the escalation event queue.
func WithEventQueue(queue messaging.Queue[escalation.Event]) Option {
	return func(s *Service) { s.events = queue }
}

// WithPolicyTables sets the lending policy tables consumed by the purpose and
// geo-policy providers.
func WithPolicyTables(tables *policy.Tables) Option {
	return func(s *Service) { s.tables = tables }
}

// WithApplicants sets the known applicant profiles served by the data-query
// provider.
func WithApplicants(applicants map[string]*dataquery.Profile) Option {
	return func(s *Service) { s.applicants = applicants }
}

// WithCapabilities registers additional capability providers, replacing a
// built-in provider when the name collides.
func WithCapabilities(providers ...capability.Service) Option {
	return func(s *Service) {
		s.extraProviders = append(s.extraProviders, providers...)
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter. If
// outputFile is empty spans go to stdout. Safe to call multiple times, the
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, e.g. OTLP.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
