package idmint

import (
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service.
type Option func(s *Service)

// WithStateDAO overrides the configured state store.
func WithStateDAO(stateDAO state.Service) Option {
	return func(s *Service) {
		s.stateDAO = stateDAO
	}
}

// WithEventService overrides the configured event service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithListener receives every allocator event.
func WithListener(listener func(*event.Event[any])) Option {
	return func(s *Service) {
		s.listener = listener
	}
}

// WithEntropyProvider supplies entropy for requests that carry none.
func WithEntropyProvider(provider entropy.Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// WithOperators adds operator identities to the configured policy.
func WithOperators(operators ...string) Option {
	return func(s *Service) {
		s.operators = append(s.operators, operators...)
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter
// writing to outputFile, or stdout when empty. The first initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing with a custom exporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
