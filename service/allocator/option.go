package allocator

import (
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/event"
)

// Option customises a Service.
type Option func(s *Service)

// WithStateDAO persists every mutation and restores the state on New.
func WithStateDAO(stateDAO state.Service) Option {
	return func(s *Service) {
		s.stateDAO = stateDAO
	}
}

// WithEvents publishes allocator events through service.
func WithEvents(service *event.Service) Option {
	return func(s *Service) {
		s.events = service
	}
}

// WithPolicy sets the default operator and requester policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithEntropyProvider supplies entropy for requests that carry none.
func WithEntropyProvider(provider entropy.Provider) Option {
	return func(s *Service) {
		s.provider = provider
	}
}

// WithDeriver replaces the Keccak seed derivation.
func WithDeriver(deriver entropy.Deriver) Option {
	return func(s *Service) {
		s.deriver = deriver
	}
}
