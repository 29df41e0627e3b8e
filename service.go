package idmint

import (
	"context"
	"fmt"

	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/service/allocator"
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/dao/state/fs"
	"github.com/viant/idmint/service/dao/state/memory"
	"github.com/viant/idmint/service/dao/state/sqlite"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/service/messaging"
	"github.com/viant/idmint/tracing"
)

// Service wires an allocator to its configured store, events and policy.
type Service struct {
	config       *Config
	allocator    *allocator.Service
	stateDAO     state.Service
	eventService *event.Service
	listener     func(*event.Event[any])
	provider     entropy.Provider
	operators    []string
	closers      []func() error
}

// New builds the service described by config.
func New(ctx context.Context, config *Config, options ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Service{config: config}
	if config.Tracing.Enabled {
		if err := tracing.Init("idmint", Version, config.Tracing.OutputFile); err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		s.closers = append(s.closers, func() error { return tracing.Shutdown(context.Background()) })
	}
	for _, option := range options {
		option(s)
	}
	if err := s.ensureBaseSetup(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	opts := []allocator.Option{
		allocator.WithStateDAO(s.stateDAO),
		allocator.WithPolicy(s.policy()),
	}
	if s.eventService != nil {
		opts = append(opts, allocator.WithEvents(s.eventService))
	}
	if s.provider != nil {
		opts = append(opts, allocator.WithEntropyProvider(s.provider))
	}
	var err error
	if s.allocator, err = allocator.New(ctx, config.Allocator, opts...); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) ensureBaseSetup(ctx context.Context) error {
	if s.config.Operator.SecretURL != "" {
		operator, err := LoadOperator(ctx, s.config.Operator.SecretURL, s.config.Operator.Key)
		if err != nil {
			return err
		}
		s.operators = append(s.operators, operator)
	}
	if s.stateDAO == nil {
		if err := s.openStore(ctx); err != nil {
			return err
		}
	}
	if s.eventService == nil && s.config.Events.Vendor != "" {
		var opts []event.Option
		if s.config.Events.Vendor == string(messaging.VendorFS) {
			opts = append(opts, event.WithNewFsQueueConfig(event.FsQueueConfig(s.config.Events.URL)))
		}
		service, err := event.New(messaging.Vendor(s.config.Events.Vendor), opts...)
		if err != nil {
			return fmt.Errorf("failed to create event service: %w", err)
		}
		s.eventService = service
		s.closers = append(s.closers, func() error { service.Close(); return nil })
	}
	if s.eventService != nil && s.listener != nil {
		s.eventService.SetListener(s.listener)
	}
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	switch s.config.Store.Kind {
	case StoreFS:
		store, err := fs.New(s.config.Store.URL)
		if err != nil {
			return fmt.Errorf("failed to open fs store: %w", err)
		}
		s.stateDAO = store
	case StoreSQLite:
		store, err := sqlite.Open(ctx, s.config.Store.URL)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		s.stateDAO = store
		s.closers = append(s.closers, store.Close)
	default:
		s.stateDAO = memory.New()
	}
	return nil
}

func (s *Service) policy() *policy.Policy {
	ret := policy.FromConfig(&s.config.Policy)
	ret.Operators = append(ret.Operators, s.operators...)
	return ret
}

// Allocator returns the configured allocator.
func (s *Service) Allocator() *allocator.Service {
	return s.allocator
}

// Events returns the event service or nil when events are disabled.
func (s *Service) Events() *event.Service {
	return s.eventService
}

// Close releases the store and stops listeners.
func (s *Service) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
