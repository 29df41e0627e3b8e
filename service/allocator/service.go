package allocator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/service/batch"
	"github.com/viant/idmint/service/dao"
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/entropy"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/service/lazy"
	"github.com/viant/idmint/service/ledger"
	"github.com/viant/idmint/service/pool"
)

// Service allocates unique identifiers to paying requesters.
type Service struct {
	config Config
	mux    sync.RWMutex

	ledger      *ledger.Ledger
	source      *entropy.Source
	pool        *pool.Pool
	initializer *batch.Initializer
	lazy        *lazy.Allocator

	price    model.Amount
	proceeds model.Amount
	version  uint64

	policy   *policy.Policy
	provider entropy.Provider
	deriver  entropy.Deriver
	stateDAO state.Service
	events   *event.Service

	// stored is set once a snapshot exists; later commits append deltas.
	stored   bool
	assigned []model.Assignment
}

// New creates an allocator. With a state DAO, previously persisted state
// under config.Name is restored.
func New(ctx context.Context, config Config, opts ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid allocator config: %w", err)
	}
	s := &Service{config: config, price: config.Price}
	for _, opt := range opts {
		opt(s)
	}
	if s.provider == nil {
		s.provider = entropy.NewClock()
	}
	s.source = entropy.NewSource(s.deriver)
	s.ledger = ledger.New(config.Universe)
	s.pool = pool.New(config.Universe)
	if s.stateDAO != nil {
		if compactor, ok := s.stateDAO.(state.Compactor); ok {
			if err := compactor.Compact(ctx, config.Name); err != nil && !errors.Is(err, dao.ErrNotFound) {
				return nil, fmt.Errorf("compact allocator %s: %w", config.Name, err)
			}
		}
		stored, err := s.stateDAO.Load(ctx, config.Name)
		switch {
		case err == nil:
			if err := s.restore(stored); err != nil {
				return nil, fmt.Errorf("restore allocator %s: %w", config.Name, err)
			}
			s.stored = true
		case !errors.Is(err, dao.ErrNotFound):
			return nil, fmt.Errorf("load allocator %s: %w", config.Name, err)
		}
	}
	s.initializer = batch.New(s.pool)
	s.lazy = lazy.New(config.Universe, s.ledger, s.source)
	return s, nil
}

// restore replaces the fresh components with persisted ones.
func (s *Service) restore(stored *model.State) error {
	if stored.Universe != s.config.Universe {
		return fmt.Errorf("stored universe %v differs from configured %v", stored.Universe, s.config.Universe)
	}
	if stored.Strategy != s.config.Strategy {
		return fmt.Errorf("stored strategy %q differs from configured %q", stored.Strategy, s.config.Strategy)
	}
	restoredLedger, err := ledger.Restore(stored.Universe, stored.Holdings)
	if err != nil {
		return err
	}
	if s.config.Strategy == model.StrategyPool {
		restoredPool, err := pool.FromState(stored.Universe, stored.Pool, stored.Cursor)
		if err != nil {
			return err
		}
		if uint64(restoredPool.Size()+restoredLedger.Total()) != restoredPool.Cursor() {
			return fmt.Errorf("pool %d plus allocated %d does not match cursor %d", restoredPool.Size(), restoredLedger.Total(), restoredPool.Cursor())
		}
		for _, id := range restoredPool.Items() {
			if taken, _ := restoredLedger.IsAllocated(id); taken {
				return fmt.Errorf("pooled identifier %d is already owned", id)
			}
		}
		s.pool = restoredPool
	}
	s.ledger = restoredLedger
	s.source.Restore(stored.Nonces)
	s.price = stored.Price
	s.proceeds = stored.Proceeds
	s.version = stored.Version
	return nil
}

// snapshot captures the current state; the caller holds the lock.
func (s *Service) snapshot() *model.State {
	current := &model.State{
		Name:      s.config.Name,
		Universe:  s.config.Universe,
		Strategy:  s.config.Strategy,
		Holdings:  s.ledger.Holdings(),
		Nonces:    s.source.Nonces(),
		Proceeds:  s.proceeds,
		Price:     s.price,
		Version:   s.version,
		UpdatedAt: clock.Now(),
	}
	if s.config.Strategy == model.StrategyPool {
		current.Cursor = s.pool.Cursor()
		current.Pool = s.pool.Items()
	} else {
		current.Cursor = s.config.Universe.Size()
	}
	return current
}

// State returns a copy of the allocator state as it would be persisted.
func (s *Service) State() *model.State {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.snapshot()
}

// begin starts an operation: it forgets the changes of the previous one and
// returns the journal the new one records its undo on.
func (s *Service) begin() *journal.Journal {
	s.pool.ClearChanges()
	s.assigned = s.assigned[:0]
	return journal.New()
}

// assign hands id to owner in the ledger and remembers it for the delta.
func (s *Service) assign(j *journal.Journal, id uint64, owner string) error {
	if err := s.ledger.Assign(j, id, owner); err != nil {
		return err
	}
	s.assigned = append(s.assigned, model.Assignment{ID: id, Owner: owner})
	return nil
}

// delta describes what the running operation changed; the caller holds the lock.
func (s *Service) delta() *model.Delta {
	d := &model.Delta{
		Name:      s.config.Name,
		Version:   s.version,
		Cursor:    s.config.Universe.Size(),
		Proceeds:  s.proceeds,
		Price:     s.price,
		UpdatedAt: clock.Now(),
	}
	if s.config.Strategy == model.StrategyPool {
		d.Cursor = s.pool.Cursor()
		d.PoolSize = s.pool.Size()
		d.Slots = s.pool.Changes()
	}
	if len(s.assigned) > 0 {
		d.Assigned = append([]model.Assignment(nil), s.assigned...)
		d.Nonces = make(map[string]uint64)
		for _, assignment := range s.assigned {
			d.Nonces[assignment.Owner] = s.source.Nonce(assignment.Owner)
		}
	}
	return d
}

// commit bumps the version, persists the operation and clears j. The first
// commit writes a snapshot, every later one only its delta. On failure every
// change recorded on j is undone.
func (s *Service) commit(ctx context.Context, j *journal.Journal) error {
	previous := s.version
	s.version++
	j.Record(func() { s.version = previous })
	if s.stateDAO != nil {
		if err := s.persist(ctx); err != nil {
			j.Rollback()
			s.pool.ClearChanges()
			s.assigned = s.assigned[:0]
			return fmt.Errorf("persist allocator %s: %w", s.config.Name, err)
		}
	}
	j.Commit()
	return nil
}

func (s *Service) persist(ctx context.Context) error {
	if s.stored {
		return s.stateDAO.Apply(ctx, s.delta())
	}
	if err := s.stateDAO.Save(ctx, s.snapshot()); err != nil {
		return err
	}
	s.stored = true
	return nil
}

// setAmount assigns value to target and records the undo on j.
func setAmount(j *journal.Journal, target *model.Amount, value model.Amount) {
	previous := *target
	*target = value
	j.Record(func() { *target = previous })
}

func (s *Service) policyFor(ctx context.Context) *policy.Policy {
	if p := policy.FromContext(ctx); p != nil {
		return p
	}
	return s.policy
}

// publish emits data after a committed operation. Failures are logged only.
func publish[T any](ctx context.Context, s *Service, eventType, actor string, data T) {
	if s.events == nil {
		return
	}
	publisher, err := event.PublisherOf[T](s.events)
	if err != nil {
		log.Printf("idmint: %s publisher for %s: %v", eventType, s.config.Name, err)
		return
	}
	evt := event.NewEvent(&event.Context{Allocator: s.config.Name, EventType: eventType, Actor: actor}, data)
	if err := publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		log.Printf("idmint: publish %s for %s: %v", eventType, s.config.Name, err)
	}
}
