// Package memory keeps allocator states in process memory.
package memory

import (
	"context"
	"fmt"

	"github.com/viant/idmint/model"
	"github.com/viant/idmint/service/dao"
	"github.com/viant/idmint/service/dao/criteria"
	"github.com/viant/idmint/service/dao/state"
	"github.com/viant/idmint/service/dao/store"
)

// Service is a thread-safe in-memory state store. All methods work with
// copies to eliminate data races between the allocator and readers.
type Service struct {
	store *store.MemoryStore[string, model.State]
}

var _ state.Service = (*Service)(nil)

// Save stores state if its version advances the stored one.
func (s *Service) Save(_ context.Context, state *model.State) error {
	if state == nil {
		return dao.ErrNilEntity
	}
	if state.Name == "" {
		return dao.ErrInvalidID
	}
	return s.store.Update(state.Name, func(current *model.State) (*model.State, error) {
		if current != nil {
			if err := dao.CheckVersion(current.Version, state.Version); err != nil {
				return nil, err
			}
		}
		return state, nil
	})
}

// Apply updates the stored state in place; its cost follows the delta size.
func (s *Service) Apply(_ context.Context, delta *model.Delta) error {
	if delta == nil {
		return dao.ErrNilEntity
	}
	if delta.Name == "" {
		return dao.ErrInvalidID
	}
	err := s.store.Modify(delta.Name, func(current *model.State) error {
		if err := dao.CheckNext(current.Version, delta.Version); err != nil {
			return err
		}
		return current.Apply(delta)
	})
	if err != nil {
		return fmt.Errorf("apply delta %d to %s: %w", delta.Version, delta.Name, err)
	}
	return nil
}

func (s *Service) Load(ctx context.Context, name string) (*model.State, error) {
	if name == "" {
		return nil, dao.ErrInvalidID
	}
	return s.store.Load(ctx, name)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	if name == "" {
		return dao.ErrInvalidID
	}
	return s.store.Delete(ctx, name)
}

func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.State, error) {
	return s.store.List(ctx, parameters...)
}

// New creates an empty store.
func New() *Service {
	memStore := store.NewMemoryStore[string, model.State](model.StateKey, (*model.State).Clone).
		WithMatcher(criteria.Match)
	return &Service{store: memStore}
}
