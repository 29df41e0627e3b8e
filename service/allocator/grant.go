package allocator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/progress"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/tracing"
)

// Grant issues count identifiers to owner without payment. Either all of
// them are assigned or none.
func (s *Service) Grant(ctx context.Context, owner string, count int) (*model.Grant, error) {
	if count <= 0 {
		return nil, fmt.Errorf("grant %d identifiers: %w", count, errs.ErrInvalidBatchSize)
	}
	owners := make([]string, count)
	for i := range owners {
		owners[i] = owner
	}
	return s.grant(ctx, "idmint.grant", owners)
}

// GrantBatch issues one identifier to each of owners, in order, without
// payment. Either all of them are assigned or none.
func (s *Service) GrantBatch(ctx context.Context, owners []string) (*model.Grant, error) {
	if len(owners) == 0 {
		return nil, fmt.Errorf("grant to no owners: %w", errs.ErrInvalidBatchSize)
	}
	return s.grant(ctx, "idmint.grantBatch", owners)
}

func (s *Service) grant(ctx context.Context, name string, owners []string) (record *model.Grant, err error) {
	ctx, span := tracing.StartSpan(ctx, name, tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"allocator": s.config.Name, "count": strconv.Itoa(len(owners))})

	actor, err := s.operator(ctx, "grant")
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		if owner == "" {
			return nil, fmt.Errorf("grant to empty owner: %w", errs.ErrUnauthorized)
		}
	}
	external := s.provider.Entropy()

	s.mux.Lock()
	assignments, err := s.grantLocked(ctx, owners, external)
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}

	record = &model.Grant{ID: idgen.New(), Operator: actor, Assignments: assignments, CreatedAt: clock.Now()}
	progress.UpdateCtx(ctx, progress.Delta{Allocated: len(assignments)})
	publish(ctx, s, event.TypeNumbersGranted, actor, *record)
	return record, nil
}

// grantLocked runs under the write lock.
func (s *Service) grantLocked(ctx context.Context, owners []string, external []byte) ([]model.Assignment, error) {
	if remaining := s.remaining(); uint64(len(owners)) > remaining {
		if s.config.Strategy == model.StrategyLazy {
			return nil, fmt.Errorf("grant %d of %d remaining: %w", len(owners), remaining, errs.ErrAllocationExhausted)
		}
		return nil, fmt.Errorf("grant %d from pool of %d: %w", len(owners), remaining, errs.ErrPoolEmpty)
	}
	j := s.begin()
	assignments := make([]model.Assignment, 0, len(owners))
	for _, owner := range owners {
		id, _, err := s.draw(j, owner, external)
		if err != nil {
			j.Rollback()
			return nil, err
		}
		assignments = append(assignments, model.Assignment{ID: id, Owner: owner})
	}
	if err := s.commit(ctx, j); err != nil {
		return nil, err
	}
	return assignments, nil
}
