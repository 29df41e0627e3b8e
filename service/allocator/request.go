package allocator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/progress"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/tracing"
)

// Request asks for one identifier. Entropy is the opaque environment value
// mixed into the seed; when empty the service's provider supplies one.
type Request struct {
	Owner   string
	Paid    model.Amount
	Entropy []byte
}

// Result is a committed allocation and the overpayment owed back.
type Result struct {
	Record *model.Allocation
	Refund model.Amount
}

// RequestAllocation charges the current price and assigns a fresh identifier
// to request.Owner. On any error nothing changes: not the pool, the ledger,
// the nonces nor the proceeds.
func (s *Service) RequestAllocation(ctx context.Context, request Request) (result *Result, err error) {
	ctx, span := tracing.StartSpan(ctx, "idmint.requestAllocation", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{
		"allocator": s.config.Name,
		"owner":     request.Owner,
		"paid":      request.Paid.String(),
	})

	if !s.policyFor(ctx).IsAllowed(request.Owner) {
		return nil, fmt.Errorf("request by %q: %w", request.Owner, errs.ErrUnauthorized)
	}
	external := request.Entropy
	if len(external) == 0 {
		external = s.provider.Entropy()
	}

	s.mux.Lock()
	record, err := s.allocate(ctx, request, external)
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}

	span.WithAttributes(map[string]string{"number": strconv.FormatUint(record.Number, 10)})
	progress.UpdateCtx(ctx, progress.Delta{Allocated: 1})
	publish(ctx, s, event.TypeNumberAllocated, record.Owner, *record)
	return &Result{Record: record, Refund: record.Refund}, nil
}

// allocate runs under the write lock.
func (s *Service) allocate(ctx context.Context, request Request, external []byte) (*model.Allocation, error) {
	price := s.price
	if request.Paid < price {
		return nil, fmt.Errorf("paid %v, price %v: %w", request.Paid, price, errs.ErrInsufficientPayment)
	}
	j := s.begin()
	id, attempts, err := s.draw(j, request.Owner, external)
	if err == nil {
		if s.proceeds+price < s.proceeds {
			err = fmt.Errorf("proceeds overflow")
		} else {
			setAmount(j, &s.proceeds, s.proceeds+price)
		}
	}
	if err != nil {
		j.Rollback()
		return nil, err
	}
	if err = s.commit(ctx, j); err != nil {
		return nil, err
	}
	return &model.Allocation{
		ID:        idgen.New(),
		Owner:     request.Owner,
		Number:    id,
		Price:     price,
		Paid:      request.Paid,
		Refund:    request.Paid - price,
		Strategy:  s.config.Strategy,
		Attempts:  attempts,
		CreatedAt: clock.Now(),
	}, nil
}

// draw takes one identifier through the configured strategy and assigns it
// to owner, recording every change on j.
func (s *Service) draw(j *journal.Journal, owner string, external []byte) (uint64, int, error) {
	var (
		id       uint64
		attempts = 1
		err      error
	)
	switch s.config.Strategy {
	case model.StrategyLazy:
		id, attempts, err = s.lazy.Allocate(j, owner, external, s.config.MaxAttempts)
	default:
		seed := s.source.Next(j, owner, external)
		id, err = s.pool.AllocateRandom(j, seed)
	}
	if err != nil {
		return 0, attempts, err
	}
	if err = s.assign(j, id, owner); err != nil {
		return 0, attempts, err
	}
	return id, attempts, nil
}
