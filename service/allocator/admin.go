package allocator

import (
	"context"
	"fmt"

	"github.com/viant/idmint/internal/clock"
	"github.com/viant/idmint/internal/idgen"
	"github.com/viant/idmint/internal/journal"
	"github.com/viant/idmint/model"
	"github.com/viant/idmint/model/errs"
	"github.com/viant/idmint/policy"
	"github.com/viant/idmint/progress"
	"github.com/viant/idmint/service/event"
	"github.com/viant/idmint/tracing"
)

// operator returns the context actor if it may run admin operations.
func (s *Service) operator(ctx context.Context, operation string) (string, error) {
	actor := policy.ActorFrom(ctx)
	if !s.policyFor(ctx).IsOperator(actor) {
		return "", fmt.Errorf("%s by %q: %w", operation, actor, errs.ErrUnauthorized)
	}
	return actor, nil
}

// SetPrice changes the price charged per allocation.
func (s *Service) SetPrice(ctx context.Context, price model.Amount) (change *model.PriceChange, err error) {
	ctx, span := tracing.StartSpan(ctx, "idmint.setPrice", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"allocator": s.config.Name, "price": price.String()})

	actor, err := s.operator(ctx, "set price")
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	previous := s.price
	j := s.begin()
	setAmount(j, &s.price, price)
	err = s.commit(ctx, j)
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}
	change = &model.PriceChange{ID: idgen.New(), Operator: actor, Previous: previous, Current: price, CreatedAt: clock.Now()}
	publish(ctx, s, event.TypePriceChanged, actor, *change)
	return change, nil
}

// WithdrawProceeds pays out the whole balance to the operator.
func (s *Service) WithdrawProceeds(ctx context.Context) (withdrawal *model.Withdrawal, err error) {
	ctx, span := tracing.StartSpan(ctx, "idmint.withdrawProceeds", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"allocator": s.config.Name})

	actor, err := s.operator(ctx, "withdraw")
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	amount := s.proceeds
	if amount == 0 {
		s.mux.Unlock()
		return nil, fmt.Errorf("withdraw: %w", errs.ErrNothingToWithdraw)
	}
	j := s.begin()
	setAmount(j, &s.proceeds, 0)
	err = s.commit(ctx, j)
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}
	withdrawal = &model.Withdrawal{ID: idgen.New(), Operator: actor, Amount: amount, CreatedAt: clock.Now()}
	publish(ctx, s, event.TypeProceedsWithdrawn, actor, *withdrawal)
	return withdrawal, nil
}

// Deposit credits funds received outside of an allocation request. Anyone
// may deposit.
func (s *Service) Deposit(ctx context.Context, from string, amount model.Amount) (deposit *model.Deposit, err error) {
	ctx, span := tracing.StartSpan(ctx, "idmint.deposit", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"allocator": s.config.Name, "from": from, "amount": amount.String()})

	if from == "" {
		return nil, fmt.Errorf("deposit without sender: %w", errs.ErrUnauthorized)
	}
	if amount == 0 {
		return nil, fmt.Errorf("deposit of zero: %w", errs.ErrInsufficientPayment)
	}
	s.mux.Lock()
	if s.proceeds+amount < s.proceeds {
		s.mux.Unlock()
		return nil, fmt.Errorf("deposit %v: proceeds overflow", amount)
	}
	j := s.begin()
	setAmount(j, &s.proceeds, s.proceeds+amount)
	err = s.commit(ctx, j)
	s.mux.Unlock()
	if err != nil {
		return nil, err
	}
	deposit = &model.Deposit{ID: idgen.New(), From: from, Amount: amount, CreatedAt: clock.Now()}
	publish(ctx, s, event.TypeFundsDeposited, from, *deposit)
	return deposit, nil
}

// InitializeFull materializes the whole universe into the pool in one call.
func (s *Service) InitializeFull(ctx context.Context) (*model.Materialization, error) {
	return s.materialize(ctx, "idmint.initializeFull", func(j *journal.Journal) error {
		if s.config.Strategy != model.StrategyPool {
			return fmt.Errorf("initialize %s allocator: %w", s.config.Strategy, errs.ErrAlreadyInitialized)
		}
		if s.ledger.Total() > 0 {
			return fmt.Errorf("initialize pool: %w", errs.ErrAlreadyInitialized)
		}
		return s.pool.InitializeFull(j)
	})
}

// MaterializeNext appends up to batchSize identifiers to the pool.
func (s *Service) MaterializeNext(ctx context.Context, batchSize uint64) (*model.Materialization, error) {
	return s.materialize(ctx, "idmint.materializeNext", func(j *journal.Journal) error {
		if s.config.Strategy != model.StrategyPool {
			return fmt.Errorf("materialize %s allocator: %w", s.config.Strategy, errs.ErrAlreadyComplete)
		}
		_, err := s.initializer.MaterializeNext(j, batchSize)
		return err
	})
}

func (s *Service) materialize(ctx context.Context, name string, step func(j *journal.Journal) error) (record *model.Materialization, err error) {
	ctx, span := tracing.StartSpan(ctx, name, tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"allocator": s.config.Name})

	actor, err := s.operator(ctx, "materialize")
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	before := s.pool.Cursor()
	j := s.begin()
	if err = step(j); err != nil {
		j.Rollback()
		s.mux.Unlock()
		return nil, err
	}
	if err = s.commit(ctx, j); err != nil {
		s.mux.Unlock()
		return nil, err
	}
	record = &model.Materialization{
		ID:        idgen.New(),
		Operator:  actor,
		Appended:  s.pool.Cursor() - before,
		Cursor:    s.pool.Cursor(),
		PoolSize:  s.pool.Size(),
		Complete:  s.initializer.Complete(),
		CreatedAt: clock.Now(),
	}
	s.mux.Unlock()

	progress.UpdateCtx(ctx, progress.Delta{Materialized: int(record.Appended)})
	publish(ctx, s, event.TypePoolMaterialized, actor, *record)
	return record, nil
}
