package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"nafsAPI/internal/apperr"
	"nafsAPI/internal/day"
	"nafsAPI/internal/store"
)

// base is embedded by every service: the store, the clock and the logger.
type base struct {
	store store.Store
	clock day.Clock
	log   *zap.Logger
}

func newBase(st store.Store, clock day.Clock, log *zap.Logger) base {
	if clock == nil {
		clock = day.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return base{store: st, clock: clock, log: log}
}

// inTx runs fn in one transaction and converts whatever escapes into an *apperr.Error.
func (b *base) inTx(ctx context.Context, fn func(tx store.Tx) error) error {
	err := b.store.WithTx(ctx, fn)
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, err, "not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Wrap(apperr.Conflict, err, "conflict")
	}

	b.log.Error("transaction_failed", zap.Error(err))
	return apperr.Wrap(apperr.TransactionFailed, err, "transaction failed, please retry")
}

// notFound converts store.ErrNotFound into a NotFound with reason, passing other errors through.
func notFound(err error, reason string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.NotFound, err, reason)
	}
	return err
}
