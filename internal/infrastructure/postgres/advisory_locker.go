package postgres

import (
	"context"
	"sync"

	"github.com/jhoicas/medprod-fiscal/internal/application/consolidation"
)

var _ consolidation.Locker = (*AdvisoryLocker)(nil)

// AdvisoryLocker lock de consolidación con pg_try_advisory_xact_lock.
// Cada lock retiene una transacción abierta; se libera con el rollback de unlock,
// o solo si la conexión se cae.
type AdvisoryLocker struct {
	q Querier
}

func NewAdvisoryLocker(q Querier) *AdvisoryLocker {
	return &AdvisoryLocker{q: q}
}

func (l *AdvisoryLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	tx, err := l.q.Begin(ctx)
	if err != nil {
		return nil, false, mapErr("lock begin", err)
	}
	var ok bool
	if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`, key).Scan(&ok); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return nil, false, mapErr("lock "+key, err)
	}
	if !ok {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return nil, false, nil
	}
	var once sync.Once
	unlock := func() {
		once.Do(func() { _ = tx.Rollback(context.WithoutCancel(ctx)) })
	}
	return unlock, true, nil
}
