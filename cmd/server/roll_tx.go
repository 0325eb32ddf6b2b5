package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "unionvote/pkg/domain-errors"
	txcontext "unionvote/pkg/platform/tx"
)

const defaultRollTxTimeout = 5 * time.Second

// rollPostgresTx runs a function inside one roll-database transaction. The
// transaction is carried through context so stores pick it up transparently;
// the count-time status flip and results write share one commit this way.
type rollPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRollPostgresTx(db *sql.DB) *rollPostgresTx {
	return &rollPostgresTx{db: db}
}

func (t *rollPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRollTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
