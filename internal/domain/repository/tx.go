package repository

import (
	"context"
	"fmt"
)

// WithTx выполняет fn в транзакции: commit при успехе, rollback при ошибке или панике.
func WithTx(ctx context.Context, uow UnitOfWork, fn func(tx Tx) error) (err error) {
	tx, err := uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
