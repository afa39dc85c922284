package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/repository"
)

const activeDisputeIndex = "disputes_one_active_per_order"

// mapError переводит ошибки драйвера в sentinel'ы repository.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == activeDisputeIndex {
				return repository.ErrActiveDisputeExists
			}
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		case "40001", "40P01", "55P03":
			// serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affected возвращает ErrNotFound, если UPDATE не задел ни одной строки.
func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
