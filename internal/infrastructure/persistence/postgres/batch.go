package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// batchInserter копит строки и вставляет их одним INSERT ... VALUES (...), (...).
type batchInserter struct {
	exec        sqlx.ExecerContext
	query       string
	fieldsCount int
	values      []any
	rowCount    int
}

func newBatchInserter(exec sqlx.ExecerContext, baseQuery string, fieldsCount int) *batchInserter {
	return &batchInserter{exec: exec, query: baseQuery, fieldsCount: fieldsCount}
}

func (b *batchInserter) Add(rowValues ...any) error {
	if len(rowValues) != b.fieldsCount {
		return fmt.Errorf("batch insert: ожидалось %d полей, получено %d", b.fieldsCount, len(rowValues))
	}
	b.values = append(b.values, rowValues...)
	b.rowCount++
	return nil
}

func (b *batchInserter) Flush(ctx context.Context) error {
	if b.rowCount == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(b.query)
	sb.WriteString(" VALUES ")
	for i := 0; i < b.rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := 0; j < b.fieldsCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*b.fieldsCount+j+1)
		}
		sb.WriteByte(')')
	}

	if _, err := b.exec.ExecContext(ctx, sb.String(), b.values...); err != nil {
		return err
	}
	b.values = b.values[:0]
	b.rowCount = 0
	return nil
}
