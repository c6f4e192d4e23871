package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Amounts travel as text so NUMERIC precision survives the round trip.

func parseDecimal(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing %s %q: %w", field, value, err)
	}
	return d, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// collectOne reads a single row through convert, mapping no rows to ErrNotFound.
func collectOne[R any, M any](rows pgx.Rows, err error, convert func(R) (*M, error)) (*M, error) {
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[R])
	if err != nil {
		return nil, notFound(err)
	}
	return convert(row)
}

func collectAll[R any, M any](rows pgx.Rows, err error, convert func(R) (*M, error)) ([]M, error) {
	if err != nil {
		return nil, err
	}
	raw, err := pgx.CollectRows(rows, pgx.RowToStructByName[R])
	if err != nil {
		return nil, err
	}
	out := make([]M, 0, len(raw))
	for _, r := range raw {
		m, err := convert(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}
