package converters

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericFromDecimal converts a decimal amount to pgtype.Numeric for binding.
func NumericFromDecimal(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("convert decimal: %w", err)
	}
	return n, nil
}

// DecimalFromNumeric converts a scanned pgtype.Numeric back to a decimal.
// A NULL column yields decimal zero.
func DecimalFromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, nil
	}
	value, err := n.Value()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("read numeric: %w", err)
	}
	str, ok := value.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("unexpected numeric driver value %T", value)
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric: %w", err)
	}
	return d, nil
}

// TimestamptzFromTime converts an optional time to pgtype.Timestamptz.
// A nil pointer binds as NULL.
func TimestamptzFromTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// TimeUTCFromTimestamptz converts a scanned timestamptz to a UTC time
// pointer, nil when the column was NULL.
func TimeUTCFromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	utc := ts.Time.UTC()
	return &utc
}
