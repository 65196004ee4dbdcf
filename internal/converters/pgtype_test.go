package converters

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericDecimalRoundTrip(t *testing.T) {
	for _, raw := range []string{"15", "15.5", "0.01", "1234567.89"} {
		d, err := decimal.NewFromString(raw)
		require.NoError(t, err)

		n, err := NumericFromDecimal(d)
		require.NoError(t, err)

		back, err := DecimalFromNumeric(n)
		require.NoError(t, err)
		assert.True(t, d.Equal(back), "round trip of %s gave %s", raw, back)
	}
}

func TestDecimalFromNullNumeric(t *testing.T) {
	d, err := DecimalFromNumeric(pgtype.Numeric{Valid: false})
	require.NoError(t, err)
	assert.True(t, d.IsZero())
}

func TestTimestamptzFromNilTime(t *testing.T) {
	ts := TimestamptzFromTime(nil)
	assert.False(t, ts.Valid)
	assert.Nil(t, TimeUTCFromTimestamptz(ts))
}

func TestTimeUTCFromTimestamptz(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*3600)
	local := time.Date(2023, 1, 15, 14, 30, 0, 0, loc)

	got := TimeUTCFromTimestamptz(TimestamptzFromTime(&local))
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(local))
}
