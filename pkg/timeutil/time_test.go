package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Now().Location())
}

func TestParseInLocationUTC(t *testing.T) {
	loc, err := time.LoadLocation("Pacific/Auckland")
	require.NoError(t, err)

	// January is NZDT (UTC+13).
	got, err := ParseInLocationUTC("2006-01-02 15:04:05", "2023-01-15 14:30:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 15, 1, 30, 0, 0, time.UTC), got)
}

func TestParseInLocationUTCError(t *testing.T) {
	_, err := ParseInLocationUTC("2006-01-02 15:04:05", "not a time", time.UTC)
	assert.Error(t, err)
}
