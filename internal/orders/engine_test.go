package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDate(t *testing.T) {
	// 2026-08-02 23:30 UTC is already 2026-08-03 in Belgrade (UTC+2 in
	// summer) but still 2026-08-02 in UTC.
	instant := time.Date(2026, 8, 2, 23, 30, 0, 0, time.UTC)

	utcDate, err := LocalDate("UTC", instant)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-02", utcDate)

	belgradeDate, err := LocalDate("Europe/Belgrade", instant)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-03", belgradeDate)
}

func TestLocalDateUnknownTimezone(t *testing.T) {
	_, err := LocalDate("Mars/Olympus_Mons", time.Now())
	assert.Error(t, err)
}
