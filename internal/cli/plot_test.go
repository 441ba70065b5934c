package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotRange_DefaultsToLastDays(t *testing.T) {
	opts := &PlotOptions{Days: 3}
	now := time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC)

	from, to, err := plotRange(opts, time.UTC, now)
	require.NoError(t, err)

	// End of the current day, minus days+1 back, matching the original.
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), from)
}

func TestPlotRange_ExplicitDates(t *testing.T) {
	opts := &PlotOptions{StartDate: "2026-03-01", EndDate: "2026-03-07"}

	from, to, err := plotRange(opts, time.UTC, time.Now())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), to, "end date is inclusive")
}

func TestPlotRange_StartAfterEnd(t *testing.T) {
	opts := &PlotOptions{StartDate: "2026-03-20", EndDate: "2026-03-07"}

	_, _, err := plotRange(opts, time.UTC, time.Now())
	assert.Error(t, err)
}

func TestPlotRange_MalformedDate(t *testing.T) {
	for _, bad := range []string{"14-03-2026", "2026/03/14", "yesterday"} {
		opts := &PlotOptions{StartDate: bad}
		_, _, err := plotRange(opts, time.UTC, time.Now())
		assert.Error(t, err, "start date %q should be rejected", bad)
	}
}
