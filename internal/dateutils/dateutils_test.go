package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateChain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso", "2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"day month year", "15 Jan 2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"day month year with time", "15 Jan 2025 10:30 PM", time.Date(2025, 1, 15, 22, 30, 0, 0, time.UTC)},
		{"european slash", "15/01/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"us slash fallback", "01/28/2025", time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC)},
		{"european dash", "15-01-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"iso full", "2025-01-15 13:45:00", time.Date(2025, 1, 15, 13, 45, 0, 0, time.UTC)},
		{"extra whitespace", "  15  Jan   2025 ", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, layout, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.NotEmpty(t, layout)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseDateAmbiguousPrefersDayFirst(t *testing.T) {
	// 03/04 must resolve as 3 April, not 4 March.
	got, _, err := ParseDate("03/04/2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateFailure(t *testing.T) {
	_, _, err := ParseDate("not a date")
	assert.Error(t, err)

	_, _, err = ParseDate("")
	assert.Error(t, err)
}

func TestParseDateExtraLayouts(t *testing.T) {
	got, layout, err := ParseDate("15.01.2025", "02.01.2006")
	require.NoError(t, err)
	assert.Equal(t, "02.01.2006", layout)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestLayoutFromStrptime(t *testing.T) {
	assert.Equal(t, "02/01/2006", LayoutFromStrptime("%d/%m/%Y"))
	assert.Equal(t, "2 Jan 2006 03:04 PM", LayoutFromStrptime("%e %b %Y %I:%M %p"))
	assert.Equal(t, "2006-01-02 15:04:05", LayoutFromStrptime("%Y-%m-%d %H:%M:%S"))
	assert.Equal(t, "100%", LayoutFromStrptime("100%%"))
}

func TestLayoutsFromConfig(t *testing.T) {
	layouts := LayoutsFromConfig([]string{"%d.%m.%Y", "2006/01/02", " ", ""})
	assert.Equal(t, []string{"02.01.2006", "2006/01/02"}, layouts)
}

func TestToISODate(t *testing.T) {
	assert.Equal(t, "2025-12-31", ToISODate(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))
}
