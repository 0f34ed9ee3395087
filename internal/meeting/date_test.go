package meeting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCivil(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		layouts []string
		want    time.Time
		wantErr bool
	}{
		{
			name: "primegov iso",
			text: "2024-09-18T10:00:00",
			want: time.Date(2024, 9, 18, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "long weekday form",
			text: "Tuesday, September 17, 2024 09:30 AM",
			want: time.Date(2024, 9, 17, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "ragged whitespace",
			text: "  Tuesday,\n September 17, 2024   11:00 AM ",
			want: time.Date(2024, 9, 17, 11, 0, 0, 0, time.UTC),
		},
		{
			name: "slash date with time",
			text: "9/24/2024 1:00 PM",
			want: time.Date(2024, 9, 24, 13, 0, 0, 0, time.UTC),
		},
		{
			name: "zoned timestamp keeps wall clock",
			text: "2024-09-24T13:00:00-07:00",
			want: time.Date(2024, 9, 24, 13, 0, 0, 0, time.UTC),
		},
		{
			name:    "custom layout",
			text:    "24.09.2024",
			layouts: []string{"02.01.2006"},
			want:    time.Date(2024, 9, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			text:    "   ",
			wantErr: true,
		},
		{
			name:    "garbage",
			text:    "time TBD",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCivil(tt.text, time.UTC, tt.layouts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts := ParseTimestamp("", time.UTC)
	assert.False(t, ts.Present())
	assert.False(t, ts.Valid())

	ts = ParseTimestamp("soon", time.UTC)
	assert.True(t, ts.Present())
	assert.False(t, ts.Valid())
	assert.Equal(t, "soon", ts.Raw)

	ts = ParseTimestamp("2024-09-18", time.UTC)
	assert.True(t, ts.Valid())
	assert.Equal(t, "2024-09-18", ts.Raw)
}

func TestWallClock(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	in := time.Date(2024, 9, 24, 13, 0, 0, 0, time.UTC)
	got := WallClock(in, la)

	assert.Equal(t, 13, got.Hour())
	assert.Equal(t, la, got.Location())
	assert.Equal(t, "202409241300", got.Format(idTimeLayout))
}

func TestWallClock_DaylightSaving(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantUTC time.Time
	}{
		{
			name:    "spring-forward gap moves past the gap",
			raw:     "2024-03-10T02:30:00",
			want:    "202403100330",
			wantUTC: time.Date(2024, 3, 10, 10, 30, 0, 0, time.UTC),
		},
		{
			name:    "ambiguous fall-back takes the first occurrence",
			raw:     "2024-11-03T01:30:00",
			want:    "202411030130",
			wantUTC: time.Date(2024, 11, 3, 8, 30, 0, 0, time.UTC),
		},
		{
			name:    "just before the gap is untouched",
			raw:     "2024-03-10T01:59:00",
			want:    "202403100159",
			wantUTC: time.Date(2024, 3, 10, 9, 59, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := ParseTimestamp(tt.raw, la)
			require.True(t, ts.Valid())
			assert.Equal(t, tt.want, ts.Time.Format(idTimeLayout))
			assert.True(t, tt.wantUTC.Equal(ts.Time), "got %s", ts.Time.UTC())

			id := DeriveID("losca_Metro_Transit", ts.Time, "Board Meeting")
			assert.Equal(t, "losca_Metro_Transit/"+tt.want+"/x/board_meeting", id)
		})
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2024, 12, 20, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}
