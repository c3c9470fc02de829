package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int, hour int) time.Time {
	// March 2024: the 4th is a Monday.
	return time.Date(2024, 3, d, hour, 0, 0, 0, time.UTC)
}

func TestComputeStreaks(t *testing.T) {
	cases := map[string]struct {
		checkIns []time.Time
		today    time.Time
		want     Streaks
	}{
		"empty": {
			today: day(4, 9),
			want:  Streaks{},
		},
		"gap before today": {
			checkIns: []time.Time{day(4, 9), day(5, 9), day(6, 9), day(8, 9)},
			today:    day(8, 12),
			want:     Streaks{Current: 1, Longest: 3},
		},
		"run ending today": {
			checkIns: []time.Time{day(4, 9), day(5, 9), day(6, 9)},
			today:    day(6, 18),
			want:     Streaks{Current: 3, Longest: 3},
		},
		"no check-in today": {
			checkIns: []time.Time{day(4, 9), day(5, 9)},
			today:    day(7, 9),
			want:     Streaks{Current: 0, Longest: 2},
		},
		"same day counted once": {
			checkIns: []time.Time{day(5, 8), day(5, 14), day(4, 10)},
			today:    day(5, 20),
			want:     Streaks{Current: 2, Longest: 2},
		},
		"unordered input": {
			checkIns: []time.Time{day(12, 9), day(4, 9), day(11, 9), day(10, 9)},
			today:    day(12, 9),
			want:     Streaks{Current: 3, Longest: 3},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStreaks(tc.checkIns, tc.today, time.UTC))
		})
	}
}

func TestComputeStreaksUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 5th is still the 4th at UTC-5.
	checkIns := []time.Time{
		time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 2, 0, 0, 0, time.UTC),
	}
	today := time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, Streaks{Current: 2, Longest: 2}, ComputeStreaks(checkIns, today, time.UTC))
	assert.Equal(t, Streaks{Current: 1, Longest: 1}, ComputeStreaks(checkIns, today, loc))
}
