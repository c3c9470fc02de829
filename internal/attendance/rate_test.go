package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRate(t *testing.T) {
	cases := map[string]struct {
		present, late, total int64
		want                 float64
	}{
		"no sessions":     {0, 0, 0, 0},
		"perfect":         {4, 0, 4, 100},
		"half":            {1, 0, 2, 50},
		"late is partial": {0, 1, 1, 80},
		"mixed":           {3, 1, 5, 76},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Rate(tc.present, tc.late, tc.total, DefaultLateWeight), 1e-9)
		})
	}
}

func TestSummaryRate(t *testing.T) {
	s := Summary{PresentCount: 2, LateCount: 1, TotalSessions: 4}
	assert.Equal(t, int64(3), s.Attended())
	assert.InDelta(t, 70.0, s.Rate(DefaultLateWeight), 1e-9)
	assert.InDelta(t, 75.0, s.Rate(1), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.0, Round2(100))
}
