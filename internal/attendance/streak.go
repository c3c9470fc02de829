package attendance

import (
	"sort"
	"time"
)

// Streaks holds the derived consecutive-day runs for one student.
type Streaks struct {
	Current int
	Longest int
}

// dayNumber maps a calendar date in loc to a day count since the Unix epoch.
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// ComputeStreaks derives streaks from check-in instants. Instants are reduced
// to distinct calendar dates in loc; a run is a maximal sequence of dates one
// day apart. The current streak is the run containing today, else 0.
func ComputeStreaks(checkIns []time.Time, today time.Time, loc *time.Location) Streaks {
	if len(checkIns) == 0 {
		return Streaks{}
	}
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[int64]struct{}, len(checkIns))
	days := make([]int64, 0, len(checkIns))
	for _, t := range checkIns {
		n := dayNumber(t, loc)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		days = append(days, n)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	todayN := dayNumber(today, loc)
	var out Streaks
	start := 0
	for i := 1; i <= len(days); i++ {
		if i < len(days) && days[i] == days[i-1]+1 {
			continue
		}
		length := i - start
		if length > out.Longest {
			out.Longest = length
		}
		if days[start] <= todayN && todayN <= days[i-1] {
			out.Current = length
		}
		start = i
	}
	return out
}
