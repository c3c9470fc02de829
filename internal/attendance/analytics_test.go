package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedSummaries builds a store whose counters are set directly, bypassing the
// service so each analytics case controls its inputs.
func seedSummaries(t *testing.T, rows ...Summary) *Memory {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.UpsertClass(ctx, Class{ID: "c1", ProfessorID: "p1", Name: "Algebra"}))
	require.NoError(t, m.UpsertClass(ctx, Class{ID: "c2", ProfessorID: "p1", Name: "Biology"}))
	require.NoError(t, m.UpsertClass(ctx, Class{ID: "c3", ProfessorID: "p2", Name: "Chemistry"}))
	for _, u := range []User{
		{ID: "s1", FirstName: "Ada", LastName: "Lovelace", Role: RoleStudent},
		{ID: "s2", FirstName: "Alan", LastName: "Turing", Role: RoleStudent},
		{ID: "s3", FirstName: "Grace", LastName: "Hopper", Role: RoleStudent},
		{ID: "ta1", FirstName: "Edsger", LastName: "Dijkstra", Role: "professor"},
	} {
		require.NoError(t, m.UpsertUser(ctx, u))
	}
	m.mu.Lock()
	for _, r := range rows {
		m.state.summaries[pairKey{r.StudentID, r.ClassID}] = r
	}
	m.mu.Unlock()
	return m
}

func TestClassAttendance(t *testing.T) {
	m := seedSummaries(t,
		Summary{StudentID: "s1", ClassID: "c1", PresentCount: 4, TotalSessions: 4},
		Summary{StudentID: "s2", ClassID: "c1", PresentCount: 1, LateCount: 1, TotalSessions: 4},
		Summary{StudentID: "s1", ClassID: "c3", PresentCount: 1, TotalSessions: 1},
	)
	a := NewAnalytics(m, nil, DefaultLateWeight, nil)

	rows, err := a.ClassAttendance(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Algebra", rows[0].ClassName)
	// mean of 100 and 45
	assert.InDelta(t, 72.5, rows[0].AttendanceRate, 1e-9)
	assert.Equal(t, "Biology", rows[1].ClassName)
	assert.Zero(t, rows[1].AttendanceRate)

	rows, err = a.ClassAttendance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTopStudents(t *testing.T) {
	m := seedSummaries(t,
		Summary{StudentID: "s1", ClassID: "c1", PresentCount: 2, TotalSessions: 4},
		Summary{StudentID: "s1", ClassID: "c2", PresentCount: 2, TotalSessions: 2},
		Summary{StudentID: "s2", ClassID: "c1", PresentCount: 3, LateCount: 1, TotalSessions: 4},
		Summary{StudentID: "s3", ClassID: "c1", PresentCount: 4, TotalSessions: 4},
		Summary{StudentID: "s4", ClassID: "c3", PresentCount: 9, TotalSessions: 9},
		Summary{StudentID: "ghost", ClassID: "c1", PresentCount: 4, TotalSessions: 4},
		Summary{StudentID: "ta1", ClassID: "c2", PresentCount: 2, TotalSessions: 2},
	)
	a := NewAnalytics(m, nil, DefaultLateWeight, nil)

	// ghost has no user row and ta1 is not a student; neither is ranked.
	top, err := a.TopStudents(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "s3", top[0].StudentID)
	assert.Equal(t, "Grace Hopper", top[0].StudentName)
	assert.Equal(t, "s2", top[1].StudentID)
	assert.InDelta(t, 95.0, top[1].AttendanceRate, 1e-9)
	assert.Equal(t, "Alan Turing", top[1].StudentName)
	// s1 aggregates across both classes: 4 of 6.
	assert.Equal(t, "s1", top[2].StudentID)
	assert.Equal(t, int64(4), top[2].AttendanceCount)
	assert.InDelta(t, 66.666, top[2].AttendanceRate, 1e-2)

	top, err = a.TopStudents(context.Background(), "p1", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "s3", top[0].StudentID)
}

func TestPersonalStats(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: t0}
	store := NewMemory()
	require.NoError(t, store.UpsertClass(ctx, Class{ID: "c1", ProfessorID: "p1"}))
	require.NoError(t, store.UpsertClass(ctx, Class{ID: "c2", ProfessorID: "p1"}))
	svc := NewService(store, Options{Clock: clock, IDs: sequentialIDs(), LateAfter: 5 * time.Minute})
	a := NewAnalytics(store, clock, DefaultLateWeight, time.UTC)

	checkIn := func(classID string, delay time.Duration) {
		out, err := svc.IssueSession(ctx, classID, "p1")
		require.NoError(t, err)
		clock.Advance(delay)
		_, err = svc.SubmitCheckIn(ctx, out.Session.ID, "s1")
		require.NoError(t, err)
	}

	// Monday present, Tuesday late, Wednesday missed.
	checkIn("c1", 0)
	clock.Advance(24 * time.Hour)
	checkIn("c2", 10*time.Minute)
	clock.Advance(24 * time.Hour)
	_, err := svc.IssueSession(ctx, "c1", "p1")
	require.NoError(t, err)

	stats, err := a.PersonalStats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSessions)
	assert.Equal(t, int64(2), stats.AttendedSessions)
	assert.InDelta(t, 60.0, stats.AttendanceRate, 1e-9)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)

	current, err := a.CurrentStreak(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, current)
	longest, err := a.LongestStreak(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, longest)

	stats, err = a.PersonalStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, PersonalStats{}, stats)
}

func TestClassRank(t *testing.T) {
	m := seedSummaries(t,
		Summary{StudentID: "s1", ClassID: "c1", PresentCount: 4, TotalSessions: 4},
		Summary{StudentID: "s2", ClassID: "c1", PresentCount: 3, TotalSessions: 4},
		Summary{StudentID: "s3", ClassID: "c1", PresentCount: 3, TotalSessions: 4},
		Summary{StudentID: "s4", ClassID: "c1", PresentCount: 1, TotalSessions: 4},
	)
	a := NewAnalytics(m, nil, DefaultLateWeight, nil)
	ctx := context.Background()

	for student, want := range map[string]int{"s1": 1, "s2": 2, "s3": 2, "s4": 4} {
		rank, err := a.ClassRank(ctx, "c1", student)
		require.NoError(t, err)
		require.NotNil(t, rank, student)
		assert.Equal(t, want, *rank, student)
	}

	rank, err := a.ClassRank(ctx, "c1", "s9")
	require.NoError(t, err)
	assert.Nil(t, rank)
	rank, err = a.ClassRank(ctx, "c2", "s1")
	require.NoError(t, err)
	assert.Nil(t, rank)
}

func TestStudentGrade(t *testing.T) {
	m := seedSummaries(t,
		Summary{StudentID: "s1", ClassID: "c1", PresentCount: 2, LateCount: 1, TotalSessions: 4},
	)
	a := NewAnalytics(m, nil, 0.5, nil)
	assert.Equal(t, 0.5, a.LateWeight())

	g, err := a.StudentGrade(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.InDelta(t, 62.5, g.Rate, 1e-9)
	assert.Equal(t, int64(2), g.Summary.PresentCount)

	_, err = a.StudentGrade(context.Background(), "s1", "c2")
	assert.ErrorIs(t, err, ErrNotFound)
}
