package attendance

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Analytics derives read-side views from the summaries and the event log.
type Analytics struct {
	reader     Reader
	clock      Clock
	lateWeight float64
	loc        *time.Location
}

// NewAnalytics creates the read-side calculator. lateWeight is the single
// partial-credit weight applied to every rate.
func NewAnalytics(reader Reader, clock Clock, lateWeight float64, loc *time.Location) *Analytics {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Analytics{reader: reader, clock: clock, lateWeight: lateWeight, loc: loc}
}

// LateWeight returns the configured partial-credit weight.
func (a *Analytics) LateWeight() float64 { return a.lateWeight }

// ClassAttendance is one row of the professor's per-class overview.
type ClassAttendance struct {
	ClassID        string
	ClassName      string
	SessionsCount  int64
	AttendanceRate float64
}

// ClassAttendance lists every class owned by professorID with its session
// count and the mean of its students' attendance rates.
func (a *Analytics) ClassAttendance(ctx context.Context, professorID string) ([]ClassAttendance, error) {
	classes, err := a.reader.ListClassesByProfessor(ctx, professorID)
	if err != nil {
		return nil, err
	}
	rows, err := a.reader.ListSummariesByProfessor(ctx, professorID)
	if err != nil {
		return nil, err
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range rows {
		sums[row.ClassID] += row.Rate(a.lateWeight)
		counts[row.ClassID]++
	}
	out := make([]ClassAttendance, 0, len(classes))
	for _, c := range classes {
		var rate float64
		if n := counts[c.ID]; n > 0 {
			rate = sums[c.ID] / float64(n)
		}
		out = append(out, ClassAttendance{
			ClassID:        c.ID,
			ClassName:      c.Name,
			SessionsCount:  c.SessionsCount,
			AttendanceRate: rate,
		})
	}
	return out, nil
}

// StudentStanding aggregates one student across a professor's classes.
type StudentStanding struct {
	StudentID       string
	StudentName     string
	AttendanceCount int64
	AttendanceRate  float64
}

// TopStudents returns up to limit students of professorID's classes ordered
// by aggregated attendance rate, highest first. Summary rows whose student is
// not a registered user with the student role are skipped.
func (a *Analytics) TopStudents(ctx context.Context, professorID string, limit int) ([]StudentStanding, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.reader.ListSummariesByProfessor(ctx, professorID)
	if err != nil {
		return nil, err
	}
	type agg struct{ present, late, total int64 }
	byStudent := make(map[string]*agg)
	var ids []string
	for _, row := range rows {
		acc, ok := byStudent[row.StudentID]
		if !ok {
			acc = &agg{}
			byStudent[row.StudentID] = acc
			ids = append(ids, row.StudentID)
		}
		acc.present += row.PresentCount
		acc.late += row.LateCount
		acc.total += row.TotalSessions
	}
	users, err := a.reader.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]StudentStanding, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok || u.Role != RoleStudent {
			continue
		}
		acc := byStudent[id]
		out = append(out, StudentStanding{
			StudentID:       id,
			StudentName:     u.Name(),
			AttendanceCount: acc.present + acc.late,
			AttendanceRate:  Rate(acc.present, acc.late, acc.total, a.lateWeight),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AttendanceRate != out[j].AttendanceRate {
			return out[i].AttendanceRate > out[j].AttendanceRate
		}
		return out[i].StudentID < out[j].StudentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PersonalStats is a student's overview across all their classes.
type PersonalStats struct {
	TotalSessions    int64
	AttendedSessions int64
	AttendanceRate   float64
	CurrentStreak    int
	LongestStreak    int
}

// PersonalStats sums the student's summary rows and derives streaks from the
// event log.
func (a *Analytics) PersonalStats(ctx context.Context, studentID string) (PersonalStats, error) {
	rows, err := a.reader.ListSummariesByStudent(ctx, studentID)
	if err != nil {
		return PersonalStats{}, err
	}
	var present, late, total int64
	for _, row := range rows {
		present += row.PresentCount
		late += row.LateCount
		total += row.TotalSessions
	}
	streaks, err := a.Streaks(ctx, studentID)
	if err != nil {
		return PersonalStats{}, err
	}
	return PersonalStats{
		TotalSessions:    total,
		AttendedSessions: present + late,
		AttendanceRate:   Rate(present, late, total, a.lateWeight),
		CurrentStreak:    streaks.Current,
		LongestStreak:    streaks.Longest,
	}, nil
}

// Streaks recomputes the student's streaks from the event log.
func (a *Analytics) Streaks(ctx context.Context, studentID string) (Streaks, error) {
	times, err := a.reader.ListCheckInTimes(ctx, studentID)
	if err != nil {
		return Streaks{}, err
	}
	return ComputeStreaks(times, a.clock.Now(), a.loc), nil
}

// CurrentStreak is the length of the run of check-in days containing today.
func (a *Analytics) CurrentStreak(ctx context.Context, studentID string) (int, error) {
	s, err := a.Streaks(ctx, studentID)
	return s.Current, err
}

// LongestStreak is the longest run of consecutive check-in days.
func (a *Analytics) LongestStreak(ctx context.Context, studentID string) (int, error) {
	s, err := a.Streaks(ctx, studentID)
	return s.Longest, err
}

// ClassRank ranks the student within classID by attendance rate. It returns
// nil when the student has no summary row for the class.
func (a *Analytics) ClassRank(ctx context.Context, classID, studentID string) (*int, error) {
	rows, err := a.reader.ListSummariesByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	rank, ok := rankInClass(rows, studentID, a.lateWeight)
	if !ok {
		return nil, nil
	}
	return &rank, nil
}

// Grade is a student's attendance grade for one class.
type Grade struct {
	StudentID string
	ClassID   string
	Summary   Summary
	Rate      float64
}

// StudentGrade computes the attendance grade for one (student, class) pair.
func (a *Analytics) StudentGrade(ctx context.Context, studentID, classID string) (Grade, error) {
	row, err := a.reader.GetSummary(ctx, studentID, classID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Grade{}, ErrNotFound
		}
		return Grade{}, err
	}
	return Grade{
		StudentID: studentID,
		ClassID:   classID,
		Summary:   row,
		Rate:      row.Rate(a.lateWeight),
	}, nil
}
