package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chompin/internal/attendance"
	"chompin/internal/auth"
)

const topStudentsLimit = 10

type classAttendanceResponse struct {
	ClassID        string  `json:"classId"`
	ClassName      string  `json:"className"`
	SessionsCount  int64   `json:"sessionsCount"`
	AttendanceRate float64 `json:"attendanceRate"`
}

type topStudentResponse struct {
	StudentID       string  `json:"studentId"`
	StudentName     string  `json:"studentName"`
	AttendanceCount int64   `json:"attendanceCount"`
	AttendanceRate  float64 `json:"attendanceRate"`
}

type personalStatsResponse struct {
	TotalSessions    int64   `json:"totalSessions"`
	AttendedSessions int64   `json:"attendedSessions"`
	AttendanceRate   float64 `json:"attendanceRate"`
	CurrentStreak    int     `json:"currentStreak"`
	LongestStreak    int     `json:"longestStreak"`
}

func (a *api) classAttendance(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	rows, err := a.analytics.ClassAttendance(c.Request.Context(), prof.ID)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]classAttendanceResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, classAttendanceResponse{
			ClassID:        r.ClassID,
			ClassName:      r.ClassName,
			SessionsCount:  r.SessionsCount,
			AttendanceRate: attendance.Round2(r.AttendanceRate),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) topStudents(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	rows, err := a.analytics.TopStudents(c.Request.Context(), prof.ID, topStudentsLimit)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]topStudentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, topStudentResponse{
			StudentID:       r.StudentID,
			StudentName:     r.StudentName,
			AttendanceCount: r.AttendanceCount,
			AttendanceRate:  attendance.Round2(r.AttendanceRate),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) personalStats(c *gin.Context) {
	student, _ := auth.StudentFrom(c)
	stats, err := a.analytics.PersonalStats(c.Request.Context(), student.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, personalStatsResponse{
		TotalSessions:    stats.TotalSessions,
		AttendedSessions: stats.AttendedSessions,
		AttendanceRate:   attendance.Round2(stats.AttendanceRate),
		CurrentStreak:    stats.CurrentStreak,
		LongestStreak:    stats.LongestStreak,
	})
}

func (a *api) classRank(c *gin.Context) {
	student, _ := auth.StudentFrom(c)
	rank, err := a.analytics.ClassRank(c.Request.Context(), c.Param("classId"), student.ID)
	if err != nil {
		fail(c, err)
		return
	}
	// A nil *int encodes as null.
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}
