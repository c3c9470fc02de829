package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chompin/internal/attendance"
	"chompin/internal/auth"
	"chompin/internal/gradebook"
	"chompin/internal/logging"
)

const publishTimeout = 2 * time.Second

// bindJSON decodes the body into dst. An empty body leaves dst zeroed so the
// service reports the missing fields.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

type sessionResponse struct {
	SessionID   string     `json:"sessionId"`
	ClassID     string     `json:"classId"`
	SessionDate string     `json:"sessionDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	State       string     `json:"state"`
}

func newSessionResponse(s attendance.Session, now time.Time) sessionResponse {
	return sessionResponse{
		SessionID:   s.ID,
		ClassID:     s.ClassID,
		SessionDate: s.Date,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		RevokedAt:   s.RevokedAt,
		State:       s.State(now).String(),
	}
}

func (a *api) issueSession(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	var req struct {
		ClassID string `json:"classId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	issued, err := a.svc.IssueSession(c.Request.Context(), req.ClassID, prof.ID)
	if err != nil {
		fail(c, err)
		return
	}
	a.metrics.SessionsIssued.Inc()
	c.JSON(http.StatusCreated, gin.H{
		"sessionId":    issued.Session.ID,
		"qrPayloadUrl": issued.PayloadURL,
		"sessionDate":  issued.Session.Date,
		"expiresAt":    issued.Session.ExpiresAt,
	})
}

func (a *api) getSession(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	sess, err := a.svc.Session(c.Request.Context(), c.Param("sessionId"), prof.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess, a.svc.Now()))
}

func (a *api) revokeSession(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	sess, err := a.svc.RevokeSession(c.Request.Context(), c.Param("sessionId"), prof.ID)
	if err != nil {
		fail(c, err)
		return
	}
	a.metrics.SessionsRevoked.Inc()
	c.JSON(http.StatusOK, newSessionResponse(sess, a.svc.Now()))
}

func (a *api) enroll(c *gin.Context) {
	prof, _ := auth.ProfessorFrom(c)
	var req struct {
		StudentID string `json:"studentId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	classID := c.Param("classId")
	created, err := a.svc.Enroll(c.Request.Context(), classID, prof.ID, req.StudentID)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"classId": classID, "studentId": req.StudentID})
}

func (a *api) submitCheckIn(c *gin.Context) {
	student, _ := auth.StudentFrom(c)
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ci, err := a.svc.SubmitCheckIn(c.Request.Context(), req.SessionID, student.ID)
	a.metrics.CheckIns.WithLabelValues(attendance.ErrorKind(err)).Inc()
	if err != nil {
		fail(c, err)
		return
	}
	a.publish(c.Request.Context(), ci)
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully!"})
}

// publish notifies the gradebook worker. The check-in is already committed,
// so failures are only logged and counted.
func (a *api) publish(ctx context.Context, ci attendance.CheckIn) {
	if a.queue == nil {
		return
	}
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = a.logger
	}
	msg, err := gradebook.NewMessage(ci)
	if err == nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err = a.queue.Publish(pctx, msg)
		cancel()
	}
	if err != nil {
		a.metrics.QueueFailures.Inc()
		logger.WarnContext(ctx, "queue publish failed", "session_id", ci.Event.SessionID, "error", err)
	}
}
