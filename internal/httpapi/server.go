// Package httpapi exposes the session issuance, check-in and analytics
// endpoints over gin.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chompin/internal/attendance"
	"chompin/internal/auth"
	"chompin/internal/httpmiddleware"
	"chompin/internal/metrics"
	"chompin/internal/queue"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators the router needs. Queue, Limiter, Health and
// MetricsHandler are optional.
type Deps struct {
	Service        *attendance.Service
	Analytics      *attendance.Analytics
	Queue          queue.Queue
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Limiter        httpmiddleware.Limiter
	Logger         *slog.Logger
	JWTSigningKey  string
	JWTIssuer      string
	CORSOrigins    []string
	Health         map[string]HealthCheck
}

type api struct {
	svc       *attendance.Service
	analytics *attendance.Analytics
	queue     queue.Queue
	metrics   *metrics.Metrics
	logger    *slog.Logger
	health    map[string]HealthCheck
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	a := &api{
		svc:       d.Service,
		analytics: d.Analytics,
		queue:     d.Queue,
		metrics:   d.Metrics,
		logger:    d.Logger,
		health:    d.Health,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(requestLogger(d.Logger))
	r.Use(d.Metrics.GinMiddleware())
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			AllowCredentials: true,
			MaxAge:           24 * time.Hour,
		}))
	}
	r.Use(securityHeaders())
	if d.Limiter != nil {
		r.Use(httpmiddleware.Middleware(d.Limiter, d.Logger))
	}

	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	r.GET("/healthz", a.healthz)

	authed := r.Group("/", auth.Authenticate(d.JWTSigningKey, d.JWTIssuer))

	prof := authed.Group("/", auth.RequireProfessor())
	prof.POST("/sessions", a.issueSession)
	prof.GET("/sessions/:sessionId", a.getSession)
	prof.POST("/sessions/:sessionId/revoke", a.revokeSession)
	prof.POST("/classes/:classId/enrollments", a.enroll)
	prof.GET("/analytics/class-attendance", a.classAttendance)
	prof.GET("/analytics/top-students", a.topStudents)

	student := authed.Group("/", auth.RequireStudent())
	student.POST("/checkins", a.submitCheckIn)
	student.GET("/analytics/personal-stats", a.personalStats)
	student.GET("/analytics/class-rank/:classId", a.classRank)

	return r
}

func (a *api) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range a.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
