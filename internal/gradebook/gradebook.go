// Package gradebook forwards attendance grades to the external gradebook
// after each recorded check-in.
package gradebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chompin/internal/attendance"
	"chompin/internal/queue"
)

// MessageType tags check-in notifications on the queue.
const MessageType = "checkin"

// CheckIn is the queued notification body.
type CheckIn struct {
	SessionID string    `json:"sessionId"`
	StudentID string    `json:"studentId"`
	ClassID   string    `json:"classId"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// NewMessage builds the queue message for a recorded check-in.
func NewMessage(ci attendance.CheckIn) (queue.Message, error) {
	body, err := json.Marshal(CheckIn{
		SessionID: ci.Event.SessionID,
		StudentID: ci.Event.StudentID,
		ClassID:   ci.ClassID,
		Status:    string(ci.Event.Status),
		At:        ci.Event.When,
	})
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: MessageType, Body: body}, nil
}

// Grades computes a student's grade for a class.
type Grades interface {
	StudentGrade(ctx context.Context, studentID, classID string) (attendance.Grade, error)
}

// Sink receives computed grades.
type Sink interface {
	Submit(ctx context.Context, g attendance.Grade) error
}

// LogSink records grades in the log; it stands in for a gradebook integration.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Submit(ctx context.Context, g attendance.Grade) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "attendance grade",
		"student_id", g.StudentID,
		"class_id", g.ClassID,
		"grade", attendance.Round2(g.Rate),
		"present", g.Summary.PresentCount,
		"late", g.Summary.LateCount,
		"total_sessions", g.Summary.TotalSessions,
	)
	return nil
}

// Publisher turns queued check-ins into gradebook submissions.
type Publisher struct {
	grades Grades
	sink   Sink
	logger *slog.Logger
}

// NewPublisher wires the grade source to a sink.
func NewPublisher(grades Grades, sink Sink, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{grades: grades, sink: sink, logger: logger}
}

// Handle processes one message. Messages of other types are ignored.
func (p *Publisher) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != MessageType {
		return nil
	}
	var ci CheckIn
	if err := json.Unmarshal(msg.Body, &ci); err != nil {
		return fmt.Errorf("decode check-in: %w", err)
	}
	if ci.StudentID == "" || ci.ClassID == "" {
		return errors.New("decode check-in: student and class required")
	}
	grade, err := p.grades.StudentGrade(ctx, ci.StudentID, ci.ClassID)
	if err != nil {
		return fmt.Errorf("grade %s/%s: %w", ci.StudentID, ci.ClassID, err)
	}
	return p.sink.Submit(ctx, grade)
}

// Run consumes msgs until the channel closes or ctx is done. Failed messages
// are logged and dropped; the grade is recomputed from the summary on the
// student's next check-in anyway.
func (p *Publisher) Run(ctx context.Context, msgs <-chan queue.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := p.Handle(ctx, msg); err != nil {
				p.logger.ErrorContext(ctx, "gradebook publish failed", "type", msg.Type, "error", err)
			}
		}
	}
}
