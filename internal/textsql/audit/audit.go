// Package audit records statements the validator rejected. Every rejection
// is written to the security log; the configured sinks get a copy.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"school-query-workers/internal/common/logger"
)

// SecurityEvent describes one rejected statement.
type SecurityEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"@timestamp"`
	TenantID  string    `json:"tenantId"`
	CallerID  string    `json:"callerId,omitempty"`
	Role      string    `json:"role"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
}

// NewSecurityEvent stamps an event with a fresh id and the current time.
func NewSecurityEvent(tenantID, callerID, role, question, sql, reason, message string) SecurityEvent {
	return SecurityEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		CallerID:  callerID,
		Role:      role,
		Question:  question,
		SQL:       sql,
		Reason:    reason,
		Message:   message,
	}
}

// Summary is the one-line form used for alert subjects and log messages.
func (e SecurityEvent) Summary() string {
	return fmt.Sprintf("Rejected statement (%s) for tenant %s", e.Reason, e.TenantID)
}

// Text renders the event for plain-text alerts.
func (e SecurityEvent) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event:    %s\n", e.ID)
	fmt.Fprintf(&sb, "Time:     %s\n", e.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Tenant:   %s\n", e.TenantID)
	fmt.Fprintf(&sb, "Caller:   %s (%s)\n", e.CallerID, e.Role)
	fmt.Fprintf(&sb, "Reason:   %s\n", e.Reason)
	fmt.Fprintf(&sb, "Detail:   %s\n", e.Message)
	fmt.Fprintf(&sb, "Question: %s\n", e.Question)
	fmt.Fprintf(&sb, "SQL:\n%s\n", e.SQL)
	return sb.String()
}

// Sink stores or forwards a security event.
type Sink interface {
	Record(ctx context.Context, event SecurityEvent) error
}

// Recorder logs every event and fans it out to its sinks. Sink failures
// are logged; they never fail the request that produced the event.
type Recorder struct {
	sinks  []Sink
	logger logger.Logger
}

func NewRecorder(log logger.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		sinks:  sinks,
		logger: log.With(map[string]interface{}{"component": "audit"}),
	}
}

// Record writes event to the security log and every sink.
func (r *Recorder) Record(ctx context.Context, event SecurityEvent) error {
	r.logger.Warn(event.Summary(), map[string]interface{}{
		"securityEvent": true,
		"eventId":       event.ID,
		"tenantId":      event.TenantID,
		"callerId":      event.CallerID,
		"role":          event.Role,
		"reason":        event.Reason,
		"detail":        event.Message,
		"sql":           event.SQL,
	})

	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Record(ctx, event); err != nil {
			r.logger.Error("security event sink failed", map[string]interface{}{
				"eventId": event.ID,
				"sink":    fmt.Sprintf("%T", sink),
				"error":   err.Error(),
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
