// Package events turns domain changes into notification events for the
// outbound mail service. Publication never blocks or fails the request.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	CandidateCreated             = "candidate.created"
	CandidateHistoryRecomputed   = "candidate.history_recomputed"
	CandidateHistoriesRecomputed = "candidate.histories_recomputed"
	EmployeeRegistered           = "employee.registered"
	EmployeeReviewed             = "employee.reviewed"

	entityCandidate = "candidate"
	entityEmployee  = "employee"
)

// Publisher sends a single event.
type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
}

// Emitter publishes events on background goroutines. A nil publisher turns
// every call into a no-op so the service runs without a broker.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewEmitter(publisher Publisher, timeout time.Duration, logger ectologger.Logger) *Emitter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Emitter{
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
	}
}

func (e *Emitter) CandidateCreated(ctx context.Context, record *models.CandidateRecord) {
	actor := ""
	if record.CreatedBy != nil {
		actor = *record.CreatedBy
	}
	e.emit(ctx, CandidateCreated, entityCandidate, record.ID, actor, map[string]any{
		"candidate_name":    record.CandidateName,
		"record_type":       record.RecordType,
		"constituency_name": record.ConstituencyName,
		"year":              record.Year,
	})
}

func (e *Emitter) HistoryRecomputed(ctx context.Context, record *models.CandidateRecord) {
	history, _ := record.CandidateHistory.GetValue()
	e.emit(ctx, CandidateHistoryRecomputed, entityCandidate, record.ID, "", map[string]any{
		"candidate_name": record.CandidateName,
		"times_stood":    history.TimesStood,
		"years":          history.Years,
	})
}

func (e *Emitter) HistoriesRecomputed(ctx context.Context, result models.RecomputeResult) {
	e.emit(ctx, CandidateHistoriesRecomputed, entityCandidate, "", "", result)
}

func (e *Emitter) EmployeeRegistered(ctx context.Context, employee *models.Employee) {
	e.emit(ctx, EmployeeRegistered, entityEmployee, employee.ID, employee.Email, map[string]any{
		"email": employee.Email,
		"name":  employee.Name,
		"role":  employee.Role,
	})
}

func (e *Emitter) EmployeeReviewed(ctx context.Context, employee *models.Employee) {
	actor := ""
	if employee.ReviewedBy != nil {
		actor = *employee.ReviewedBy
	}
	e.emit(ctx, EmployeeReviewed, entityEmployee, employee.ID, actor, map[string]any{
		"email":       employee.Email,
		"role":        employee.Role,
		"status":      employee.Status,
		"review_note": employee.ReviewNote,
	})
}

// Wait blocks until in-flight publications finish.
func (e *Emitter) Wait() {
	e.wg.Wait()
}

func (e *Emitter) emit(ctx context.Context, eventType, entityType, entityID, actor string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("failed to encode %s event", eventType)
		return
	}

	event := &kafka.Event{
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: entityType,
		Actor:      actor,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}

	// the request context is cancelled once the handler returns
	bg := context.WithoutCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		pubCtx, cancel := context.WithTimeout(bg, e.timeout)
		defer cancel()

		if err := e.publisher.Publish(pubCtx, event); err != nil {
			metrics.RecordEvent(eventType, "error")
			e.logger.WithContext(pubCtx).WithError(err).WithFields(map[string]any{
				"event_type": eventType,
				"entity_id":  entityID,
			}).Warn("failed to publish event")
			return
		}
		metrics.RecordEvent(eventType, "success")
	}()
}
