package service

import (
	"context"
	"time"

	"consultation-service/internal/domain/entity"
	"consultation-service/internal/metrics"
	"consultation-service/pkg/datetime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event names carried in the snapshot.
const (
	EventConsultationScheduled   = "consultation.scheduled"
	EventConsultationRescheduled = "consultation.rescheduled"
	EventConsultationConfirmed   = "consultation.confirmed"
	EventConsultationCancelled   = "consultation.cancelled"
	EventConsultationCompleted   = "consultation.completed"
)

const publishTimeout = 5 * time.Second

// Publisher is the outbound side of the event stream.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ConsultationNotifier announces a consultation after it has been saved.
// Notify never fails: delivery problems are logged and counted.
type ConsultationNotifier interface {
	Notify(ctx context.Context, event string, consultation *entity.Consultation)
}

type UserSnapshot struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type ConsultationEvent struct {
	Event       string        `json:"event"`
	ID          uuid.UUID     `json:"id"`
	Medic       *UserSnapshot `json:"medic,omitempty"`
	Patient     *UserSnapshot `json:"patient,omitempty"`
	StartDate   string        `json:"startDate"`
	FinalDate   string        `json:"finalDate"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

type consultationNotifier struct {
	publisher  Publisher
	routingKey string
	loc        *time.Location
	log        *logrus.Logger
}

func NewConsultationNotifier(publisher Publisher, routingKey string, loc *time.Location, log *logrus.Logger) ConsultationNotifier {
	return &consultationNotifier{
		publisher:  publisher,
		routingKey: routingKey,
		loc:        loc,
		log:        log,
	}
}

func (n *consultationNotifier) Notify(ctx context.Context, event string, c *entity.Consultation) {
	payload := NewConsultationEvent(event, c, n.loc)

	// Detach from the request so a client disconnect does not abort delivery.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.publisher.PublishJSON(pubCtx, n.routingKey, payload); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultError).Inc()
		n.log.WithFields(logrus.Fields{
			"consultation_id": c.ID,
			"event":           event,
		}).Errorf("Failed to publish consultation event: %+v", err)
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	n.log.Debugf("Published %s for consultation %s", event, c.ID)
}

func NewConsultationEvent(event string, c *entity.Consultation, loc *time.Location) ConsultationEvent {
	return ConsultationEvent{
		Event:       event,
		ID:          c.ID,
		Medic:       snapshotUser(c.Medic),
		Patient:     snapshotUser(c.Patient),
		StartDate:   datetime.FormatDateTime(c.StartTime, loc),
		FinalDate:   datetime.FormatDateTime(c.EndTime, loc),
		Description: c.Description,
		Status:      string(c.Status),
		OccurredAt:  time.Now().UTC(),
	}
}

func snapshotUser(u *entity.User) *UserSnapshot {
	if u == nil {
		return nil
	}
	return &UserSnapshot{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}
