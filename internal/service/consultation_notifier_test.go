package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"consultation-service/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func sampleConsultation() *entity.Consultation {
	start := time.Date(2030, 6, 1, 14, 0, 0, 0, time.UTC)
	medic := &entity.User{ID: uuid.New(), Name: "Dr. Grey", Email: "grey@clinic.com", Role: entity.RoleMedic}
	patient := &entity.User{ID: uuid.New(), Name: "Ana", Email: "ana@mail.com", Role: entity.RolePatient}
	return &entity.Consultation{
		ID:          uuid.New(),
		MedicID:     medic.ID,
		Medic:       medic,
		PatientID:   patient.ID,
		Patient:     patient,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Description: "checkup",
		Status:      entity.ConsultationStatusScheduled,
	}
}

func TestConsultationNotifier_PublishesSnapshot(t *testing.T) {
	pub := new(mockPublisher)
	n := NewConsultationNotifier(pub, "consultation.saved", time.UTC, quietLogger())
	c := sampleConsultation()

	pub.On("PublishJSON", mock.Anything, "consultation.saved", mock.MatchedBy(func(v any) bool {
		ev, ok := v.(ConsultationEvent)
		return ok &&
			ev.Event == EventConsultationScheduled &&
			ev.ID == c.ID &&
			ev.StartDate == "01/06/2030 14:00" &&
			ev.FinalDate == "01/06/2030 15:00" &&
			ev.Status == "SCHEDULED" &&
			ev.Medic.Email == "grey@clinic.com" &&
			ev.Patient.Name == "Ana"
	})).Return(nil).Once()

	n.Notify(context.Background(), EventConsultationScheduled, c)

	pub.AssertExpectations(t)
}

func TestConsultationNotifier_SwallowsFailures(t *testing.T) {
	pub := new(mockPublisher)
	n := NewConsultationNotifier(pub, "consultation.saved", time.UTC, quietLogger())

	pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), EventConsultationCancelled, sampleConsultation())
	})
	pub.AssertExpectations(t)
}

func TestConsultationNotifier_SurvivesCancelledRequest(t *testing.T) {
	pub := new(mockPublisher)
	n := NewConsultationNotifier(pub, "k", time.UTC, quietLogger())

	var pubErr error
	pub.On("PublishJSON", mock.Anything, "k", mock.Anything).Run(func(args mock.Arguments) {
		pubErr = args.Get(0).(context.Context).Err()
	}).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, EventConsultationConfirmed, sampleConsultation())

	require.NoError(t, pubErr)
}

func TestNewConsultationEvent_WithoutUsers(t *testing.T) {
	c := sampleConsultation()
	c.Medic, c.Patient = nil, nil

	ev := NewConsultationEvent(EventConsultationConfirmed, c, time.UTC)
	assert.Nil(t, ev.Medic)
	assert.Nil(t, ev.Patient)
}
