package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultation-service/internal/converter"
	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/entity"
	"consultation-service/internal/domain/repository"
	"consultation-service/internal/metrics"
	"consultation-service/internal/service"
	"consultation-service/pkg/apperror"
	"consultation-service/pkg/datetime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrConsultationNotFound  = apperror.New(apperror.CodeNotFound, "consultation not found")
	ErrStartNotInFuture      = apperror.New(apperror.CodeBadRequest, "consultation must start in the future")
	ErrInvalidStartDate      = apperror.New(apperror.CodeBadRequest, "startDate must use the dd/MM/yyyy HH:mm format")
	ErrInvalidDuration       = apperror.New(apperror.CodeBadRequest, "timeDuration must use the HH:mm format")
	ErrZeroDuration          = apperror.New(apperror.CodeBadRequest, "timeDuration must be greater than zero")
	ErrInvalidDate           = apperror.New(apperror.CodeBadRequest, "date must use the dd/MM/yyyy format")
	ErrMedicNotFound         = apperror.New(apperror.CodeBadRequest, "medic not found")
	ErrPatientNotFound       = apperror.New(apperror.CodeBadRequest, "patient not found")
	ErrNotAMedic             = apperror.New(apperror.CodeBadRequest, "the selected user is not a medic")
	ErrSelfConsultation      = apperror.New(apperror.CodeBadRequest, "medic and patient must be different users")
	ErrScheduleConflict      = apperror.New(apperror.CodeConflict, "the medic already has a consultation in this time slot")
	ErrConsultationLocked    = apperror.New(apperror.CodeBadRequest, "only scheduled consultations can be changed")
	ErrConsultationCancelled = apperror.New(apperror.CodeBadRequest, "consultation is cancelled")
	ErrConsultationCompleted = apperror.New(apperror.CodeBadRequest, "consultation is completed")
	ErrNotConfirmed          = apperror.New(apperror.CodeBadRequest, "only confirmed consultations can be completed")
	ErrNotConsultationOwner  = apperror.New(apperror.CodeForbidden, "only the patient of the consultation can do this")
	ErrConsultationChanged   = apperror.New(apperror.CodeConflict, "consultation was changed by another request, reload and retry")
)

type ConsultationUsecase interface {
	ListAll(ctx context.Context) (*dto.ConsultationListResponse, error)
	// ListByDate lists consultations starting on the given dd/MM/yyyy day,
	// or today when date is empty.
	ListByDate(ctx context.Context, date string) (*dto.ConsultationListResponse, error)
	Book(ctx context.Context, principal entity.Principal, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error)
	Reschedule(ctx context.Context, principal entity.Principal, id uuid.UUID, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error)
	Confirm(ctx context.Context, principal entity.Principal, id uuid.UUID) (*dto.ConsultationResponse, error)
	Cancel(ctx context.Context, principal entity.Principal, id uuid.UUID) error
	// Complete closes a confirmed consultation. No endpoint exposes it; it is
	// meant for an out-of-band process that knows when the visit took place.
	Complete(ctx context.Context, id uuid.UUID) error
}

type consultationUsecase struct {
	log              *logrus.Logger
	loc              *time.Location
	now              func() time.Time
	consultationRepo repository.ConsultationRepository
	userRepo         repository.UserRepository
	medicLocker      *service.MedicLocker
	notifier         service.ConsultationNotifier
	auditService     service.AuditService
}

func NewConsultationUsecase(
	log *logrus.Logger,
	loc *time.Location,
	consultationRepo repository.ConsultationRepository,
	userRepo repository.UserRepository,
	medicLocker *service.MedicLocker,
	notifier service.ConsultationNotifier,
	auditService service.AuditService,
) ConsultationUsecase {
	return &consultationUsecase{
		log:              log,
		loc:              loc,
		now:              time.Now,
		consultationRepo: consultationRepo,
		userRepo:         userRepo,
		medicLocker:      medicLocker,
		notifier:         notifier,
		auditService:     auditService,
	}
}

// slot is a validated booking request.
type slot struct {
	medic       *entity.User
	patient     *entity.User
	start       time.Time
	end         time.Time
	description string
}

func (u *consultationUsecase) ListAll(ctx context.Context) (*dto.ConsultationListResponse, error) {
	consultations, err := u.consultationRepo.FindAll(ctx)
	if err != nil {
		u.log.Warnf("Failed to find consultations: %+v", err)
		return nil, err
	}

	return &dto.ConsultationListResponse{
		Consultations: converter.ConsultationsToResponses(consultations, u.loc),
		Total:         len(consultations),
	}, nil
}

func (u *consultationUsecase) ListByDate(ctx context.Context, date string) (*dto.ConsultationListResponse, error) {
	day := u.now()
	if strings.TrimSpace(date) != "" {
		parsed, err := datetime.ParseDate(date, u.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = parsed
	}

	from, to := datetime.DayBounds(day, u.loc)
	consultations, err := u.consultationRepo.FindByStartBetween(ctx, from, to)
	if err != nil {
		u.log.Warnf("Failed to find consultations between %s and %s: %+v", from, to, err)
		return nil, err
	}

	return &dto.ConsultationListResponse{
		Consultations: converter.ConsultationsToResponses(consultations, u.loc),
		Total:         len(consultations),
	}, nil
}

// Book creates a SCHEDULED consultation. The per-medic lock and the
// repository transaction make the conflict check and the insert atomic.
func (u *consultationUsecase) Book(ctx context.Context, principal entity.Principal, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error) {
	s, err := u.validateSlot(ctx, req)
	if err != nil {
		u.countBooking("book", err)
		return nil, err
	}

	consultation := &entity.Consultation{
		ID:          uuid.New(),
		MedicID:     s.medic.ID,
		PatientID:   s.patient.ID,
		StartTime:   s.start,
		EndTime:     s.end,
		Description: s.description,
		Status:      entity.ConsultationStatusScheduled,
	}

	unlock := u.medicLocker.Lock(s.medic.ID)
	err = u.consultationRepo.CreateWithNoOverlap(ctx, consultation)
	unlock()
	if err != nil {
		if errors.Is(err, repository.ErrOverlap) {
			u.countBooking("book", ErrScheduleConflict)
			return nil, ErrScheduleConflict
		}
		u.countBooking("book", err)
		u.log.Warnf("Failed to create consultation: %+v", err)
		return nil, err
	}
	u.countBooking("book", nil)

	consultation.Medic = s.medic
	consultation.Patient = s.patient
	u.afterSave(ctx, principal, service.EventConsultationScheduled, entity.AuditActionConsultationBook, consultation, nil)

	u.log.Infof("Consultation booked: id=%s, medic=%s, start=%s", consultation.ID, s.medic.ID, s.start.Format(time.RFC3339))
	return converter.ConsultationToResponse(consultation, u.loc), nil
}

// Reschedule rewrites a SCHEDULED consultation with a freshly validated
// request. The conflict check ignores the consultation itself.
func (u *consultationUsecase) Reschedule(ctx context.Context, principal entity.Principal, id uuid.UUID, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error) {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !consultation.IsScheduled() {
		u.countBooking("reschedule", ErrConsultationLocked)
		return nil, ErrConsultationLocked
	}

	s, err := u.validateSlot(ctx, req)
	if err != nil {
		u.countBooking("reschedule", err)
		return nil, err
	}

	before := converter.ConsultationToResponse(consultation, u.loc)

	consultation.MedicID = s.medic.ID
	consultation.PatientID = s.patient.ID
	consultation.StartTime = s.start
	consultation.EndTime = s.end
	consultation.Description = s.description

	unlock := u.medicLocker.Lock(s.medic.ID)
	err = u.consultationRepo.UpdateWithNoOverlap(ctx, consultation)
	unlock()
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			u.countBooking("reschedule", ErrScheduleConflict)
			return nil, ErrScheduleConflict
		case errors.Is(err, repository.ErrNotScheduled):
			u.countBooking("reschedule", ErrConsultationLocked)
			return nil, ErrConsultationLocked
		}
		u.countBooking("reschedule", err)
		u.log.Warnf("Failed to update consultation %s: %+v", id, err)
		return nil, err
	}
	u.countBooking("reschedule", nil)

	consultation.Medic = s.medic
	consultation.Patient = s.patient
	u.afterSave(ctx, principal, service.EventConsultationRescheduled, entity.AuditActionConsultationReschedule, consultation, before)

	return converter.ConsultationToResponse(consultation, u.loc), nil
}

// Confirm is allowed to the patient only. Confirming an already confirmed
// consultation returns it unchanged.
func (u *consultationUsecase) Confirm(ctx context.Context, principal entity.Principal, id uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !consultation.IsPatient(principal.UserID) {
		return nil, ErrNotConsultationOwner
	}

	switch consultation.Status {
	case entity.ConsultationStatusCancelled:
		return nil, ErrConsultationCancelled
	case entity.ConsultationStatusCompleted:
		return nil, ErrConsultationCompleted
	case entity.ConsultationStatusConfirmed:
		return converter.ConsultationToResponse(consultation, u.loc), nil
	}

	if err := u.transition(ctx, consultation, entity.ConsultationStatusConfirmed, entity.ConsultationStatusScheduled); err != nil {
		return nil, err
	}
	u.afterSave(ctx, principal, service.EventConsultationConfirmed, entity.AuditActionConsultationConfirm, consultation, entity.ConsultationStatusScheduled)

	u.log.Infof("Consultation confirmed: id=%s", id)
	return converter.ConsultationToResponse(consultation, u.loc), nil
}

// Cancel is allowed to the patient only. Cancelling a cancelled consultation
// is a no-op; a completed one cannot be cancelled.
func (u *consultationUsecase) Cancel(ctx context.Context, principal entity.Principal, id uuid.UUID) error {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return err
	}
	if !consultation.IsPatient(principal.UserID) {
		return ErrNotConsultationOwner
	}

	switch consultation.Status {
	case entity.ConsultationStatusCancelled:
		return nil
	case entity.ConsultationStatusCompleted:
		return ErrConsultationCompleted
	}

	previous := consultation.Status
	err = u.transition(ctx, consultation, entity.ConsultationStatusCancelled, entity.ActiveConsultationStatuses...)
	if errors.Is(err, ErrConsultationChanged) {
		// A concurrent cancel reached the row first.
		current, findErr := u.find(ctx, id)
		if findErr == nil && current.IsCancelled() {
			return nil
		}
	}
	if err != nil {
		return err
	}
	u.afterSave(ctx, principal, service.EventConsultationCancelled, entity.AuditActionConsultationCancel, consultation, previous)

	u.log.Infof("Consultation cancelled: id=%s", id)
	return nil
}

func (u *consultationUsecase) Complete(ctx context.Context, id uuid.UUID) error {
	consultation, err := u.find(ctx, id)
	if err != nil {
		return err
	}

	switch consultation.Status {
	case entity.ConsultationStatusCompleted:
		return nil
	case entity.ConsultationStatusConfirmed:
	default:
		return ErrNotConfirmed
	}

	if err := u.transition(ctx, consultation, entity.ConsultationStatusCompleted, entity.ConsultationStatusConfirmed); err != nil {
		return err
	}
	u.afterSave(ctx, entity.Principal{}, service.EventConsultationCompleted, entity.AuditActionConsultationComplete, consultation, entity.ConsultationStatusConfirmed)

	return nil
}

// validateSlot applies the booking rules in order: start in the future,
// patient and medic resolvable among active users, medic role, distinct users.
func (u *consultationUsecase) validateSlot(ctx context.Context, req *dto.ConsultationRequest) (*slot, error) {
	start, err := datetime.ParseDateTime(req.StartDate, u.loc)
	if err != nil {
		return nil, ErrInvalidStartDate
	}
	duration, err := datetime.ParseDuration(req.TimeDuration)
	if err != nil {
		return nil, ErrInvalidDuration
	}
	if duration <= 0 {
		return nil, ErrZeroDuration
	}
	if !start.After(u.now()) {
		return nil, ErrStartNotInFuture
	}

	patient, err := u.resolveUser(ctx, req.PatientID, ErrPatientNotFound)
	if err != nil {
		return nil, err
	}
	medic, err := u.resolveUser(ctx, req.MedicID, ErrMedicNotFound)
	if err != nil {
		return nil, err
	}
	if !medic.IsMedic() {
		return nil, ErrNotAMedic
	}
	if medic.ID == patient.ID {
		return nil, ErrSelfConsultation
	}

	return &slot{
		medic:       medic,
		patient:     patient,
		start:       start,
		end:         start.Add(duration),
		description: req.Description,
	}, nil
}

func (u *consultationUsecase) resolveUser(ctx context.Context, rawID string, notFound error) (*entity.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, notFound
	}
	user, err := u.userRepo.FindActiveByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", id, err)
		return nil, err
	}
	if user == nil {
		return nil, notFound
	}
	return user, nil
}

func (u *consultationUsecase) find(ctx context.Context, id uuid.UUID) (*entity.Consultation, error) {
	consultation, err := u.consultationRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", id, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}
	return consultation, nil
}

// transition applies a conditional status change and mirrors it on the entity.
func (u *consultationUsecase) transition(ctx context.Context, c *entity.Consultation, to entity.ConsultationStatus, from ...entity.ConsultationStatus) error {
	rows, err := u.consultationRepo.TransitionStatus(ctx, c.ID, from, to)
	if err != nil {
		u.log.Warnf("Failed to move consultation %s to %s: %+v", c.ID, to, err)
		return err
	}
	if rows == 0 {
		return ErrConsultationChanged
	}

	c.Status = to
	c.UpdatedAt = u.now()
	metrics.TransitionsTotal.WithLabelValues(string(to)).Inc()
	return nil
}

// afterSave runs the side effects of a successful write. Neither the event
// nor the audit entry can undo the write.
func (u *consultationUsecase) afterSave(ctx context.Context, principal entity.Principal, event, action string, c *entity.Consultation, before interface{}) {
	u.notifier.Notify(ctx, event, c)

	after := converter.ConsultationToResponse(c, u.loc)
	var err error
	if before == nil {
		err = u.auditService.LogCreate(ctx, principal.ActorID(), action, entity.AuditEntityConsultation, c.ID.String(), after)
	} else {
		err = u.auditService.LogUpdate(ctx, principal.ActorID(), action, entity.AuditEntityConsultation, c.ID.String(), before, after)
	}
	if err != nil {
		u.log.Warnf("Failed to audit %s of consultation %s: %+v", action, c.ID, err)
	}
}

func (u *consultationUsecase) countBooking(operation string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrScheduleConflict):
		result = metrics.ResultConflict
	case apperror.IsCode(err, apperror.CodeBadRequest), apperror.IsCode(err, apperror.CodeNotFound):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
	}
	metrics.BookingsTotal.WithLabelValues(operation, result).Inc()
}
