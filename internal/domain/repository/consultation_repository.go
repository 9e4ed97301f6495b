package repository

import (
	"context"
	"errors"
	"time"

	"consultation-service/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrOverlap is returned when the medic already has a scheduled or confirmed
// consultation intersecting the requested interval.
var ErrOverlap = errors.New("consultation overlaps an existing one")

// ErrNotScheduled is returned by UpdateWithNoOverlap when the stored
// consultation left SCHEDULED after the caller read it.
var ErrNotScheduled = errors.New("consultation is no longer scheduled")

type ConsultationRepository interface {
	// CreateWithNoOverlap checks for conflicts and inserts in one transaction.
	CreateWithNoOverlap(ctx context.Context, consultation *entity.Consultation) error
	// UpdateWithNoOverlap checks for conflicts, ignoring the consultation
	// itself, and saves in one transaction. The stored row must still be
	// SCHEDULED.
	UpdateWithNoOverlap(ctx context.Context, consultation *entity.Consultation) error
	// TransitionStatus moves the consultation to `to` only while its current
	// status is one of `from`. It returns the number of rows changed, so 0
	// means the consultation was missing or had already moved on.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.ConsultationStatus, to entity.ConsultationStatus) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Consultation, error)
	FindAll(ctx context.Context) ([]entity.Consultation, error)
	FindByStartBetween(ctx context.Context, from, to time.Time) ([]entity.Consultation, error)
}
