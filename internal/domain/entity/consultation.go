package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusScheduled ConsultationStatus = "SCHEDULED"
	ConsultationStatusConfirmed ConsultationStatus = "CONFIRMED"
	ConsultationStatusCancelled ConsultationStatus = "CANCELLED"
	ConsultationStatusCompleted ConsultationStatus = "COMPLETED"
)

// ActiveConsultationStatuses are the statuses that occupy a medic's time slot.
var ActiveConsultationStatuses = []ConsultationStatus{
	ConsultationStatusScheduled,
	ConsultationStatusConfirmed,
}

// Consultation is an appointment between a medic and a patient over the
// half-open interval [StartTime, EndTime).
type Consultation struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MedicID     uuid.UUID          `gorm:"type:uuid;not null;index:idx_consultations_medic_start,priority:1" json:"medic_id"`
	PatientID   uuid.UUID          `gorm:"type:uuid;not null;index" json:"patient_id"`
	StartTime   time.Time          `gorm:"type:timestamptz;not null;index:idx_consultations_medic_start,priority:2" json:"start_time"`
	EndTime     time.Time          `gorm:"type:timestamptz;not null" json:"end_time"`
	Description string             `gorm:"type:text" json:"description"`
	Status      ConsultationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Medic   *User `gorm:"foreignKey:MedicID" json:"medic,omitempty"`
	Patient *User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}

func (Consultation) TableName() string {
	return "consultations"
}

func (c *Consultation) IsScheduled() bool {
	return c.Status == ConsultationStatusScheduled
}

func (c *Consultation) IsConfirmed() bool {
	return c.Status == ConsultationStatusConfirmed
}

func (c *Consultation) IsCancelled() bool {
	return c.Status == ConsultationStatusCancelled
}

func (c *Consultation) IsCompleted() bool {
	return c.Status == ConsultationStatusCompleted
}

// OccupiesSlot reports whether the consultation blocks its medic's interval.
func (c *Consultation) OccupiesSlot() bool {
	return c.IsScheduled() || c.IsConfirmed()
}

// Overlaps applies the half-open interval rule: touching intervals do not overlap.
func (c *Consultation) Overlaps(start, end time.Time) bool {
	return c.StartTime.Before(end) && c.EndTime.After(start)
}

func (c *Consultation) IsPatient(userID uuid.UUID) bool {
	return c.PatientID == userID
}
