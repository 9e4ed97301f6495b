package dto

import (
	"github.com/google/uuid"
)

// Request DTOs

// ConsultationRequest is shared by booking and rescheduling.
type ConsultationRequest struct {
	MedicID      string `json:"medicId" validate:"required,uuid"`
	PatientID    string `json:"patientId" validate:"required,uuid"`
	StartDate    string `json:"startDate" validate:"required,appointment"` // dd/MM/yyyy HH:mm
	TimeDuration string `json:"timeDuration" validate:"required,hhmm"`     // HH:mm
	Description  string `json:"description" validate:"max=2000"`
}

// Response DTOs

type ConsultationResponse struct {
	ID          uuid.UUID     `json:"id"`
	Medic       *UserResponse `json:"medic,omitempty"`
	Patient     *UserResponse `json:"patient,omitempty"`
	StartDate   string        `json:"startDate"`
	FinalDate   string        `json:"finalDate"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	CreatedAt   string        `json:"createdAt,omitempty"`
	UpdatedAt   string        `json:"updatedAt,omitempty"`
}

type ConsultationListResponse struct {
	Consultations []ConsultationResponse `json:"consultations"`
	Total         int                    `json:"total"`
}
