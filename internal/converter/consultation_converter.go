package converter

import (
	"time"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/entity"
	"consultation-service/pkg/datetime"
)

// ConsultationToResponse converts a Consultation entity to ConsultationResponse DTO.
// Medic and Patient are included when they are loaded.
func ConsultationToResponse(c *entity.Consultation, loc *time.Location) *dto.ConsultationResponse {
	if c == nil {
		return nil
	}

	return &dto.ConsultationResponse{
		ID:          c.ID,
		Medic:       UserToResponse(c.Medic, loc),
		Patient:     UserToResponse(c.Patient, loc),
		StartDate:   datetime.FormatDateTime(c.StartTime, loc),
		FinalDate:   datetime.FormatDateTime(c.EndTime, loc),
		Description: c.Description,
		Status:      string(c.Status),
		CreatedAt:   formatTimestamp(c.CreatedAt, loc),
		UpdatedAt:   formatTimestamp(c.UpdatedAt, loc),
	}
}

func ConsultationsToResponses(consultations []entity.Consultation, loc *time.Location) []dto.ConsultationResponse {
	responses := make([]dto.ConsultationResponse, len(consultations))
	for i := range consultations {
		responses[i] = *ConsultationToResponse(&consultations[i], loc)
	}
	return responses
}
