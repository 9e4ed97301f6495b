package converter

import (
	"time"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/entity"
)

// AuditLogToResponse converts a AuditLog entity to AuditLogResponse DTO
func AuditLogToResponse(log *entity.AuditLog, loc *time.Location) *dto.AuditLogResponse {
	if log == nil {
		return nil
	}

	return &dto.AuditLogResponse{
		ID:        log.ID,
		User:      UserToResponse(log.User, loc),
		Action:    log.Action,
		Entity:    log.EntityName,
		EntityID:  log.EntityID,
		Metadata:  log.Metadata,
		CreatedAt: formatTimestamp(log.CreatedAt, loc),
	}
}

// AuditLogsToResponses converts a slice of AuditLog entities to slice of AuditLogResponse DTOs
func AuditLogsToResponses(logs []entity.AuditLog, loc *time.Location) []dto.AuditLogResponse {
	responses := make([]dto.AuditLogResponse, len(logs))
	for i := range logs {
		responses[i] = *AuditLogToResponse(&logs[i], loc)
	}
	return responses
}
