package converter

import (
	"time"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/entity"
	"consultation-service/pkg/datetime"
)

// UserToResponse converts a User entity to UserResponse DTO. The password
// hash never leaves this layer.
func UserToResponse(user *entity.User, loc *time.Location) *dto.UserResponse {
	if user == nil {
		return nil
	}

	return &dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Active:    user.IsActive,
		CreatedAt: formatTimestamp(user.CreatedAt, loc),
		UpdatedAt: formatTimestamp(user.UpdatedAt, loc),
	}
}

// UsersToResponses converts a slice of User entities to slice of UserResponse DTOs
func UsersToResponses(users []entity.User, loc *time.Location) []dto.UserResponse {
	responses := make([]dto.UserResponse, len(users))
	for i := range users {
		responses[i] = *UserToResponse(&users[i], loc)
	}
	return responses
}

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return datetime.FormatTimestamp(t, loc)
}
