package service

import (
	"testing"

	"consultation-service/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTokenKey(t *testing.T) {
	userID := uuid.MustParse("6f1c1a3e-0f3a-4c55-9b7e-2d1f5f6a7b8c")

	assert.Equal(t, "access_token:6f1c1a3e-0f3a-4c55-9b7e-2d1f5f6a7b8c:abc", TokenKey(userID, "abc", jwt.AccessToken))
	assert.Equal(t, "refresh_token:6f1c1a3e-0f3a-4c55-9b7e-2d1f5f6a7b8c:abc", TokenKey(userID, "abc", jwt.RefreshToken))
}
