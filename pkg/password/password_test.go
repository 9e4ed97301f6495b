package password

import (
	"strings"
	"testing"

	"consultation-service/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hashed, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)

	assert.True(t, h.Matches("s3cret", hashed))
	assert.False(t, h.Matches("wrong", hashed))
	assert.False(t, h.Matches("s3cret", "not-a-hash"))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}

func TestBcryptHasher_RejectsMoreThan72Bytes(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	// 40 characters, 80 bytes.
	_, err := h.Hash(strings.Repeat("é", 40))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.True(t, apperror.IsCode(err, apperror.CodeBadRequest))

	_, err = h.Hash(strings.Repeat("é", 36))
	assert.NoError(t, err)
}
