package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load consultation")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal: failed to load consultation: connection reset", err.Error())
	assert.True(t, IsCode(err, CodeInternal))
}

func TestWrapNil(t *testing.T) {
	err := Wrap(nil, CodeConflict, "taken")
	assert.Nil(t, err.Err)
	assert.Equal(t, "conflict: taken", err.Error())
}

func TestCodeOf(t *testing.T) {
	notFound := New(CodeNotFound, "user not found")
	wrapped := fmt.Errorf("find user: %w", notFound)

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, IsCode(errors.New("boom"), CodeNotFound))

	msg, ok := MessageOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "user not found", msg)
}

func TestSentinelIdentity(t *testing.T) {
	sentinel := New(CodeBadRequest, "start must be in the future")
	assert.ErrorIs(t, fmt.Errorf("book: %w", sentinel), sentinel)
	assert.NotErrorIs(t, New(CodeBadRequest, "start must be in the future"), sentinel)
}

func TestBadRequestFormats(t *testing.T) {
	err := BadRequest("invalid role %q", "DOCTOR")
	assert.Equal(t, CodeBadRequest, err.Code)
	assert.Equal(t, `invalid role "DOCTOR"`, err.Message)
}
