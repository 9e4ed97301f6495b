package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingInput struct {
	MedicID   string `json:"medicId" validate:"required,uuid"`
	StartDate string `json:"startDate" validate:"required,appointment"`
	Duration  string `json:"timeDuration" validate:"required,hhmm"`
	Role      string `json:"role" validate:"omitempty,oneof=MEDIC PATIENT"`
}

func TestValidate_Valid(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&bookingInput{
		MedicID:   "6f1c1a3e-0f3a-4c55-9b7e-2d1f5f6a7b8c",
		StartDate: "10/10/2030 09:00",
		Duration:  "01:00",
	})
	assert.NoError(t, err)
}

func TestValidate_FormatsErrorsByJSONName(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&bookingInput{
		StartDate: "2030-10-10 09:00",
		Duration:  "1h",
		Role:      "DOCTOR",
	})
	require.Error(t, err)

	errs := v.FormatValidationErrors(err)
	assert.Equal(t, "medicId is required", errs["medicId"])
	assert.Equal(t, "startDate must use the dd/MM/yyyy HH:mm format", errs["startDate"])
	assert.Equal(t, "timeDuration must use the HH:mm format", errs["timeDuration"])
	assert.Equal(t, "role must be one of MEDIC PATIENT", errs["role"])
}
