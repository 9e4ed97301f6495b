package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/delivery/http/middleware"
	"consultation-service/internal/domain/entity"
	"consultation-service/internal/usecase"
	"consultation-service/pkg/apperror"
	"consultation-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockConsultationUsecase struct {
	mock.Mock
}

func (m *mockConsultationUsecase) ListAll(ctx context.Context) (*dto.ConsultationListResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*dto.ConsultationListResponse)
	return resp, args.Error(1)
}

func (m *mockConsultationUsecase) ListByDate(ctx context.Context, date string) (*dto.ConsultationListResponse, error) {
	args := m.Called(ctx, date)
	resp, _ := args.Get(0).(*dto.ConsultationListResponse)
	return resp, args.Error(1)
}

func (m *mockConsultationUsecase) Book(ctx context.Context, principal entity.Principal, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error) {
	args := m.Called(ctx, principal, req)
	resp, _ := args.Get(0).(*dto.ConsultationResponse)
	return resp, args.Error(1)
}

func (m *mockConsultationUsecase) Reschedule(ctx context.Context, principal entity.Principal, id uuid.UUID, req *dto.ConsultationRequest) (*dto.ConsultationResponse, error) {
	args := m.Called(ctx, principal, id, req)
	resp, _ := args.Get(0).(*dto.ConsultationResponse)
	return resp, args.Error(1)
}

func (m *mockConsultationUsecase) Confirm(ctx context.Context, principal entity.Principal, id uuid.UUID) (*dto.ConsultationResponse, error) {
	args := m.Called(ctx, principal, id)
	resp, _ := args.Get(0).(*dto.ConsultationResponse)
	return resp, args.Error(1)
}

func (m *mockConsultationUsecase) Cancel(ctx context.Context, principal entity.Principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}

func (m *mockConsultationUsecase) Complete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type body struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func newRequest(method, target, payload string, principal *entity.Principal, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if principal != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *principal))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

var (
	patientPrincipal = entity.Principal{UserID: uuid.New(), Email: "ana@mail.com", Role: entity.RolePatient}
	adminPrincipal   = entity.Principal{UserID: uuid.New(), Email: "admin@sistema.com", Role: entity.RoleAdmin}
)

func validConsultationBody() string {
	return `{"medicId":"` + uuid.NewString() + `","patientId":"` + uuid.NewString() +
		`","startDate":"02/01/2030 10:00","timeDuration":"01:00","description":"checkup"}`
}

func TestConsultationHandler_Create(t *testing.T) {
	uc := new(mockConsultationUsecase)
	h := NewConsultationHandler(uc, validator.NewValidator())

	created := &dto.ConsultationResponse{ID: uuid.New(), Status: "SCHEDULED", StartDate: "02/01/2030 10:00"}
	uc.On("Book", mock.Anything, patientPrincipal, mock.MatchedBy(func(r *dto.ConsultationRequest) bool {
		return r.TimeDuration == "01:00" && r.Description == "checkup"
	})).Return(created, nil).Once()

	rec := httptest.NewRecorder()
	h.Create(rec, newRequest(http.MethodPost, "/consultations", validConsultationBody(), &patientPrincipal, nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	b := decodeBody(t, rec)
	assert.True(t, b.Success)
	var resp dto.ConsultationResponse
	require.NoError(t, json.Unmarshal(b.Data, &resp))
	assert.Equal(t, created.ID, resp.ID)
	uc.AssertExpectations(t)
}

func TestConsultationHandler_Create_Invalid(t *testing.T) {
	uc := new(mockConsultationUsecase)
	h := NewConsultationHandler(uc, validator.NewValidator())

	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"medicId":`},
		{"missing medic", `{"patientId":"` + uuid.NewString() + `","startDate":"02/01/2030 10:00","timeDuration":"01:00"}`},
		{"iso start date", `{"medicId":"` + uuid.NewString() + `","patientId":"` + uuid.NewString() + `","startDate":"2030-01-02T10:00","timeDuration":"01:00"}`},
		{"bad duration", `{"medicId":"` + uuid.NewString() + `","patientId":"` + uuid.NewString() + `","startDate":"02/01/2030 10:00","timeDuration":"90"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(http.MethodPost, "/consultations", tt.payload, &patientPrincipal, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeBody(t, rec).Success)
		})
	}

	uc.AssertNotCalled(t, "Book", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsultationHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", usecase.ErrScheduleConflict, http.StatusConflict},
		{"bad request", usecase.ErrStartNotInFuture, http.StatusBadRequest},
		{"not found", usecase.ErrMedicNotFound, http.StatusBadRequest},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockConsultationUsecase)
			h := NewConsultationHandler(uc, validator.NewValidator())
			uc.On("Book", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rec := httptest.NewRecorder()
			h.Create(rec, newRequest(http.MethodPost, "/consultations", validConsultationBody(), &patientPrincipal, nil))

			assert.Equal(t, tt.want, rec.Code)
			b := decodeBody(t, rec)
			assert.False(t, b.Success)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "connection reset")
				return
			}
			var messages []string
			require.NoError(t, json.Unmarshal(b.Error, &messages))
			message, _ := apperror.MessageOf(tt.err)
			assert.Equal(t, []string{message}, messages)
		})
	}
}

func TestConsultationHandler_Cancel(t *testing.T) {
	uc := new(mockConsultationUsecase)
	h := NewConsultationHandler(uc, validator.NewValidator())
	id := uuid.New()
	other := uuid.New()

	uc.On("Cancel", mock.Anything, patientPrincipal, id).Return(nil).Once()
	uc.On("Cancel", mock.Anything, patientPrincipal, other).Return(usecase.ErrNotConsultationOwner).Once()

	rec := httptest.NewRecorder()
	h.Cancel(rec, newRequest(http.MethodPatch, "/", "", &patientPrincipal, map[string]string{"id": id.String()}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Cancel(rec, newRequest(http.MethodPatch, "/", "", &patientPrincipal, map[string]string{"id": other.String()}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Cancel(rec, newRequest(http.MethodPatch, "/", "", &patientPrincipal, map[string]string{"id": "42"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	uc.AssertExpectations(t)
}

func TestConsultationHandler_Confirm(t *testing.T) {
	uc := new(mockConsultationUsecase)
	h := NewConsultationHandler(uc, validator.NewValidator())
	id := uuid.New()

	uc.On("Confirm", mock.Anything, patientPrincipal, id).
		Return(&dto.ConsultationResponse{ID: id, Status: "CONFIRMED"}, nil).Once()

	rec := httptest.NewRecorder()
	h.Confirm(rec, newRequest(http.MethodPatch, "/", "", &patientPrincipal, map[string]string{"id": id.String()}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
	uc.AssertExpectations(t)
}

func TestConsultationHandler_GetByDate(t *testing.T) {
	uc := new(mockConsultationUsecase)
	h := NewConsultationHandler(uc, validator.NewValidator())

	uc.On("ListByDate", mock.Anything, "02/01/2030").Return(&dto.ConsultationListResponse{Total: 0}, nil).Once()
	uc.On("ListByDate", mock.Anything, "").Return(nil, usecase.ErrInvalidDate).Once()

	rec := httptest.NewRecorder()
	h.GetByDate(rec, newRequest(http.MethodGet, "/consultations/today?date=02/01/2030", "", &patientPrincipal, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetByDate(rec, newRequest(http.MethodGet, "/consultations/today", "", &patientPrincipal, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	uc.AssertExpectations(t)
}
