package handler

import (
	"net/http"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/delivery/http/middleware"
	"consultation-service/internal/usecase"
	"consultation-service/pkg/response"
	"consultation-service/pkg/validator"
)

type ConsultationHandler struct {
	consultationUsecase usecase.ConsultationUsecase
	validator           *validator.CustomValidator
}

func NewConsultationHandler(consultationUsecase usecase.ConsultationUsecase, validator *validator.CustomValidator) *ConsultationHandler {
	return &ConsultationHandler{
		consultationUsecase: consultationUsecase,
		validator:           validator,
	}
}

func (h *ConsultationHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	consultations, err := h.consultationUsecase.ListAll(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Consultations retrieved successfully", consultations)
}

// GetByDate serves /consultations/today. The optional date query parameter
// (dd/MM/yyyy) selects another day.
func (h *ConsultationHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	consultations, err := h.consultationUsecase.ListByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Consultations retrieved successfully", consultations)
}

func (h *ConsultationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ConsultationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	consultation, err := h.consultationUsecase.Book(r.Context(), principal, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Consultation scheduled successfully", consultation)
}

func (h *ConsultationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req dto.ConsultationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	consultation, err := h.consultationUsecase.Reschedule(r.Context(), principal, id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Consultation updated successfully", consultation)
}

func (h *ConsultationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	consultation, err := h.consultationUsecase.Confirm(r.Context(), principal, id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Consultation confirmed successfully", consultation)
}

func (h *ConsultationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	if err := h.consultationUsecase.Cancel(r.Context(), principal, id); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
