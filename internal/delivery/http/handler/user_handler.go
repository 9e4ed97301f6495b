package handler

import (
	"net/http"

	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/delivery/http/middleware"
	"consultation-service/internal/domain/entity"
	"consultation-service/internal/usecase"
	"consultation-service/pkg/response"
	"consultation-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type UserHandler struct {
	userUsecase usecase.UserUsecase
	validator   *validator.CustomValidator
}

func NewUserHandler(userUsecase usecase.UserUsecase, validator *validator.CustomValidator) *UserHandler {
	return &UserHandler{
		userUsecase: userUsecase,
		validator:   validator,
	}
}

func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUsecase.FindActive(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.userUsecase.FindActivePage(r.Context(), queryInt(r, "page", 1), queryInt(r, "size", 0))
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.SuccessWithMeta(w, http.StatusOK, "Users retrieved successfully", page.Users,
		response.NewMeta(page.Page, page.Size, page.Total))
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userUsecase.FindByID(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUsecase.FindByEmail(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) GetByRole(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUsecase.FindByRole(r.Context(), mux.Vars(r)["role"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.userUsecase.CountActive(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Users counted successfully", dto.CountResponse{Count: count})
}

func (h *UserHandler) CountByRole(w http.ResponseWriter, r *http.Request) {
	count, err := h.userUsecase.CountByRole(r.Context(), mux.Vars(r)["role"])
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Users counted successfully", dto.CountResponse{Count: count})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	user, err := h.userUsecase.Create(r.Context(), principal, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "User created successfully", user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, principal, ok := h.managedUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	// Only admins may change roles.
	if req.Role != nil && principal.Role != entity.RoleAdmin {
		response.Forbidden(w, "Only administrators can change roles")
		return
	}

	user, err := h.userUsecase.Update(r.Context(), principal, id, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "User updated successfully", user)
}

func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	if err := h.userUsecase.Deactivate(r.Context(), principal, id); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *UserHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	if err := h.userUsecase.Activate(r.Context(), principal, id); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}

// ChangePassword reads currentPassword and newPassword from the query string,
// or from a JSON body when the query carries neither.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, principal, ok := h.managedUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := dto.ChangePasswordRequest{
		CurrentPassword: query.Get("currentPassword"),
		NewPassword:     query.Get("newPassword"),
	}
	if req.CurrentPassword == "" && req.NewPassword == "" {
		if !decodeAndValidate(w, r, h.validator, &req) {
			return
		}
	} else if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	user, err := h.userUsecase.ChangePassword(r.Context(), principal, id, req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Password changed successfully", user)
}

// managedUser resolves the target user id and checks that the caller is that
// user or an administrator.
func (h *UserHandler) managedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, entity.Principal, bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return uuid.Nil, entity.Principal{}, false
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	if principal.UserID != id && principal.Role != entity.RoleAdmin {
		response.Forbidden(w, "You can only manage your own account")
		return uuid.Nil, entity.Principal{}, false
	}

	return id, principal, true
}
