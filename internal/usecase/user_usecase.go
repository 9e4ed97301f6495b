package usecase

import (
	"context"
	"time"

	"consultation-service/internal/converter"
	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/entity"
	"consultation-service/internal/domain/repository"
	"consultation-service/internal/service"
	"consultation-service/pkg/apperror"
	"consultation-service/pkg/password"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound            = apperror.New(apperror.CodeNotFound, "user not found")
	ErrEmailAlreadyExists      = apperror.New(apperror.CodeConflict, "email already in use")
	ErrUserInactive            = apperror.New(apperror.CodeBadRequest, "user is inactive")
	ErrCurrentPasswordMismatch = apperror.New(apperror.CodeBadRequest, "current password is incorrect")
	ErrInvalidRole             = apperror.New(apperror.CodeBadRequest, "role must be one of MEDIC, PATIENT, NURSE, ADMIN")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type UserUsecase interface {
	FindActive(ctx context.Context) (*dto.UserListResponse, error)
	FindActivePage(ctx context.Context, page, size int) (*dto.UserPageResponse, error)
	FindByID(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	FindByEmail(ctx context.Context, email string) (*dto.UserResponse, error)
	FindByRole(ctx context.Context, role string) (*dto.UserListResponse, error)
	Create(ctx context.Context, principal entity.Principal, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	Update(ctx context.Context, principal entity.Principal, id uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Deactivate(ctx context.Context, principal entity.Principal, id uuid.UUID) error
	Activate(ctx context.Context, principal entity.Principal, id uuid.UUID) error
	ChangePassword(ctx context.Context, principal entity.Principal, id uuid.UUID, currentPassword, newPassword string) (*dto.UserResponse, error)
	CountActive(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

type userUsecase struct {
	log          *logrus.Logger
	loc          *time.Location
	userRepo     repository.UserRepository
	hasher       password.Hasher
	tokenStore   service.TokenStore
	auditService service.AuditService
}

func NewUserUsecase(
	log *logrus.Logger,
	loc *time.Location,
	userRepo repository.UserRepository,
	hasher password.Hasher,
	tokenStore service.TokenStore,
	auditService service.AuditService,
) UserUsecase {
	return &userUsecase{
		log:          log,
		loc:          loc,
		userRepo:     userRepo,
		hasher:       hasher,
		tokenStore:   tokenStore,
		auditService: auditService,
	}
}

func (u *userUsecase) FindActive(ctx context.Context) (*dto.UserListResponse, error) {
	users, err := u.userRepo.FindAllActive(ctx)
	if err != nil {
		u.log.Warnf("Failed to find active users: %+v", err)
		return nil, err
	}

	return &dto.UserListResponse{
		Users: converter.UsersToResponses(users, u.loc),
		Total: len(users),
	}, nil
}

// FindActivePage pages are 1-based. Out-of-range sizes fall back to the default.
func (u *userUsecase) FindActivePage(ctx context.Context, page, size int) (*dto.UserPageResponse, error) {
	page, size = normalizePage(page, size)

	users, total, err := u.userRepo.FindActivePage(ctx, size, (page-1)*size)
	if err != nil {
		u.log.Warnf("Failed to find user page %d: %+v", page, err)
		return nil, err
	}

	return &dto.UserPageResponse{
		Users: converter.UsersToResponses(users, u.loc),
		Page:  page,
		Size:  size,
		Total: total,
	}, nil
}

func (u *userUsecase) FindByID(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindActiveByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", id, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user, u.loc), nil
}

// FindByEmail does not distinguish a missing user from an inactive one.
func (u *userUsecase) FindByEmail(ctx context.Context, email string) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindActiveByEmail(ctx, email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user, u.loc), nil
}

func (u *userUsecase) FindByRole(ctx context.Context, role string) (*dto.UserListResponse, error) {
	parsed, ok := entity.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}

	users, err := u.userRepo.FindActiveByRole(ctx, parsed)
	if err != nil {
		u.log.Warnf("Failed to find users by role %s: %+v", parsed, err)
		return nil, err
	}

	return &dto.UserListResponse{
		Users: converter.UsersToResponses(users, u.loc),
		Total: len(users),
	}, nil
}

func (u *userUsecase) Create(ctx context.Context, principal entity.Principal, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role, ok := entity.ParseRole(req.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	// Inactive accounts keep their email reserved.
	exists, err := u.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		u.log.Warnf("Failed to check email uniqueness: %+v", err)
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := u.hasher.Hash(req.Password)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.User{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     role,
		IsActive: true,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}

	resp := converter.UserToResponse(user, u.loc)
	u.audit(ctx, principal, entity.AuditActionUserCreate, user.ID, nil, resp)
	u.log.Infof("User created: id=%s, role=%s", user.ID, user.Role)

	return resp, nil
}

func (u *userUsecase) Update(ctx context.Context, principal entity.Principal, id uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := u.findAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	before := converter.UserToResponse(user, u.loc)
	previousRole := user.Role

	if req.Email != nil && *req.Email != user.Email {
		exists, err := u.userRepo.ExistsByEmail(ctx, *req.Email)
		if err != nil {
			u.log.Warnf("Failed to check email uniqueness: %+v", err)
			return nil, err
		}
		if exists {
			return nil, ErrEmailAlreadyExists
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		role, ok := entity.ParseRole(*req.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		user.Role = role
	}
	if req.Password != nil {
		hashedPassword, err := u.hasher.Hash(*req.Password)
		if err != nil {
			u.log.Warnf("Failed to hash password: %+v", err)
			return nil, err
		}
		user.Password = hashedPassword
	}

	if err := u.userRepo.Update(ctx, user); err != nil {
		if isDuplicateKeyError(err, "email") {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to update user %s: %+v", id, err)
		return nil, err
	}

	// Live tokens carry the old role and were issued against the old password.
	if req.Password != nil || user.Role != previousRole {
		u.revokeTokens(ctx, id)
	}

	resp := converter.UserToResponse(user, u.loc)
	u.audit(ctx, principal, entity.AuditActionUserUpdate, user.ID, before, resp)

	return resp, nil
}

// Deactivate is idempotent. Outstanding tokens of the user are revoked.
func (u *userUsecase) Deactivate(ctx context.Context, principal entity.Principal, id uuid.UUID) error {
	if err := u.setActive(ctx, principal, id, false); err != nil {
		return err
	}
	u.revokeTokens(ctx, id)
	return nil
}

// Activate is idempotent.
func (u *userUsecase) Activate(ctx context.Context, principal entity.Principal, id uuid.UUID) error {
	return u.setActive(ctx, principal, id, true)
}

func (u *userUsecase) ChangePassword(ctx context.Context, principal entity.Principal, id uuid.UUID, currentPassword, newPassword string) (*dto.UserResponse, error) {
	user, err := u.findAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !u.hasher.Matches(currentPassword, user.Password) {
		return nil, ErrCurrentPasswordMismatch
	}

	hashedPassword, err := u.hasher.Hash(newPassword)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}
	user.Password = hashedPassword

	if err := u.userRepo.Update(ctx, user); err != nil {
		u.log.Warnf("Failed to update password of user %s: %+v", id, err)
		return nil, err
	}

	u.audit(ctx, principal, entity.AuditActionUserChangePassword, user.ID, nil, nil)
	u.revokeTokens(ctx, id)

	return converter.UserToResponse(user, u.loc), nil
}

func (u *userUsecase) CountActive(ctx context.Context) (int64, error) {
	count, err := u.userRepo.CountActive(ctx)
	if err != nil {
		u.log.Warnf("Failed to count active users: %+v", err)
		return 0, err
	}
	return count, nil
}

func (u *userUsecase) CountByRole(ctx context.Context, role string) (int64, error) {
	parsed, ok := entity.ParseRole(role)
	if !ok {
		return 0, ErrInvalidRole
	}

	count, err := u.userRepo.CountActiveByRole(ctx, parsed)
	if err != nil {
		u.log.Warnf("Failed to count users by role %s: %+v", parsed, err)
		return 0, err
	}
	return count, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

// findAny looks a user up regardless of the active flag.
func (u *userUsecase) findAny(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := u.userRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", id, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (u *userUsecase) setActive(ctx context.Context, principal entity.Principal, id uuid.UUID, active bool) error {
	user, err := u.findAny(ctx, id)
	if err != nil {
		return err
	}
	if user.IsActive == active {
		return nil
	}

	user.IsActive = active
	if err := u.userRepo.Update(ctx, user); err != nil {
		u.log.Warnf("Failed to set active=%t on user %s: %+v", active, id, err)
		return err
	}

	action := entity.AuditActionUserDeactivate
	if active {
		action = entity.AuditActionUserActivate
	}
	u.audit(ctx, principal, action, id, !active, active)
	u.log.Infof("User %s active=%t", id, active)

	return nil
}

func (u *userUsecase) revokeTokens(ctx context.Context, userID uuid.UUID) {
	if err := u.tokenStore.RevokeAll(ctx, userID); err != nil {
		u.log.Warnf("Failed to revoke tokens of user %s: %+v", userID, err)
	}
}

func (u *userUsecase) audit(ctx context.Context, principal entity.Principal, action string, userID uuid.UUID, oldValue, newValue interface{}) {
	var err error
	if action == entity.AuditActionUserCreate {
		err = u.auditService.LogCreate(ctx, principal.ActorID(), action, entity.AuditEntityUser, userID.String(), newValue)
	} else {
		err = u.auditService.LogUpdate(ctx, principal.ActorID(), action, entity.AuditEntityUser, userID.String(), oldValue, newValue)
	}
	if err != nil {
		u.log.Warnf("Failed to audit %s of user %s: %+v", action, userID, err)
	}
}
