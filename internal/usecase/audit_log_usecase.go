package usecase

import (
	"context"
	"time"

	"consultation-service/internal/converter"
	"consultation-service/internal/delivery/dto"
	"consultation-service/internal/domain/repository"
	"consultation-service/pkg/apperror"

	"github.com/sirupsen/logrus"
)

var (
	ErrAuditLogNotFound = apperror.New(apperror.CodeNotFound, "audit log not found")
)

type AuditLogUsecase interface {
	GetAuditLogs(ctx context.Context, page, size int) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	log          *logrus.Logger
	loc          *time.Location
	auditLogRepo repository.AuditLogRepository
}

func NewAuditLogUsecase(
	log *logrus.Logger,
	loc *time.Location,
	auditLogRepo repository.AuditLogRepository,
) AuditLogUsecase {
	return &auditLogUsecase{
		log:          log,
		loc:          loc,
		auditLogRepo: auditLogRepo,
	}
}

// GetAuditLogs returns the newest entries first.
func (u *auditLogUsecase) GetAuditLogs(ctx context.Context, page, size int) (*dto.AuditLogListResponse, error) {
	page, size = normalizePage(page, size)

	logs, total, err := u.auditLogRepo.FindAll(ctx, size, (page-1)*size)
	if err != nil {
		u.log.Warnf("Failed to find audit logs: %+v", err)
		return nil, err
	}

	return &dto.AuditLogListResponse{
		Logs:  converter.AuditLogsToResponses(logs, u.loc),
		Page:  page,
		Size:  size,
		Total: total,
	}, nil
}

func (u *auditLogUsecase) GetAuditLog(ctx context.Context, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.auditLogRepo.FindByID(ctx, id)
	if err != nil {
		u.log.Warnf("Failed to find audit log: %+v", err)
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}

	return converter.AuditLogToResponse(auditLog, u.loc), nil
}
