package repository

import (
	"context"

	"consultation-service/internal/domain/entity"

	"github.com/google/uuid"
)

// UserRepository lookups return (nil, nil) when no row matches. Methods named
// Active only see users whose active flag is set; the others see every user.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindAllActive(ctx context.Context) ([]entity.User, error)
	FindActivePage(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
	FindActiveByRole(ctx context.Context, role entity.Role) ([]entity.User, error)
	CountActive(ctx context.Context) (int64, error)
	CountActiveByRole(ctx context.Context, role entity.Role) (int64, error)
}
