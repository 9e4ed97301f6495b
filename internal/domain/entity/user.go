package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMedic   Role = "MEDIC"
	RolePatient Role = "PATIENT"
	RoleNurse   Role = "NURSE"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole accepts a role name in any letter case.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	switch role {
	case RoleMedic, RolePatient, RoleNurse, RoleAdmin:
		return role, true
	}
	return "", false
}

func (r Role) String() string {
	return string(r)
}

// User is an account of any role. Users are never deleted, only deactivated.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:text;not null" json:"-"`
	Role      Role      `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive  bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsMedic() bool {
	return u.Role == RoleMedic
}
