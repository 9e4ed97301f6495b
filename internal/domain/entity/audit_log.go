package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditLog records who changed which entity and how. UserID is the acting
// user and stays nil for unauthenticated actions such as self-registration.
type AuditLog struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action     string     `gorm:"type:varchar(100);not null;index" json:"action"`
	EntityName string     `gorm:"column:entity;type:varchar(50);not null;index:idx_audit_logs_entity,priority:1" json:"entity"`
	EntityID   string     `gorm:"type:varchar(64);not null;index:idx_audit_logs_entity,priority:2" json:"entity_id"`
	Metadata   JSON       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON maps a jsonb column to a Go map.
type JSON map[string]interface{}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSON) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}

	result := map[string]interface{}{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// Audit actions recorded for state changes
const (
	AuditActionUserCreate             = "user.create"
	AuditActionUserUpdate             = "user.update"
	AuditActionUserDeactivate         = "user.deactivate"
	AuditActionUserActivate           = "user.activate"
	AuditActionUserChangePassword     = "user.change_password"
	AuditActionUserLogin              = "user.login"
	AuditActionConsultationBook       = "consultation.book"
	AuditActionConsultationReschedule = "consultation.reschedule"
	AuditActionConsultationConfirm    = "consultation.confirm"
	AuditActionConsultationCancel     = "consultation.cancel"
	AuditActionConsultationComplete   = "consultation.complete"
)

// Audited entity names
const (
	AuditEntityUser         = "user"
	AuditEntityConsultation = "consultation"
)
