package repository

import (
	"context"
	"errors"
	"time"

	"consultation-service/internal/domain/entity"
	domainRepo "consultation-service/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type consultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) domainRepo.ConsultationRepository {
	return &consultationRepository{db: db}
}

// CreateWithNoOverlap serializes writers per medic with a transaction-scoped
// advisory lock, so two replicas cannot both pass the overlap check for the
// same empty slot.
func (r *consultationRepository) CreateWithNoOverlap(ctx context.Context, c *entity.Consultation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMedic(tx, c.MedicID); err != nil {
			return err
		}
		if err := checkOverlap(tx, c, false); err != nil {
			return err
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		return tx.Omit(clause.Associations).Create(c).Error
	})
}

func (r *consultationRepository) UpdateWithNoOverlap(ctx context.Context, c *entity.Consultation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMedic(tx, c.MedicID); err != nil {
			return err
		}

		var stored entity.Consultation
		err := tx.Model(&entity.Consultation{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			Where("id = ?", c.ID).
			Take(&stored).Error
		if err != nil {
			return err
		}
		if !stored.IsScheduled() {
			return domainRepo.ErrNotScheduled
		}

		if err := checkOverlap(tx, c, true); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(c).Error
	})
}

// TransitionStatus is a single conditional UPDATE, so concurrent transitions
// of the same consultation cannot both succeed.
func (r *consultationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.ConsultationStatus, to entity.ConsultationStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Consultation{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *consultationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Consultation, error) {
	var c entity.Consultation
	err := r.db.WithContext(ctx).
		Preload("Medic").
		Preload("Patient").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *consultationRepository) FindAll(ctx context.Context) ([]entity.Consultation, error) {
	var consultations []entity.Consultation
	err := r.db.WithContext(ctx).
		Preload("Medic").
		Preload("Patient").
		Order("start_time ASC").
		Find(&consultations).Error
	if err != nil {
		return nil, err
	}
	return consultations, nil
}

// FindByStartBetween returns consultations whose start lies in [from, to].
func (r *consultationRepository) FindByStartBetween(ctx context.Context, from, to time.Time) ([]entity.Consultation, error) {
	var consultations []entity.Consultation
	err := r.db.WithContext(ctx).
		Preload("Medic").
		Preload("Patient").
		Where("start_time >= ? AND start_time <= ?", from, to).
		Order("start_time ASC").
		Find(&consultations).Error
	if err != nil {
		return nil, err
	}
	return consultations, nil
}

func lockMedic(tx *gorm.DB, medicID uuid.UUID) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", medicID.String()).Error
}

// checkOverlap locks any active consultation of the medic that intersects
// [c.StartTime, c.EndTime) and reports ErrOverlap if one exists.
func checkOverlap(tx *gorm.DB, c *entity.Consultation, excludeSelf bool) error {
	query := tx.Model(&entity.Consultation{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("medic_id = ? AND status IN ?", c.MedicID, entity.ActiveConsultationStatuses).
		Where("start_time < ? AND end_time > ?", c.EndTime, c.StartTime)
	if excludeSelf {
		query = query.Where("id <> ?", c.ID)
	}

	var existing entity.Consultation
	err := query.Take(&existing).Error
	if err == nil {
		return domainRepo.ErrOverlap
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
