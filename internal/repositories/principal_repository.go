package repositories

import (
	"time"

	"paywall_backend/internal/models"

	"gorm.io/gorm"
)

type PrincipalRepository interface {
	FindByID(db *gorm.DB, id uint) (*models.Principal, error)
	FindByRef(db *gorm.DB, ref string) (*models.Principal, error)
	FindOrCreate(db *gorm.DB, ref, username string) (*models.Principal, error)

	// Условные записи: возвращают true, только если строка реально изменилась
	GrantEntitlement(db *gorm.DB, id uint) (bool, error)
	RevokeEntitlement(db *gorm.DB, id uint, at time.Time) (bool, error)
}

type PrincipalRepositoryImpl struct{}

func NewPrincipalRepository() PrincipalRepository {
	return &PrincipalRepositoryImpl{}
}

func (r *PrincipalRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.Principal, error) {
	var p models.Principal
	if err := db.First(&p, id).Error; err != nil {
		return nil, mapNotFound(err, ErrPrincipalNotFound)
	}
	return &p, nil
}

func (r *PrincipalRepositoryImpl) FindByRef(db *gorm.DB, ref string) (*models.Principal, error) {
	var p models.Principal
	if err := db.Where("external_ref = ?", ref).First(&p).Error; err != nil {
		return nil, mapNotFound(err, ErrPrincipalNotFound)
	}
	return &p, nil
}

// FindOrCreate регистрирует пользователя при первом обращении.
// Гонка двух вставок разрешается повторным чтением.
func (r *PrincipalRepositoryImpl) FindOrCreate(db *gorm.DB, ref, username string) (*models.Principal, error) {
	p, err := r.FindByRef(db, ref)
	if err == nil {
		return p, nil
	}
	if err != ErrPrincipalNotFound {
		return nil, err
	}

	p = &models.Principal{ExternalRef: ref, Username: username}
	if err := db.Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return r.FindByRef(db, ref)
		}
		return nil, err
	}
	return p, nil
}

// GrantEntitlement выставляет has_paid и сбрасывает revoked_at.
// Повторный вызов ничего не пишет.
func (r *PrincipalRepositoryImpl) GrantEntitlement(db *gorm.DB, id uint) (bool, error) {
	result := db.Model(&models.Principal{}).
		Where("id = ? AND (has_paid = ? OR revoked_at IS NOT NULL)", id, false).
		Updates(map[string]interface{}{
			"has_paid":   true,
			"revoked_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeEntitlement отзывает доступ, только если он был выдан
func (r *PrincipalRepositoryImpl) RevokeEntitlement(db *gorm.DB, id uint, at time.Time) (bool, error) {
	result := db.Model(&models.Principal{}).
		Where("id = ? AND has_paid = ?", id, true).
		Updates(map[string]interface{}{
			"has_paid":   false,
			"revoked_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
