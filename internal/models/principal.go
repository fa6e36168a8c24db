package models

import "time"

// Principal - владелец права доступа. ExternalRef - telegram id из бота.
type Principal struct {
	BaseModel
	ExternalRef string     `gorm:"size:64;uniqueIndex;not null" json:"external_ref"`
	Username    string     `gorm:"size:128" json:"username,omitempty"`
	HasPaid     bool       `gorm:"not null;default:false" json:"has_paid"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// AcceptsPaymentDated реализует правило отзыва: платеж раньше revoked_at
// не возвращает доступ. Неизвестная дата при заданном revoked_at тоже не принимается.
func (p *Principal) AcceptsPaymentDated(paymentDate *time.Time) bool {
	if p.RevokedAt == nil {
		return true
	}
	if paymentDate == nil {
		return false
	}
	return !paymentDate.Before(*p.RevokedAt)
}
