package models

import "time"

type AuthChallenge struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null"`
	CodeHash  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (challenge AuthChallenge) ExpiredAt(now time.Time) bool {
	return !now.Before(challenge.ExpiresAt)
}
