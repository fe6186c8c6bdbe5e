package models

import "time"

// VitalName is a global metric definition, deduplicated by name.
type VitalName struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
}

func (VitalName) TableName() string {
	return "vital_names"
}

// VitalCategory holds a user's visibility and accumulation settings for one metric.
type VitalCategory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null" json:"user_id"`
	VitalNameID    uint      `gorm:"not null" json:"vital_name_id"`
	IsPublic       bool      `gorm:"not null" json:"is_public"`
	IsAccumulating bool      `gorm:"not null" json:"is_accumulating"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (VitalCategory) TableName() string {
	return "user_vital_categories"
}

type VitalReading struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null" json:"user_id"`
	VitalNameID uint      `gorm:"not null" json:"vital_name_id"`
	RecordedAt  time.Time `gorm:"not null" json:"recorded_at"`
	Value       float64   `gorm:"not null" json:"value"`
	CreatedAt   time.Time `gorm:"not null" json:"-"`
}

func (VitalReading) TableName() string {
	return "vital_readings"
}
