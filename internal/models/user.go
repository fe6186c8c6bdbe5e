package models

import "time"

const (
	SexMale   = "male"
	SexFemale = "female"
	SexOther  = "other"
)

type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Email       string     `gorm:"not null" json:"email"`
	Username    string     `gorm:"not null;default:''" json:"username"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Sex         string     `gorm:"not null;default:''" json:"sex"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// AgeAt returns the age in whole years on the calendar day of now.
// The second result is false when the date of birth is unknown.
func (user User) AgeAt(now time.Time) (int, bool) {
	if user.DateOfBirth == nil {
		return 0, false
	}
	birth := *user.DateOfBirth
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0, true
	}
	return age, true
}

func IsValidSex(value string) bool {
	switch value {
	case SexMale, SexFemale, SexOther:
		return true
	default:
		return false
	}
}

// UserFriend is one direction of a friendship. Both directions are stored.
type UserFriend struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	FriendID  uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"not null"`
}

func (UserFriend) TableName() string {
	return "user_friends"
}
