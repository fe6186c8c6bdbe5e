package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

const maxUsernameRunes = 50

type ProfileInput struct {
	Username    string
	DateOfBirth *time.Time
	Sex         string
}

type ProfileService struct {
	store Store
	now   func() time.Time
}

func NewProfileService(store Store) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

func (service *ProfileService) Get(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		var err error
		user, err = findUser(tx, userID)
		return err
	})
	return user, err
}

func (service *ProfileService) Update(ctx context.Context, userID uint, input ProfileInput) (models.User, error) {
	username := strings.TrimSpace(input.Username)
	if len([]rune(username)) > maxUsernameRunes {
		return models.User{}, ErrInvalidInput
	}
	sex := strings.ToLower(strings.TrimSpace(input.Sex))
	if sex != "" && !models.IsValidSex(sex) {
		return models.User{}, ErrInvalidInput
	}

	var dateOfBirth *time.Time
	if input.DateOfBirth != nil {
		day := CalendarDate(*input.DateOfBirth, time.UTC)
		if day.After(service.now().UTC()) {
			return models.User{}, ErrInvalidInput
		}
		dateOfBirth = &day
	}

	var user models.User
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		current, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		if username == "" {
			username = current.Username
		}
		if err := tx.Users.UpdateProfile(userID, username, dateOfBirth, sex); err != nil {
			return err
		}
		user, err = findUser(tx, userID)
		return err
	})
	return user, err
}

func findUser(tx *db.Repositories, userID uint) (models.User, error) {
	user, err := tx.Users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}
