package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	database *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{database: database}
}

func (repo *UserRepository) FindByID(userID uint) (models.User, error) {
	var user models.User
	if err := repo.database.First(&user, userID).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (repo *UserRepository) FindByNormalizedEmail(email string) (models.User, bool, error) {
	var user models.User
	err := repo.database.Where("lower(trim(email)) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

func (repo *UserRepository) ListByIDs(userIDs []uint) ([]models.User, error) {
	users := make([]models.User, 0, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	if err := repo.database.Where("id IN ?", userIDs).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (repo *UserRepository) Create(user *models.User) error {
	return repo.database.Create(user).Error
}

func (repo *UserRepository) UpdateProfile(userID uint, username string, dateOfBirth *time.Time, sex string) error {
	return repo.database.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"username":      username,
		"date_of_birth": dateOfBirth,
		"sex":           sex,
		"updated_at":    time.Now().UTC(),
	}).Error
}
