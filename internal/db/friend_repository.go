package db

import (
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendRepository struct {
	database *gorm.DB
}

func NewFriendRepository(database *gorm.DB) *FriendRepository {
	return &FriendRepository{database: database}
}

// AddPair stores both directions of a friendship, skipping rows that exist.
func (repo *FriendRepository) AddPair(userID uint, friendID uint) error {
	now := time.Now().UTC()
	rows := []models.UserFriend{
		{UserID: userID, FriendID: friendID, CreatedAt: now},
		{UserID: friendID, FriendID: userID, CreatedAt: now},
	}
	return repo.database.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (repo *FriendRepository) ListFriendIDs(userID uint) ([]uint, error) {
	ids := make([]uint, 0)
	if err := repo.database.Model(&models.UserFriend{}).
		Where("user_id = ?", userID).
		Order("friend_id ASC").
		Pluck("friend_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (repo *FriendRepository) Exists(userID uint, friendID uint) (bool, error) {
	var count int64
	if err := repo.database.Model(&models.UserFriend{}).
		Where("user_id = ? AND friend_id = ?", userID, friendID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
