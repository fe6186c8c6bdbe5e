package db

import (
	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type ChallengeRepository struct {
	database *gorm.DB
}

func NewChallengeRepository(database *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{database: database}
}

// Replace deletes every challenge of the user and stores challenge.
func (repo *ChallengeRepository) Replace(challenge *models.AuthChallenge) error {
	if err := repo.database.Where("user_id = ?", challenge.UserID).Delete(&models.AuthChallenge{}).Error; err != nil {
		return err
	}
	return repo.database.Create(challenge).Error
}

func (repo *ChallengeRepository) FindActiveByUser(userID uint) (models.AuthChallenge, bool, error) {
	return findOne[models.AuthChallenge](
		repo.database.Where("user_id = ? AND used = ?", userID, false).Order("id DESC"),
	)
}

// MarkUsed consumes the challenge. It reports false when another request
// consumed it first.
func (repo *ChallengeRepository) MarkUsed(challengeID uint) (bool, error) {
	result := repo.database.Model(&models.AuthChallenge{}).
		Where("id = ? AND used = ?", challengeID, false).
		Update("used", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
