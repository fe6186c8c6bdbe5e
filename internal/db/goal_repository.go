package db

import (
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type GoalRepository struct {
	database *gorm.DB
}

func NewGoalRepository(database *gorm.DB) *GoalRepository {
	return &GoalRepository{database: database}
}

func (repo *GoalRepository) Create(goal *models.Goal) error {
	return repo.database.Create(goal).Error
}

func (repo *GoalRepository) ExistsForMetric(userID uint, vitalNameID uint) (bool, error) {
	var count int64
	if err := repo.database.Model(&models.Goal{}).
		Where("user_id = ? AND vital_name_id = ?", userID, vitalNameID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (repo *GoalRepository) FindOwned(goalID uint, userID uint) (models.Goal, bool, error) {
	return findOne[models.Goal](repo.database.Where("id = ? AND user_id = ?", goalID, userID))
}

func (repo *GoalRepository) ListByUser(userID uint) ([]models.Goal, error) {
	goals := make([]models.Goal, 0)
	if err := repo.database.Where("user_id = ?", userID).Order("id ASC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (repo *GoalRepository) Update(goalID uint, targetValue float64, startDate time.Time, endDate time.Time) error {
	return repo.database.Model(&models.Goal{}).Where("id = ?", goalID).Updates(map[string]any{
		"target_value": targetValue,
		"start_date":   startDate.UTC(),
		"end_date":     endDate.UTC(),
		"updated_at":   time.Now().UTC(),
	}).Error
}

// DeleteOwned removes the goal and reports whether a row matched.
func (repo *GoalRepository) DeleteOwned(goalID uint, userID uint) (bool, error) {
	result := repo.database.Where("id = ? AND user_id = ?", goalID, userID).Delete(&models.Goal{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
