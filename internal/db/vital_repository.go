package db

import (
	"errors"
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VitalNameRepository struct {
	database *gorm.DB
}

func NewVitalNameRepository(database *gorm.DB) *VitalNameRepository {
	return &VitalNameRepository{database: database}
}

func (repo *VitalNameRepository) ListAll() ([]models.VitalName, error) {
	names := make([]models.VitalName, 0)
	if err := repo.database.Order("id ASC").Find(&names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (repo *VitalNameRepository) ListByIDs(ids []uint) ([]models.VitalName, error) {
	names := make([]models.VitalName, 0, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	if err := repo.database.Where("id IN ?", ids).Order("id ASC").Find(&names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (repo *VitalNameRepository) FindByID(id uint) (models.VitalName, bool, error) {
	return findOne[models.VitalName](repo.database.Where("id = ?", id))
}

func (repo *VitalNameRepository) FindByName(name string) (models.VitalName, bool, error) {
	return findOne[models.VitalName](repo.database.Where("name = ?", name))
}

// Ensure returns the definition named name, creating it when missing.
func (repo *VitalNameRepository) Ensure(name string) (models.VitalName, error) {
	row := models.VitalName{Name: name, CreatedAt: time.Now().UTC()}
	if err := repo.database.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&row).Error; err != nil {
		return models.VitalName{}, err
	}

	found, ok, err := repo.FindByName(name)
	if err != nil {
		return models.VitalName{}, err
	}
	if !ok {
		return models.VitalName{}, gorm.ErrRecordNotFound
	}
	return found, nil
}

type VitalCategoryRepository struct {
	database *gorm.DB
}

func NewVitalCategoryRepository(database *gorm.DB) *VitalCategoryRepository {
	return &VitalCategoryRepository{database: database}
}

// CategoryWithName is a visibility row joined with its metric name.
type CategoryWithName struct {
	models.VitalCategory
	Name string
}

// CohortCandidate is a user who made a metric public.
type CohortCandidate struct {
	UserID         uint
	IsAccumulating bool
}

// CandidateFilter narrows cohort candidates by demographics. Users with an
// unknown date of birth or sex never match a filter on that attribute.
type CandidateFilter struct {
	BornOnOrBefore *time.Time
	BornAfter      *time.Time
	Sex            string
}

func (repo *VitalCategoryRepository) Create(category *models.VitalCategory) error {
	return repo.database.Create(category).Error
}

func (repo *VitalCategoryRepository) FindByUserAndName(userID uint, vitalNameID uint) (models.VitalCategory, bool, error) {
	return findOne[models.VitalCategory](repo.database.Where("user_id = ? AND vital_name_id = ?", userID, vitalNameID))
}

func (repo *VitalCategoryRepository) FindOwned(categoryID uint, userID uint) (models.VitalCategory, bool, error) {
	return findOne[models.VitalCategory](repo.database.Where("id = ? AND user_id = ?", categoryID, userID))
}

func (repo *VitalCategoryRepository) UpdateFlags(categoryID uint, isPublic bool, isAccumulating bool) error {
	return repo.database.Model(&models.VitalCategory{}).Where("id = ?", categoryID).Updates(map[string]any{
		"is_public":       isPublic,
		"is_accumulating": isAccumulating,
		"updated_at":      time.Now().UTC(),
	}).Error
}

func (repo *VitalCategoryRepository) ListByUser(userID uint) ([]CategoryWithName, error) {
	return repo.listWithNames(repo.database.Where("c.user_id = ?", userID))
}

func (repo *VitalCategoryRepository) ListPublicByUser(userID uint) ([]CategoryWithName, error) {
	return repo.listWithNames(repo.database.Where("c.user_id = ? AND c.is_public = ?", userID, true))
}

func (repo *VitalCategoryRepository) listWithNames(scope *gorm.DB) ([]CategoryWithName, error) {
	rows := make([]CategoryWithName, 0)
	if err := scope.
		Table("user_vital_categories AS c").
		Select("c.*, n.name AS name").
		Joins("JOIN vital_names AS n ON n.id = c.vital_name_id").
		Order("c.vital_name_id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (repo *VitalCategoryRepository) ListPublicCandidates(vitalNameID uint, filter CandidateFilter) ([]CohortCandidate, error) {
	query := repo.database.
		Table("user_vital_categories AS c").
		Select("c.user_id AS user_id, c.is_accumulating AS is_accumulating").
		Joins("JOIN users AS u ON u.id = c.user_id").
		Where("c.vital_name_id = ? AND c.is_public = ?", vitalNameID, true)
	if filter.BornOnOrBefore != nil {
		query = query.Where("u.date_of_birth IS NOT NULL AND u.date_of_birth <= ?", filter.BornOnOrBefore.UTC())
	}
	if filter.BornAfter != nil {
		query = query.Where("u.date_of_birth IS NOT NULL AND u.date_of_birth > ?", filter.BornAfter.UTC())
	}
	if filter.Sex != "" {
		query = query.Where("u.sex = ?", filter.Sex)
	}

	candidates := make([]CohortCandidate, 0)
	if err := query.Order("c.user_id ASC").Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

type VitalReadingRepository struct {
	database *gorm.DB
}

func NewVitalReadingRepository(database *gorm.DB) *VitalReadingRepository {
	return &VitalReadingRepository{database: database}
}

func (repo *VitalReadingRepository) Create(reading *models.VitalReading) error {
	reading.RecordedAt = reading.RecordedAt.UTC()
	return repo.database.Create(reading).Error
}

// LatestInWindow returns the reading with the greatest timestamp inside the
// inclusive window; equal timestamps resolve to the last inserted row.
func (repo *VitalReadingRepository) LatestInWindow(userID uint, vitalNameID uint, from *time.Time, to *time.Time) (models.VitalReading, bool, error) {
	query := windowScope(repo.database, userID, vitalNameID, from, to).Order("recorded_at DESC, id DESC")
	return findOne[models.VitalReading](query)
}

func (repo *VitalReadingRepository) ListInWindow(userID uint, vitalNameID uint, from *time.Time, to *time.Time) ([]models.VitalReading, error) {
	readings := make([]models.VitalReading, 0)
	if err := windowScope(repo.database, userID, vitalNameID, from, to).
		Order("recorded_at ASC, id ASC").
		Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

// ListRecentByUser returns the newest readings first, optionally for one metric.
func (repo *VitalReadingRepository) ListRecentByUser(userID uint, vitalNameID *uint, limit int) ([]models.VitalReading, error) {
	query := repo.database.Where("user_id = ?", userID)
	if vitalNameID != nil {
		query = query.Where("vital_name_id = ?", *vitalNameID)
	}

	readings := make([]models.VitalReading, 0)
	if err := query.Order("recorded_at DESC, id DESC").Limit(limit).Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (repo *VitalReadingRepository) ListByUser(userID uint) ([]models.VitalReading, error) {
	readings := make([]models.VitalReading, 0)
	if err := repo.database.
		Where("user_id = ?", userID).
		Order("vital_name_id ASC, recorded_at ASC, id ASC").
		Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func windowScope(database *gorm.DB, userID uint, vitalNameID uint, from *time.Time, to *time.Time) *gorm.DB {
	query := database.Model(&models.VitalReading{}).Where("user_id = ? AND vital_name_id = ?", userID, vitalNameID)
	if from != nil {
		query = query.Where("recorded_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("recorded_at <= ?", to.UTC())
	}
	return query
}

func findOne[T any](query *gorm.DB) (T, bool, error) {
	var row T
	err := query.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, err
	}
	return row, true, nil
}
