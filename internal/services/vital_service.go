package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
	maxMetricNameRunes = 64
)

type CategoryView struct {
	ID             uint   `json:"id"`
	VitalNameID    uint   `json:"vital_name_id"`
	MetricName     string `json:"data_name"`
	IsPublic       bool   `json:"is_public"`
	IsAccumulating bool   `json:"is_accumulating"`
}

type CategoryInput struct {
	MetricName     string
	IsPublic       bool
	IsAccumulating bool
}

// ReadingInput names the metric by id or by name. A name that does not
// exist yet creates the metric definition.
type ReadingInput struct {
	VitalNameID *uint
	MetricName  string
	Value       float64
	RecordedAt  time.Time
}

type ReadingView struct {
	ID          uint      `json:"id"`
	VitalNameID uint      `json:"vital_name_id"`
	MetricName  string    `json:"data_name"`
	Value       float64   `json:"value"`
	RecordedAt  time.Time `json:"date"`
}

type LifeLogPoint struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

type LifeLogSeries struct {
	MetricName string         `json:"data_name"`
	Points     []LifeLogPoint `json:"vitaldata_list"`
}

type VitalService struct {
	store Store
}

func NewVitalService(store Store) *VitalService {
	return &VitalService{store: store}
}

func (service *VitalService) ListNames(ctx context.Context) ([]models.VitalName, error) {
	var names []models.VitalName
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		var err error
		names, err = tx.VitalNames.ListAll()
		return err
	})
	return names, err
}

func (service *VitalService) ListCategories(ctx context.Context, userID uint) ([]CategoryView, error) {
	views := make([]CategoryView, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		rows, err := tx.Categories.ListByUser(userID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			views = append(views, newCategoryView(row.VitalCategory, row.Name))
		}
		return nil
	})
	return views, err
}

// CreateCategory configures a metric for the user. When the user already
// configured it, the existing row is returned unchanged with created=false.
func (service *VitalService) CreateCategory(ctx context.Context, userID uint, input CategoryInput) (CategoryView, bool, error) {
	name, err := normalizeMetricName(input.MetricName)
	if err != nil {
		return CategoryView{}, false, err
	}

	var view CategoryView
	created := false
	err = service.store.Transaction(ctx, func(tx *db.Repositories) error {
		metric, err := tx.VitalNames.Ensure(name)
		if err != nil {
			return err
		}

		existing, ok, err := tx.Categories.FindByUserAndName(userID, metric.ID)
		if err != nil {
			return err
		}
		if ok {
			view = newCategoryView(existing, metric.Name)
			return nil
		}

		now := time.Now().UTC()
		category := models.VitalCategory{
			UserID:         userID,
			VitalNameID:    metric.ID,
			IsPublic:       input.IsPublic,
			IsAccumulating: input.IsAccumulating,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Categories.Create(&category); err != nil {
			return err
		}
		view = newCategoryView(category, metric.Name)
		created = true
		return nil
	})
	return view, created, err
}

func (service *VitalService) UpdateCategory(ctx context.Context, userID uint, categoryID uint, isPublic bool, isAccumulating bool) (CategoryView, error) {
	var view CategoryView
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		category, ok, err := tx.Categories.FindOwned(categoryID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCategoryNotFound
		}
		if err := tx.Categories.UpdateFlags(category.ID, isPublic, isAccumulating); err != nil {
			return err
		}
		metric, _, err := tx.VitalNames.FindByID(category.VitalNameID)
		if err != nil {
			return err
		}
		category.IsPublic = isPublic
		category.IsAccumulating = isAccumulating
		view = newCategoryView(category, metric.Name)
		return nil
	})
	return view, err
}

// RegisterReading appends one reading. It never creates a visibility row.
func (service *VitalService) RegisterReading(ctx context.Context, userID uint, input ReadingInput, source string) (ReadingView, error) {
	if !isFinite(input.Value) {
		return ReadingView{}, ErrInvalidInput
	}
	if input.RecordedAt.IsZero() {
		input.RecordedAt = time.Now()
	}

	var view ReadingView
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		metric, err := resolveReadingMetric(tx, input)
		if err != nil {
			return err
		}

		reading := models.VitalReading{
			UserID:      userID,
			VitalNameID: metric.ID,
			RecordedAt:  input.RecordedAt.UTC(),
			Value:       input.Value,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tx.Readings.Create(&reading); err != nil {
			return err
		}
		view = newReadingView(reading, metric.Name)
		return nil
	})
	if err == nil {
		metrics.RecordReadingRegistered(source)
	}
	return view, err
}

// Recent returns the newest readings of the user, optionally of one metric.
func (service *VitalService) Recent(ctx context.Context, userID uint, metricName string, limit int) ([]ReadingView, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	views := make([]ReadingView, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		var filter *uint
		if name := strings.TrimSpace(metricName); name != "" {
			metric, ok, err := tx.VitalNames.FindByName(name)
			if err != nil {
				return err
			}
			if !ok {
				return ErrMetricNotFound
			}
			filter = &metric.ID
		}

		readings, err := tx.Readings.ListRecentByUser(userID, filter, limit)
		if err != nil {
			return err
		}
		names, err := metricNamesByID(tx, readingMetricIDs(readings))
		if err != nil {
			return err
		}
		for _, reading := range readings {
			views = append(views, newReadingView(reading, names[reading.VitalNameID]))
		}
		return nil
	})
	return views, err
}

// LifeLogs groups every reading of the user into one chronological series
// per metric.
func (service *VitalService) LifeLogs(ctx context.Context, userID uint) ([]LifeLogSeries, error) {
	series := make([]LifeLogSeries, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		readings, err := tx.Readings.ListByUser(userID)
		if err != nil {
			return err
		}
		names, err := metricNamesByID(tx, readingMetricIDs(readings))
		if err != nil {
			return err
		}

		positions := make(map[uint]int)
		for _, reading := range readings {
			index, seen := positions[reading.VitalNameID]
			if !seen {
				index = len(series)
				positions[reading.VitalNameID] = index
				series = append(series, LifeLogSeries{MetricName: names[reading.VitalNameID], Points: []LifeLogPoint{}})
			}
			series[index].Points = append(series[index].Points, LifeLogPoint{X: reading.RecordedAt.UTC(), Y: reading.Value})
		}
		return nil
	})
	return series, err
}

func resolveReadingMetric(tx *db.Repositories, input ReadingInput) (models.VitalName, error) {
	if input.VitalNameID != nil {
		metric, ok, err := tx.VitalNames.FindByID(*input.VitalNameID)
		if err != nil {
			return models.VitalName{}, err
		}
		if !ok {
			return models.VitalName{}, ErrMetricNotFound
		}
		return metric, nil
	}

	name, err := normalizeMetricName(input.MetricName)
	if err != nil {
		return models.VitalName{}, err
	}
	metric, err := tx.VitalNames.Ensure(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.VitalName{}, ErrMetricNotFound
	}
	return metric, err
}

func normalizeMetricName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || len([]rune(name)) > maxMetricNameRunes {
		return "", ErrInvalidInput
	}
	return name, nil
}

func readingMetricIDs(readings []models.VitalReading) []uint {
	seen := make(map[uint]struct{}, len(readings))
	ids := make([]uint, 0)
	for _, reading := range readings {
		if _, ok := seen[reading.VitalNameID]; ok {
			continue
		}
		seen[reading.VitalNameID] = struct{}{}
		ids = append(ids, reading.VitalNameID)
	}
	return ids
}

func newCategoryView(category models.VitalCategory, name string) CategoryView {
	return CategoryView{
		ID:             category.ID,
		VitalNameID:    category.VitalNameID,
		MetricName:     name,
		IsPublic:       category.IsPublic,
		IsAccumulating: category.IsAccumulating,
	}
}

func newReadingView(reading models.VitalReading, name string) ReadingView {
	return ReadingView{
		ID:          reading.ID,
		VitalNameID: reading.VitalNameID,
		MetricName:  name,
		Value:       reading.Value,
		RecordedAt:  reading.RecordedAt.UTC(),
	}
}
