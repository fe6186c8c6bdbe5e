package services

import (
	"context"
	"strings"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/models"
)

type CohortQuery struct {
	MetricName string
	MinAge     *int
	MaxAge     *int
	Sex        string
}

// CohortStatistics holds nil fields where no data exists. A nil average or
// percentile is never reported as zero.
type CohortStatistics struct {
	Average    *float64 `json:"average"`
	YourValue  *float64 `json:"your_value"`
	Percentile *float64 `json:"percentile"`
	CohortSize int      `json:"cohort_size"`
}

type StatisticsService struct {
	store    Store
	resolver *ValueResolver
	now      func() time.Time
}

func NewStatisticsService(store Store, resolver *ValueResolver) *StatisticsService {
	return &StatisticsService{store: store, resolver: resolver, now: time.Now}
}

func (service *StatisticsService) Compute(ctx context.Context, requesterID uint, query CohortQuery) (CohortStatistics, error) {
	defer metrics.TrackAggregation("cohort")(time.Now())

	filter, err := service.candidateFilter(query)
	if err != nil {
		return CohortStatistics{}, err
	}

	var result CohortStatistics
	err = service.store.Transaction(ctx, func(tx *db.Repositories) error {
		metric, ok, err := tx.VitalNames.FindByName(strings.TrimSpace(query.MetricName))
		if err != nil {
			return err
		}
		if !ok {
			return ErrMetricNotFound
		}

		candidates, err := tx.Categories.ListPublicCandidates(metric.ID, filter)
		if err != nil {
			return err
		}

		values := make([]float64, 0, len(candidates))
		for _, candidate := range candidates {
			value, ok, err := service.resolver.Resolve(tx.Readings, candidate.UserID, metric.ID, Window{}, candidate.IsAccumulating)
			if err != nil {
				return err
			}
			if ok {
				values = append(values, value)
			}
		}
		result.CohortSize = len(values)
		if average, ok := Average(values); ok {
			result.Average = &average
		}

		own, ok, err := service.resolveOwn(tx, requesterID, metric.ID)
		if err != nil {
			return err
		}
		if ok {
			result.YourValue = &own
			if rank, ok := PercentileRank(values, own); ok {
				result.Percentile = &rank
			}
		}
		return nil
	})
	return result, err
}

func (service *StatisticsService) resolveOwn(tx *db.Repositories, userID uint, vitalNameID uint) (float64, bool, error) {
	category, ok, err := tx.Categories.FindByUserAndName(userID, vitalNameID)
	if err != nil || !ok {
		return 0, false, err
	}
	return service.resolver.Resolve(tx.Readings, userID, vitalNameID, Window{}, category.IsAccumulating)
}

func (service *StatisticsService) candidateFilter(query CohortQuery) (db.CandidateFilter, error) {
	filter := db.CandidateFilter{}
	if query.MinAge != nil && *query.MinAge < 0 {
		return filter, ErrInvalidInput
	}
	if query.MaxAge != nil && *query.MaxAge < 0 {
		return filter, ErrInvalidInput
	}
	if query.MinAge != nil && query.MaxAge != nil && *query.MinAge > *query.MaxAge {
		return filter, ErrInvalidInput
	}
	if query.Sex != "" && !models.IsValidSex(query.Sex) {
		return filter, ErrInvalidInput
	}

	today := CalendarDate(service.now(), service.resolver.Location())
	if query.MinAge != nil {
		bound := today.AddDate(-*query.MinAge, 0, 0)
		filter.BornOnOrBefore = &bound
	}
	if query.MaxAge != nil {
		bound := today.AddDate(-(*query.MaxAge + 1), 0, 0)
		filter.BornAfter = &bound
	}
	filter.Sex = query.Sex
	return filter, nil
}

// Average returns the arithmetic mean, or false for an empty set.
func Average(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	total := 0.0
	for _, value := range values {
		total += value
	}
	return total / float64(len(values)), true
}

// PercentileRank returns the share of values at or below own, in percent.
func PercentileRank(values []float64, own float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	atOrBelow := 0
	for _, value := range values {
		if value <= own {
			atOrBelow++
		}
	}
	return 100 * float64(atOrBelow) / float64(len(values)), true
}
