package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type GoalInput struct {
	MetricName  string
	StartDate   time.Time
	EndDate     time.Time
	TargetValue float64
}

// GoalUpdate changes the target value and, when set, the goal dates.
type GoalUpdate struct {
	TargetValue float64
	StartDate   *time.Time
	EndDate     *time.Time
}

type GoalView struct {
	ID          uint    `json:"id"`
	MetricName  string  `json:"data_name"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	TargetValue float64 `json:"objective_value"`
}

type FriendProgress struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Value    float64  `json:"value"`
	Progress *float64 `json:"progress"`
}

type GoalProgress struct {
	GoalView
	MyValue  *float64         `json:"my_value"`
	Progress *float64         `json:"progress"`
	Friends  []FriendProgress `json:"friends"`
}

type GoalService struct {
	store    Store
	resolver *ValueResolver
}

func NewGoalService(store Store, resolver *ValueResolver) *GoalService {
	return &GoalService{store: store, resolver: resolver}
}

func (service *GoalService) Create(ctx context.Context, userID uint, input GoalInput) (GoalView, error) {
	name := strings.TrimSpace(input.MetricName)
	if name == "" || !validGoalRange(input.StartDate, input.EndDate) || !isFinite(input.TargetValue) {
		return GoalView{}, ErrInvalidInput
	}

	var view GoalView
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		metric, ok, err := tx.VitalNames.FindByName(name)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMetricNotFound
		}

		exists, err := tx.Goals.ExistsForMetric(userID, metric.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrGoalExists
		}

		now := time.Now().UTC()
		goal := models.Goal{
			UserID:      userID,
			VitalNameID: metric.ID,
			StartDate:   CalendarDate(input.StartDate, time.UTC),
			EndDate:     CalendarDate(input.EndDate, time.UTC),
			TargetValue: input.TargetValue,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Goals.Create(&goal); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrGoalExists
			}
			return err
		}
		view = newGoalView(goal, metric.Name)
		return nil
	})
	return view, err
}

func (service *GoalService) Update(ctx context.Context, userID uint, goalID uint, update GoalUpdate) (GoalView, error) {
	if !isFinite(update.TargetValue) {
		return GoalView{}, ErrInvalidInput
	}

	var view GoalView
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		goal, ok, err := tx.Goals.FindOwned(goalID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrGoalNotFound
		}

		if update.StartDate != nil {
			goal.StartDate = CalendarDate(*update.StartDate, time.UTC)
		}
		if update.EndDate != nil {
			goal.EndDate = CalendarDate(*update.EndDate, time.UTC)
		}
		if !validGoalRange(goal.StartDate, goal.EndDate) {
			return ErrInvalidInput
		}
		goal.TargetValue = update.TargetValue

		if err := tx.Goals.Update(goal.ID, goal.TargetValue, goal.StartDate, goal.EndDate); err != nil {
			return err
		}
		metric, _, err := tx.VitalNames.FindByID(goal.VitalNameID)
		if err != nil {
			return err
		}
		view = newGoalView(goal, metric.Name)
		return nil
	})
	return view, err
}

func (service *GoalService) Delete(ctx context.Context, userID uint, goalID uint) error {
	return service.store.Transaction(ctx, func(tx *db.Repositories) error {
		deleted, err := tx.Goals.DeleteOwned(goalID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrGoalNotFound
		}
		return nil
	})
}

// ListProgress returns every goal of the user with the user's and friends'
// values resolved inside the goal window. Friends who keep the metric
// private or have no reading in the window are omitted.
func (service *GoalService) ListProgress(ctx context.Context, userID uint) ([]GoalProgress, error) {
	defer metrics.TrackAggregation("goal_progress")(time.Now())

	result := make([]GoalProgress, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		goals, err := tx.Goals.ListByUser(userID)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			return nil
		}

		names, err := metricNamesByID(tx, goalMetricIDs(goals))
		if err != nil {
			return err
		}
		friendIDs, err := tx.Friends.ListFriendIDs(userID)
		if err != nil {
			return err
		}
		friends, err := tx.Users.ListByIDs(friendIDs)
		if err != nil {
			return err
		}

		for _, goal := range goals {
			progress, err := service.goalProgress(tx, userID, goal, names[goal.VitalNameID], friends)
			if err != nil {
				return err
			}
			result = append(result, progress)
		}
		return nil
	})
	return result, err
}

func (service *GoalService) goalProgress(tx *db.Repositories, userID uint, goal models.Goal, metricName string, friends []models.User) (GoalProgress, error) {
	window := DayWindow(goal.StartDate, goal.EndDate, service.resolver.Location())
	progress := GoalProgress{
		GoalView: newGoalView(goal, metricName),
		Friends:  make([]FriendProgress, 0, len(friends)),
	}

	ownCategory, hasOwnCategory, err := tx.Categories.FindByUserAndName(userID, goal.VitalNameID)
	if err != nil {
		return GoalProgress{}, err
	}
	accumulating := hasOwnCategory && ownCategory.IsAccumulating
	myValue, ok, err := service.resolver.Resolve(tx.Readings, userID, goal.VitalNameID, window, accumulating)
	if err != nil {
		return GoalProgress{}, err
	}
	if ok {
		progress.MyValue = &myValue
		progress.Progress = percentOf(myValue, goal.TargetValue)
	}

	for _, friend := range friends {
		category, ok, err := tx.Categories.FindByUserAndName(friend.ID, goal.VitalNameID)
		if err != nil {
			return GoalProgress{}, err
		}
		if !ok || !category.IsPublic {
			continue
		}
		value, ok, err := service.resolver.Resolve(tx.Readings, friend.ID, goal.VitalNameID, window, category.IsAccumulating)
		if err != nil {
			return GoalProgress{}, err
		}
		if !ok {
			continue
		}
		progress.Friends = append(progress.Friends, FriendProgress{
			UserID:   friend.ID,
			Username: friend.Username,
			Value:    value,
			Progress: percentOf(value, goal.TargetValue),
		})
	}
	return progress, nil
}

func newGoalView(goal models.Goal, metricName string) GoalView {
	return GoalView{
		ID:          goal.ID,
		MetricName:  metricName,
		StartDate:   goal.StartDate.UTC().Format(dateLayout),
		EndDate:     goal.EndDate.UTC().Format(dateLayout),
		TargetValue: goal.TargetValue,
	}
}

func goalMetricIDs(goals []models.Goal) []uint {
	ids := make([]uint, 0, len(goals))
	for _, goal := range goals {
		ids = append(ids, goal.VitalNameID)
	}
	return ids
}

func metricNamesByID(tx *db.Repositories, ids []uint) (map[uint]string, error) {
	names, err := tx.VitalNames.ListByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]string, len(names))
	for _, name := range names {
		byID[name.ID] = name.Name
	}
	return byID, nil
}

func validGoalRange(start time.Time, end time.Time) bool {
	if start.IsZero() || end.IsZero() {
		return false
	}
	return !CalendarDate(end, time.UTC).Before(CalendarDate(start, time.UTC))
}

func percentOf(value float64, target float64) *float64 {
	if target == 0 {
		return nil
	}
	percent := value / target * 100
	return &percent
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
