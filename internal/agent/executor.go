package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/services"
)

type goalOperations interface {
	Create(ctx context.Context, userID uint, input services.GoalInput) (services.GoalView, error)
	ListProgress(ctx context.Context, userID uint) ([]services.GoalProgress, error)
	Update(ctx context.Context, userID uint, goalID uint, update services.GoalUpdate) (services.GoalView, error)
	Delete(ctx context.Context, userID uint, goalID uint) error
}

type vitalOperations interface {
	RegisterReading(ctx context.Context, userID uint, input services.ReadingInput, source string) (services.ReadingView, error)
	Recent(ctx context.Context, userID uint, metricName string, limit int) ([]services.ReadingView, error)
}

// Executor runs decoded operations on behalf of one user through the same
// services the HTTP handlers use.
type Executor struct {
	goals    goalOperations
	vitals   vitalOperations
	location *time.Location
	now      func() time.Time
}

func NewExecutor(goals goalOperations, vitals vitalOperations, location *time.Location) *Executor {
	if location == nil {
		location = time.UTC
	}
	return &Executor{goals: goals, vitals: vitals, location: location, now: time.Now}
}

// Result is what the model receives for one tool call. Failures are
// results too, so the model can explain them to the user.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (executor *Executor) Execute(ctx context.Context, userID uint, op Operation) Result {
	data, err := executor.execute(ctx, userID, op)
	metrics.RecordToolCall(string(op.Name()), err == nil)
	if err != nil {
		return Result{Error: describeError(err)}
	}
	return Result{Success: true, Data: data}
}

func (executor *Executor) execute(ctx context.Context, userID uint, op Operation) (any, error) {
	switch op := op.(type) {
	case CreateObjective:
		start, err := services.ParseCalendarDate(strings.TrimSpace(op.StartDate))
		if err != nil {
			return nil, services.ErrInvalidInput
		}
		end, err := services.ParseCalendarDate(strings.TrimSpace(op.EndDate))
		if err != nil {
			return nil, services.ErrInvalidInput
		}
		return executor.goals.Create(ctx, userID, services.GoalInput{
			MetricName:  op.DataName,
			StartDate:   start,
			EndDate:     end,
			TargetValue: op.ObjectiveValue,
		})
	case GetObjectives:
		return executor.goals.ListProgress(ctx, userID)
	case UpdateObjective:
		return executor.goals.Update(ctx, userID, op.ObjectiveID, services.GoalUpdate{TargetValue: op.ObjectiveValue})
	case DeleteObjective:
		if err := executor.goals.Delete(ctx, userID, op.ObjectiveID); err != nil {
			return nil, err
		}
		return map[string]uint{"deleted_id": op.ObjectiveID}, nil
	case RegisterVitalData:
		recordedAt, err := executor.readingTime(op.Date)
		if err != nil {
			return nil, err
		}
		return executor.vitals.RegisterReading(ctx, userID, services.ReadingInput{
			MetricName: op.DataName,
			Value:      op.Value,
			RecordedAt: recordedAt,
		}, metrics.SourceAgent)
	case GetVitalData:
		return executor.vitals.Recent(ctx, userID, op.DataName, op.Limit)
	default:
		return nil, ErrUnknownOperation
	}
}

// readingTime accepts a timestamp or a bare date in the service time zone.
func (executor *Executor) readingTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return executor.now(), nil
	}
	for _, layout := range []string{dateTimeLayout, dateLayout, time.RFC3339} {
		if value, err := time.ParseInLocation(layout, raw, executor.location); err == nil {
			return value, nil
		}
	}
	return time.Time{}, services.ErrInvalidInput
}

func describeError(err error) string {
	switch {
	case errors.Is(err, services.ErrGoalExists):
		return "a goal for this metric already exists"
	case errors.Is(err, services.ErrGoalNotFound):
		return "goal not found"
	case errors.Is(err, services.ErrMetricNotFound):
		return "metric not found"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid input"
	case errors.Is(err, ErrUnknownOperation), errors.Is(err, ErrInvalidArguments):
		return err.Error()
	default:
		return "internal error"
	}
}
