package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func goalDates(t *testing.T, start string, end string) (time.Time, time.Time) {
	t.Helper()

	startDate, err := ParseCalendarDate(start)
	if err != nil {
		t.Fatalf("parse start date: %v", err)
	}
	endDate, err := ParseCalendarDate(end)
	if err != nil {
		t.Fatalf("parse end date: %v", err)
	}
	return startDate, endDate
}

func TestGoalCreateRejectsSecondGoalForMetric(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	mustConfigureMetric(t, repos, owner.ID, "steps", true, true)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-31")

	created, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 8000})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == 0 || created.StartDate != "2025-05-01" || created.EndDate != "2025-05-31" || created.TargetValue != 8000 {
		t.Fatalf("unexpected created goal: %#v", created)
	}

	_, err = service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 9000})
	if !errors.Is(err, ErrGoalExists) {
		t.Fatalf("expected ErrGoalExists, got %v", err)
	}

	goals, err := service.ListProgress(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	if len(goals) != 1 || goals[0].TargetValue != 8000 {
		t.Fatalf("expected the first goal to stay unchanged, got %#v", goals)
	}
}

func TestGoalCreateValidatesInput(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	mustConfigureMetric(t, repos, owner.ID, "steps", true, true)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-10", "2025-05-01")

	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted range, got %v", err)
	}
	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "unknown", StartDate: end, EndDate: start, TargetValue: 1}); !errors.Is(err, ErrMetricNotFound) {
		t.Fatalf("expected ErrMetricNotFound, got %v", err)
	}
}

func TestGoalProgressForOwnerAndFriends(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	sharing := mustCreateUser(t, repos, "sharing@example.com")
	private := mustCreateUser(t, repos, "private@example.com")
	idle := mustCreateUser(t, repos, "idle@example.com")

	steps := mustConfigureMetric(t, repos, owner.ID, "steps", true, true)
	mustConfigureMetric(t, repos, sharing.ID, "steps", true, true)
	mustConfigureMetric(t, repos, private.ID, "steps", false, true)
	mustConfigureMetric(t, repos, idle.ID, "steps", true, true)

	for _, friendID := range []uint{sharing.ID, private.ID, idle.ID} {
		if err := repos.Friends.AddPair(owner.ID, friendID); err != nil {
			t.Fatalf("add friend: %v", err)
		}
	}

	mustAddReading(t, repos, owner.ID, steps.ID, day(10, 8), 3000)
	mustAddReading(t, repos, owner.ID, steps.ID, day(10, 20), 1000)
	mustAddReading(t, repos, sharing.ID, steps.ID, day(12, 9), 10000)
	mustAddReading(t, repos, private.ID, steps.ID, day(12, 9), 9000)
	mustAddReading(t, repos, idle.ID, steps.ID, time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC), 5000)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-31")
	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 8000}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	goals, err := service.ListProgress(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected one goal, got %d", len(goals))
	}

	goal := goals[0]
	assertFloatPointer(t, "my_value", goal.MyValue, floatPointer(4000))
	assertFloatPointer(t, "progress", goal.Progress, floatPointer(50))
	if len(goal.Friends) != 1 {
		t.Fatalf("expected only the sharing friend, got %#v", goal.Friends)
	}
	friend := goal.Friends[0]
	if friend.UserID != sharing.ID || friend.Username != "sharing" || friend.Value != 10000 {
		t.Fatalf("unexpected friend progress: %#v", friend)
	}
	assertFloatPointer(t, "friend progress", friend.Progress, floatPointer(125))
}

func TestGoalProgressIgnoresReadingsAfterEndDate(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	friend := mustCreateUser(t, repos, "friend@example.com")

	weight := mustConfigureMetric(t, repos, owner.ID, "weight", false, false)
	mustConfigureMetric(t, repos, friend.ID, "weight", true, false)
	if err := repos.Friends.AddPair(owner.ID, friend.ID); err != nil {
		t.Fatalf("add friend: %v", err)
	}

	mustAddReading(t, repos, owner.ID, weight.ID, day(10, 7), 70)
	mustAddReading(t, repos, owner.ID, weight.ID, day(20, 7), 68)
	mustAddReading(t, repos, friend.ID, weight.ID, day(5, 7), 80)
	mustAddReading(t, repos, friend.ID, weight.ID, day(15, 23), 79)
	mustAddReading(t, repos, friend.ID, weight.ID, day(16, 0), 75)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-15")
	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "weight", StartDate: start, EndDate: end, TargetValue: 158}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	goals, err := service.ListProgress(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("expected one goal, got %d", len(goals))
	}
	assertFloatPointer(t, "my_value", goals[0].MyValue, floatPointer(70))
	if len(goals[0].Friends) != 1 || goals[0].Friends[0].UserID != friend.ID {
		t.Fatalf("expected the sharing friend, got %#v", goals[0].Friends)
	}
	if got := goals[0].Friends[0].Value; got != 79 {
		t.Fatalf("friend value = %v, want the last in-window reading 79", got)
	}
	assertFloatPointer(t, "friend progress", goals[0].Friends[0].Progress, floatPointer(50))
}

func TestGoalCreateReportsRacedDuplicateAsConflict(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "goal-race.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repos := db.NewRepositories(database)
	owner := mustCreateUser(t, repos, "owner@example.com")
	steps, err := repos.VitalNames.Ensure("steps")
	if err != nil {
		t.Fatalf("ensure steps: %v", err)
	}

	// A competing request inserts the same goal after the existence check
	// and before this insert.
	raced := false
	err = database.Callback().Create().Before("gorm:create").Register("test:competing_goal", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "goals" {
			return
		}
		raced = true
		now := time.Now().UTC()
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec(
			`INSERT INTO goals (user_id, vital_name_id, start_date, end_date, target_value, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			owner.ID, steps.ID, now, now, 1, now, now,
		).Error; err != nil {
			_ = tx.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-31")
	_, err = service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 8000})
	if !raced {
		t.Fatal("expected the competing insert to run")
	}
	if !errors.Is(err, ErrGoalExists) {
		t.Fatalf("expected ErrGoalExists, got %v", err)
	}
}

func TestGoalProgressWithZeroTargetHasNoPercentage(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	weight := mustConfigureMetric(t, repos, owner.ID, "weight", false, false)
	mustAddReading(t, repos, owner.ID, weight.ID, day(3, 7), 70)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-31")
	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "weight", StartDate: start, EndDate: end, TargetValue: 0}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	goals, err := service.ListProgress(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	assertFloatPointer(t, "my_value", goals[0].MyValue, floatPointer(70))
	assertFloatPointer(t, "progress", goals[0].Progress, nil)
}

func TestGoalUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	repos := openTestRepositories(t)
	owner := mustCreateUser(t, repos, "owner@example.com")
	stranger := mustCreateUser(t, repos, "stranger@example.com")
	mustConfigureMetric(t, repos, owner.ID, "steps", true, true)

	service := NewGoalService(repos, NewValueResolver(time.UTC))
	start, end := goalDates(t, "2025-05-01", "2025-05-31")
	goal, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 8000})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if _, err := service.Update(context.Background(), stranger.ID, goal.ID, GoalUpdate{TargetValue: 1}); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound for stranger update, got %v", err)
	}
	if err := service.Delete(context.Background(), stranger.ID, goal.ID); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound for stranger delete, got %v", err)
	}

	updated, err := service.Update(context.Background(), owner.ID, goal.ID, GoalUpdate{TargetValue: 12000})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.TargetValue != 12000 || updated.MetricName != "steps" || updated.StartDate != "2025-05-01" {
		t.Fatalf("unexpected updated goal: %#v", updated)
	}

	if err := service.Delete(context.Background(), owner.ID, goal.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := service.Delete(context.Background(), owner.ID, goal.ID); !errors.Is(err, ErrGoalNotFound) {
		t.Fatalf("expected ErrGoalNotFound on second delete, got %v", err)
	}

	goals, err := service.ListProgress(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("ListProgress returned error: %v", err)
	}
	if len(goals) != 0 {
		t.Fatalf("expected no goals after delete, got %#v", goals)
	}

	if _, err := service.Create(context.Background(), owner.ID, GoalInput{MetricName: "steps", StartDate: start, EndDate: end, TargetValue: 5000}); err != nil {
		t.Fatalf("expected a new goal after delete, got %v", err)
	}
}
