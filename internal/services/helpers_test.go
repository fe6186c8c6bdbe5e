package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/models"
	"go.uber.org/zap"
)

func openTestRepositories(t *testing.T) *db.Repositories {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "services-test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.NewRepositories(database)
}

func mustCreateUser(t *testing.T, repos *db.Repositories, email string) models.User {
	t.Helper()

	now := time.Now().UTC()
	user := models.User{Email: email, Username: email[:len(email)-len("@example.com")], CreatedAt: now, UpdatedAt: now}
	if err := repos.Users.Create(&user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func mustConfigureMetric(t *testing.T, repos *db.Repositories, userID uint, name string, isPublic bool, isAccumulating bool) models.VitalName {
	t.Helper()

	metric, err := repos.VitalNames.Ensure(name)
	if err != nil {
		t.Fatalf("ensure metric %s: %v", name, err)
	}
	now := time.Now().UTC()
	category := models.VitalCategory{
		UserID:         userID,
		VitalNameID:    metric.ID,
		IsPublic:       isPublic,
		IsAccumulating: isAccumulating,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repos.Categories.Create(&category); err != nil {
		t.Fatalf("create category %s for %d: %v", name, userID, err)
	}
	return metric
}

func mustAddReading(t *testing.T, repos *db.Repositories, userID uint, metricID uint, at time.Time, value float64) {
	t.Helper()

	reading := models.VitalReading{UserID: userID, VitalNameID: metricID, RecordedAt: at, Value: value, CreatedAt: time.Now().UTC()}
	if err := repos.Readings.Create(&reading); err != nil {
		t.Fatalf("create reading: %v", err)
	}
}

func day(dayOfMonth int, hour int) time.Time {
	return time.Date(2025, time.May, dayOfMonth, hour, 0, 0, 0, time.UTC)
}

func floatPointer(value float64) *float64 {
	return &value
}

func assertFloatPointer(t *testing.T, label string, got *float64, want *float64) {
	t.Helper()

	switch {
	case got == nil && want == nil:
		return
	case got == nil || want == nil:
		t.Fatalf("%s = %v, want %v", label, describeFloatPointer(got), describeFloatPointer(want))
	case *got != *want:
		t.Fatalf("%s = %v, want %v", label, *got, *want)
	}
}

func describeFloatPointer(value *float64) any {
	if value == nil {
		return "null"
	}
	return *value
}
