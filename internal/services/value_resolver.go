package services

import (
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
)

// Window bounds a resolution. Both ends are inclusive; nil means unbounded.
type Window struct {
	From *time.Time
	To   *time.Time
}

func (window Window) contains(value time.Time) bool {
	if window.From != nil && value.Before(*window.From) {
		return false
	}
	if window.To != nil && value.After(*window.To) {
		return false
	}
	return true
}

type ReadingReader interface {
	LatestInWindow(userID uint, vitalNameID uint, from *time.Time, to *time.Time) (models.VitalReading, bool, error)
	ListInWindow(userID uint, vitalNameID uint, from *time.Time, to *time.Time) ([]models.VitalReading, error)
}

// ValueResolver reduces one user's readings of one metric to a single number.
type ValueResolver struct {
	location *time.Location
}

func NewValueResolver(location *time.Location) *ValueResolver {
	if location == nil {
		location = time.UTC
	}
	return &ValueResolver{location: location}
}

func (resolver *ValueResolver) Location() *time.Location {
	return resolver.location
}

// Resolve loads only the readings needed for the result: the latest one in
// the window and, for accumulating metrics, the rest of its calendar day.
func (resolver *ValueResolver) Resolve(readings ReadingReader, userID uint, vitalNameID uint, window Window, accumulating bool) (float64, bool, error) {
	latest, ok, err := readings.LatestInWindow(userID, vitalNameID, window.From, window.To)
	if err != nil || !ok {
		return 0, false, err
	}
	if !accumulating {
		return latest.Value, true, nil
	}

	dayStart, dayEnd := dayBounds(latest.RecordedAt, resolver.location)
	from, to := clampWindow(window, dayStart, dayEnd)
	day, err := readings.ListInWindow(userID, vitalNameID, &from, &to)
	if err != nil {
		return 0, false, err
	}

	value, ok := ResolveValue(day, window, true, resolver.location)
	return value, ok, nil
}

// ResolveValue is the in-memory form of Resolve over an arbitrary slice.
// Non-accumulating metrics yield the latest reading in the window, ties going
// to the highest id. Accumulating metrics yield the sum of the window's
// readings that share the latest reading's calendar day.
func ResolveValue(readings []models.VitalReading, window Window, accumulating bool, location *time.Location) (float64, bool) {
	var latest *models.VitalReading
	for index := range readings {
		reading := &readings[index]
		if !window.contains(reading.RecordedAt) {
			continue
		}
		if latest == nil || reading.RecordedAt.After(latest.RecordedAt) ||
			(reading.RecordedAt.Equal(latest.RecordedAt) && reading.ID > latest.ID) {
			latest = reading
		}
	}
	if latest == nil {
		return 0, false
	}
	if !accumulating {
		return latest.Value, true
	}

	total := 0.0
	for _, reading := range readings {
		if window.contains(reading.RecordedAt) && sameDay(reading.RecordedAt, latest.RecordedAt, location) {
			total += reading.Value
		}
	}
	return total, true
}

func clampWindow(window Window, from time.Time, to time.Time) (time.Time, time.Time) {
	if window.From != nil && window.From.After(from) {
		from = *window.From
	}
	if window.To != nil && window.To.Before(to) {
		to = *window.To
	}
	return from, to
}
