package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/services"
)

const readingTimeLayout = "2006-01-02 15:04:05"

type categoryInput struct {
	DataName       string `json:"data_name"`
	IsPublic       bool   `json:"is_public"`
	IsAccumulating bool   `json:"is_accumulating"`
}

type categoryFlagsInput struct {
	IsPublic       *bool `json:"is_public"`
	IsAccumulating *bool `json:"is_accumulating"`
}

type readingInput struct {
	VitalNameID *uint    `json:"vital_name_id"`
	DataName    string   `json:"data_name"`
	Value       *float64 `json:"value"`
	Date        string   `json:"date"`
}

func (handler *Handler) ListVitalNames(c *fiber.Ctx) error {
	handler.ensureDependencies()

	names, err := handler.vitalService.ListNames(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(names)
}

func (handler *Handler) ListCategories(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	categories, err := handler.vitalService.ListCategories(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(categories)
}

// PutCategory configures a metric for the user. An existing configuration
// is returned unchanged with status 200.
func (handler *Handler) PutCategory(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input categoryInput
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	category, created, err := handler.vitalService.CreateCategory(c.UserContext(), user.ID, services.CategoryInput{
		MetricName:     input.DataName,
		IsPublic:       input.IsPublic,
		IsAccumulating: input.IsAccumulating,
	})
	if err != nil {
		return serviceError(c, err)
	}
	if !created {
		return c.JSON(fiber.Map{"message": "already exists", "category": category})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "created", "category": category})
}

func (handler *Handler) PatchCategory(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	categoryID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid category id")
	}
	var input categoryFlagsInput
	if err := c.BodyParser(&input); err != nil || input.IsPublic == nil || input.IsAccumulating == nil {
		return apiError(c, fiber.StatusBadRequest, "is_public and is_accumulating are required")
	}

	category, err := handler.vitalService.UpdateCategory(c.UserContext(), user.ID, categoryID, *input.IsPublic, *input.IsAccumulating)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(category)
}

func (handler *Handler) RegisterReading(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input readingInput
	if err := c.BodyParser(&input); err != nil || input.Value == nil {
		return apiError(c, fiber.StatusBadRequest, "value is required")
	}
	recordedAt, err := handler.parseReadingTime(input.Date)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}

	reading, err := handler.vitalService.RegisterReading(c.UserContext(), user.ID, services.ReadingInput{
		VitalNameID: input.VitalNameID,
		MetricName:  input.DataName,
		Value:       *input.Value,
		RecordedAt:  recordedAt,
	}, metrics.SourceAPI)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reading)
}

func (handler *Handler) RecentReadings(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil || (limit != nil && *limit < 1) {
		return apiError(c, fiber.StatusBadRequest, "invalid limit")
	}
	requested := services.DefaultRecentLimit
	if limit != nil {
		requested = *limit
	}

	readings, err := handler.vitalService.Recent(c.UserContext(), user.ID, c.Query("data_name"), requested)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(readings)
}

func (handler *Handler) LifeLogs(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	series, err := handler.vitalService.LifeLogs(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(series)
}

// Statistics reports the cohort average of a metric and where the requester
// stands in it.
func (handler *Handler) Statistics(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	dataName := strings.TrimSpace(c.Query("data_name"))
	if dataName == "" {
		return apiError(c, fiber.StatusBadRequest, "data_name is required")
	}
	minAge, err := parseOptionalInt(c.Query("min_age"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid min_age")
	}
	maxAge, err := parseOptionalInt(c.Query("max_age"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid max_age")
	}

	stats, err := handler.statisticsService.Compute(c.UserContext(), user.ID, services.CohortQuery{
		MetricName: dataName,
		MinAge:     minAge,
		MaxAge:     maxAge,
		Sex:        strings.ToLower(strings.TrimSpace(c.Query("sex"))),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"data_name": dataName, "statistics": stats})
}

// parseReadingTime accepts RFC 3339 or "YYYY-MM-DD HH:MM:SS" in the service
// time zone. An empty value means now.
func (handler *Handler) parseReadingTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now(), nil
	}
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return value, nil
	}
	return time.ParseInLocation(readingTimeLayout, raw, handler.location)
}
