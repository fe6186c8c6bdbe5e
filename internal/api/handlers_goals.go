package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/services"
)

type goalInput struct {
	DataName       string   `json:"data_name"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ObjectiveValue *float64 `json:"objective_value"`
}

type goalUpdateInput struct {
	ObjectiveValue *float64 `json:"objective_value"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
}

// ListGoals returns every goal of the user with own and friends' progress.
func (handler *Handler) ListGoals(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	goals, err := handler.goalService.ListProgress(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(goals)
}

func (handler *Handler) CreateGoal(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input goalInput
	if err := c.BodyParser(&input); err != nil || input.ObjectiveValue == nil {
		return apiError(c, fiber.StatusBadRequest, "objective_value is required")
	}
	start, err := services.ParseCalendarDate(strings.TrimSpace(input.StartDate))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid start_date")
	}
	end, err := services.ParseCalendarDate(strings.TrimSpace(input.EndDate))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid end_date")
	}

	goal, err := handler.goalService.Create(c.UserContext(), user.ID, services.GoalInput{
		MetricName:  input.DataName,
		StartDate:   start,
		EndDate:     end,
		TargetValue: *input.ObjectiveValue,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(goal)
}

func (handler *Handler) UpdateGoal(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid goal id")
	}
	var input goalUpdateInput
	if err := c.BodyParser(&input); err != nil || input.ObjectiveValue == nil {
		return apiError(c, fiber.StatusBadRequest, "objective_value is required")
	}

	update := services.GoalUpdate{TargetValue: *input.ObjectiveValue}
	if update.StartDate, ok = parseOptionalDate(input.StartDate); !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid start_date")
	}
	if update.EndDate, ok = parseOptionalDate(input.EndDate); !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid end_date")
	}

	goal, err := handler.goalService.Update(c.UserContext(), user.ID, goalID, update)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(goal)
}

func (handler *Handler) DeleteGoal(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid goal id")
	}
	if err := handler.goalService.Delete(c.UserContext(), user.ID, goalID); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseOptionalDate(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	value, err := services.ParseCalendarDate(raw)
	if err != nil {
		return nil, false
	}
	return &value, true
}
