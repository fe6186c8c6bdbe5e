package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/agent"
	"github.com/terraincognita07/lifelog/internal/logger"
	"github.com/terraincognita07/lifelog/internal/services"
	"go.uber.org/zap"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// serviceError maps service errors to responses. Unexpected errors are
// logged and reported without details.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrFriendSelf),
		errors.Is(err, agent.ErrEmptyMessage),
		errors.Is(err, agent.ErrMessageTooLong):
		return apiError(c, fiber.StatusBadRequest, rootMessage(err))
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMetricNotFound),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrGoalNotFound),
		errors.Is(err, services.ErrFriendNotFound),
		errors.Is(err, services.ErrConversationNotFound):
		return apiError(c, fiber.StatusNotFound, rootMessage(err))
	case errors.Is(err, services.ErrGoalExists):
		return apiError(c, fiber.StatusConflict, services.ErrGoalExists.Error())
	case errors.Is(err, services.ErrInvalidChallenge):
		return apiError(c, fiber.StatusUnauthorized, services.ErrInvalidChallenge.Error())
	case errors.Is(err, services.ErrCodeDeliveryFailed):
		logger.FromFiber(c).Warn("login code delivery failed", zap.Error(err))
		return apiError(c, fiber.StatusBadGateway, services.ErrCodeDeliveryFailed.Error())
	case errors.Is(err, agent.ErrCompletionFailed):
		return apiError(c, fiber.StatusBadGateway, agent.ErrCompletionFailed.Error())
	default:
		logger.FromFiber(c).Error("request failed", zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

// rootMessage returns the message of the sentinel error wrapped by err.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || value == 0 {
		return 0, false
	}
	return uint(value), true
}

func parseOptionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
