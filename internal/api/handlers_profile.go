package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/services"
)

type profileInput struct {
	Username    string  `json:"username"`
	DateOfBirth *string `json:"date_of_birth"`
	Sex         string  `json:"sex"`
}

func (handler *Handler) GetProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	profile, err := handler.profileService.Get(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(profile)
}

func (handler *Handler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input profileInput
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	update := services.ProfileInput{Username: input.Username, Sex: input.Sex}
	if input.DateOfBirth != nil && strings.TrimSpace(*input.DateOfBirth) != "" {
		dateOfBirth, err := services.ParseCalendarDate(strings.TrimSpace(*input.DateOfBirth))
		if err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid date_of_birth")
		}
		update.DateOfBirth = &dateOfBirth
	}

	profile, err := handler.profileService.Update(c.UserContext(), user.ID, update)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(profile)
}

func (handler *Handler) GetUserID(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(fiber.Map{"id": user.ID})
}
