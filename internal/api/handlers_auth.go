package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/services"
)

type loginInput struct {
	Email string `json:"email" form:"email"`
}

type verifyInput struct {
	Email string `json:"email" form:"email"`
	Code  string `json:"code" form:"code"`
}

// Login issues a one-time code for the email, creating the account on first
// use. The code itself is only returned when echo is enabled.
func (handler *Handler) Login(c *fiber.Ctx) error {
	handler.ensureDependencies()

	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	issued, err := handler.authService.IssueChallenge(c.UserContext(), input.Email, currentLanguage(c))
	if err != nil {
		return serviceError(c, err)
	}

	response := fiber.Map{
		"sent":       true,
		"expires_at": issued.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if handler.echoCode {
		response["code"] = issued.Code
	}
	return c.JSON(response)
}

// Verify exchanges a valid code for a bearer token. Failed attempts count
// against the client address.
func (handler *Handler) Verify(c *fiber.Ctx) error {
	handler.ensureDependencies()

	limiterKey := requestLimiterKey(c)
	now := time.Now()
	if handler.verifyLimiter.blocked(limiterKey, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many attempts")
	}

	var input verifyInput
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.authService.VerifyChallenge(c.UserContext(), input.Email, input.Code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidChallenge) {
			handler.verifyLimiter.recordFailure(limiterKey, now)
		}
		return serviceError(c, err)
	}
	handler.verifyLimiter.reset(limiterKey)

	token, expiresAt, err := handler.buildToken(&user, handler.accessTokenTTL)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
		"user":         user,
	})
}
