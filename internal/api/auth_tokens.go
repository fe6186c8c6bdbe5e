package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/models"
	"github.com/terraincognita07/lifelog/internal/security"
)

const defaultAccessTokenTTL = 30 * time.Minute

var errMissingBearer = errors.New("missing bearer token")

func (handler *Handler) buildToken(user *models.User, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return security.IssueAccessToken(handler.secretKey, user.ID, ttl, time.Now())
}

func (handler *Handler) authenticateRequest(c *fiber.Ctx) (*models.User, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	scheme, tokenValue, found := strings.Cut(header, " ")
	tokenValue = strings.TrimSpace(tokenValue)
	if !found || !strings.EqualFold(scheme, "bearer") || tokenValue == "" {
		return nil, errMissingBearer
	}

	userID, err := security.ParseAccessToken(handler.secretKey, tokenValue)
	if err != nil {
		return nil, err
	}

	handler.ensureDependencies()
	user, err := handler.authService.FindByID(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	user, err := handler.authenticateRequest(c)
	if err != nil {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	c.Locals(contextUserKey, user)
	return c.Next()
}
