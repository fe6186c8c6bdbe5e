package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/models"
)

const (
	contextUserKey     = "current_user"
	contextLanguageKey = "current_language"
)

func currentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals(contextUserKey).(*models.User)
	return user, ok
}

func currentLanguage(c *fiber.Ctx) string {
	language, _ := c.Locals(contextLanguageKey).(string)
	return language
}

// LanguageMiddleware resolves the response language from Accept-Language.
func (handler *Handler) LanguageMiddleware(c *fiber.Ctx) error {
	c.Locals(contextLanguageKey, handler.i18n.DetectFromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage)))
	return c.Next()
}
