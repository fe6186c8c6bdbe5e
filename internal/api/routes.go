package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.LanguageMiddleware)

	auth := api.Group("/auth")
	auth.Post("/login", handler.Login)
	auth.Post("/verify", handler.Verify)

	user := api.Group("/user", handler.AuthRequired)
	user.Get("/profile", handler.GetProfile)
	user.Put("/profile", handler.UpdateProfile)
	user.Get("/id", handler.GetUserID)

	vitals := api.Group("/vitals", handler.AuthRequired)
	vitals.Get("/names", handler.ListVitalNames)
	vitals.Get("/categories", handler.ListCategories)
	vitals.Put("/categories", handler.PutCategory)
	vitals.Patch("/categories/:id", handler.PatchCategory)
	vitals.Post("/readings", handler.RegisterReading)
	vitals.Get("/me", handler.RecentReadings)
	vitals.Get("/life-logs", handler.LifeLogs)
	vitals.Get("/statistics", handler.Statistics)

	goals := api.Group("/goals", handler.AuthRequired)
	goals.Get("", handler.ListGoals)
	goals.Post("", handler.CreateGoal)
	goals.Put("/:id", handler.UpdateGoal)
	goals.Delete("/:id", handler.DeleteGoal)

	friends := api.Group("/friends", handler.AuthRequired)
	friends.Get("", handler.ListFriends)
	friends.Post("", handler.AddFriend)
	friends.Get("/:id", handler.FriendDetail)

	chat := api.Group("/chat", handler.AuthRequired)
	chat.Post("/messages", handler.SendChatMessage)
	chat.Get("/conversations", handler.ListConversations)
	chat.Post("/conversations", handler.CreateConversation)
	chat.Get("/conversations/:id", handler.ConversationHistory)
	chat.Delete("/conversations/:id", handler.DeleteConversation)
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return apiError(c, fiber.StatusNotFound, "not found")
}

// ErrorHandler renders errors that escape handlers as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return apiError(c, fiberErr.Code, strings.ToLower(fiberErr.Message))
	}
	return serviceError(c, err)
}
