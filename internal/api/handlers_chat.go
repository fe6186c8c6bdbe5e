package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type chatMessageInput struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (handler *Handler) SendChatMessage(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input chatMessageInput
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	reply, err := handler.agentService.SendMessage(c.UserContext(), user.ID, strings.TrimSpace(input.ConversationID), input.Message, currentLanguage(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(reply)
}

func (handler *Handler) ListConversations(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	conversations, err := handler.agentService.ListConversations(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(conversations)
}

func (handler *Handler) CreateConversation(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	conversation, err := handler.agentService.CreateConversation(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conversation)
}

func (handler *Handler) ConversationHistory(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	history, err := handler.agentService.History(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(history)
}

func (handler *Handler) DeleteConversation(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	if err := handler.agentService.DeleteConversation(c.UserContext(), user.ID, c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
