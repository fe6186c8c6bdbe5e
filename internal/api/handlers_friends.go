package api

import (
	"github.com/gofiber/fiber/v2"
)

type friendInput struct {
	FriendID uint `json:"friend_id"`
}

func (handler *Handler) ListFriends(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	friends, err := handler.friendService.List(c.UserContext(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(friends)
}

// AddFriend befriends another user in both directions. Repeating the call
// succeeds without changes.
func (handler *Handler) AddFriend(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	var input friendInput
	if err := c.BodyParser(&input); err != nil || input.FriendID == 0 {
		return apiError(c, fiber.StatusBadRequest, "friend_id is required")
	}
	if err := handler.friendService.Add(c.UserContext(), user.ID, input.FriendID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "friend_id": input.FriendID})
}

func (handler *Handler) FriendDetail(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.ensureDependencies()

	friendID, ok := parseIDParam(c, "id")
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid friend id")
	}
	detail, err := handler.friendService.Detail(c.UserContext(), user.ID, friendID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(detail)
}
