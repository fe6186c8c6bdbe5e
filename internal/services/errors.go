package services

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUserNotFound         = errors.New("user not found")
	ErrMetricNotFound       = errors.New("metric not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrGoalNotFound         = errors.New("goal not found")
	ErrGoalExists           = errors.New("goal already exists for metric")
	ErrFriendSelf           = errors.New("cannot befriend yourself")
	ErrFriendNotFound       = errors.New("friend not found")
	ErrInvalidEmail         = errors.New("invalid email")
	ErrInvalidChallenge     = errors.New("invalid or expired code")
	ErrCodeDeliveryFailed   = errors.New("code delivery failed")
	ErrConversationNotFound = errors.New("conversation not found")
)
