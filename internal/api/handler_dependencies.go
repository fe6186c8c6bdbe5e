package api

import (
	"github.com/terraincognita07/lifelog/internal/agent"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/services"
	"gorm.io/gorm"
)

func (handler *Handler) withDependencies(database *gorm.DB) *Handler {
	handler.repositories = db.NewRepositories(database)
	handler.authService = nil
	handler.profileService = nil
	handler.vitalService = nil
	handler.statisticsService = nil
	handler.goalService = nil
	handler.friendService = nil
	handler.agentService = nil
	handler.ensureDependencies()
	return handler
}

func (handler *Handler) ensureDependencies() {
	if handler.repositories == nil {
		if handler.db == nil {
			return
		}
		handler.repositories = db.NewRepositories(handler.db)
	}

	store := handler.repositories
	resolver := services.NewValueResolver(handler.location)

	if handler.authService == nil {
		handler.authService = services.NewAuthService(store, handler.codeSender, handler.codeTTL)
	}
	if handler.profileService == nil {
		handler.profileService = services.NewProfileService(store)
	}
	if handler.vitalService == nil {
		handler.vitalService = services.NewVitalService(store)
	}
	if handler.statisticsService == nil {
		handler.statisticsService = services.NewStatisticsService(store, resolver)
	}
	if handler.goalService == nil {
		handler.goalService = services.NewGoalService(store, resolver)
	}
	if handler.friendService == nil {
		handler.friendService = services.NewFriendService(store, resolver)
	}
	if handler.agentService == nil {
		executor := agent.NewExecutor(handler.goalService, handler.vitalService, handler.location)
		handler.agentService = agent.NewService(store, handler.chatClient, executor, handler.i18n, handler.chatModel, handler.location)
	}
}
