package db

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every repository over one database handle. A handle
// obtained from Transaction shares the transaction across all of them.
type Repositories struct {
	database      *gorm.DB
	Users         *UserRepository
	Friends       *FriendRepository
	VitalNames    *VitalNameRepository
	Categories    *VitalCategoryRepository
	Readings      *VitalReadingRepository
	Goals         *GoalRepository
	Challenges    *ChallengeRepository
	Conversations *ConversationRepository
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		database:      database,
		Users:         NewUserRepository(database),
		Friends:       NewFriendRepository(database),
		VitalNames:    NewVitalNameRepository(database),
		Categories:    NewVitalCategoryRepository(database),
		Readings:      NewVitalReadingRepository(database),
		Goals:         NewGoalRepository(database),
		Challenges:    NewChallengeRepository(database),
		Conversations: NewConversationRepository(database),
	}
}

// WithContext binds all repositories to ctx.
func (repos *Repositories) WithContext(ctx context.Context) *Repositories {
	return NewRepositories(repos.database.WithContext(ctx))
}

// Transaction runs fn with repositories bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (repos *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return repos.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
