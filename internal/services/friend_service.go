package services

import (
	"context"
	"errors"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type FriendSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Age      *int   `json:"age"`
}

type PublicVital struct {
	MetricName     string   `json:"data_name"`
	IsAccumulating bool     `json:"is_accumulating"`
	Value          *float64 `json:"value"`
}

type FriendDetail struct {
	FriendSummary
	Sex    string        `json:"sex"`
	Vitals []PublicVital `json:"vitals"`
}

type FriendService struct {
	store    Store
	resolver *ValueResolver
	now      func() time.Time
}

func NewFriendService(store Store, resolver *ValueResolver) *FriendService {
	return &FriendService{store: store, resolver: resolver, now: time.Now}
}

// Add stores the friendship in both directions. Adding an existing friend
// succeeds without changes.
func (service *FriendService) Add(ctx context.Context, userID uint, friendID uint) error {
	if userID == friendID {
		return ErrFriendSelf
	}
	return service.store.Transaction(ctx, func(tx *db.Repositories) error {
		if _, err := tx.Users.FindByID(friendID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return tx.Friends.AddPair(userID, friendID)
	})
}

// List returns the user's friends ordered by id.
func (service *FriendService) List(ctx context.Context, userID uint) ([]FriendSummary, error) {
	summaries := make([]FriendSummary, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		ids, err := tx.Friends.ListFriendIDs(userID)
		if err != nil {
			return err
		}
		friends, err := tx.Users.ListByIDs(ids)
		if err != nil {
			return err
		}
		for _, friend := range friends {
			summaries = append(summaries, service.summary(friend))
		}
		return nil
	})
	return summaries, err
}

func (service *FriendService) Detail(ctx context.Context, userID uint, friendID uint) (FriendDetail, error) {
	var detail FriendDetail
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		isFriend, err := tx.Friends.Exists(userID, friendID)
		if err != nil {
			return err
		}
		if !isFriend {
			return ErrFriendNotFound
		}

		friend, err := tx.Users.FindByID(friendID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrFriendNotFound
			}
			return err
		}

		categories, err := tx.Categories.ListPublicByUser(friendID)
		if err != nil {
			return err
		}

		detail = FriendDetail{
			FriendSummary: service.summary(friend),
			Sex:           friend.Sex,
			Vitals:        make([]PublicVital, 0, len(categories)),
		}
		for _, category := range categories {
			vital := PublicVital{MetricName: category.Name, IsAccumulating: category.IsAccumulating}
			value, ok, err := service.resolver.Resolve(tx.Readings, friendID, category.VitalNameID, Window{}, category.IsAccumulating)
			if err != nil {
				return err
			}
			if ok {
				vital.Value = &value
			}
			detail.Vitals = append(detail.Vitals, vital)
		}
		return nil
	})
	return detail, err
}

func (service *FriendService) summary(user models.User) FriendSummary {
	summary := FriendSummary{ID: user.ID, Username: user.Username}
	if age, ok := user.AgeAt(service.now().In(service.resolver.Location())); ok {
		summary.Age = &age
	}
	return summary
}
