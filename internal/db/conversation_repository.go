package db

import (
	"time"

	"github.com/terraincognita07/lifelog/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	database *gorm.DB
}

func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{database: database}
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	models.ChatConversation
	LastMessage  string
	MessageCount int64
}

func (repo *ConversationRepository) Create(conversation *models.ChatConversation) error {
	return repo.database.Create(conversation).Error
}

func (repo *ConversationRepository) FindOwned(conversationID string, userID uint) (models.ChatConversation, bool, error) {
	return findOne[models.ChatConversation](repo.database.Where("id = ? AND user_id = ?", conversationID, userID))
}

func (repo *ConversationRepository) ListSummaries(userID uint) ([]ConversationSummary, error) {
	conversations := make([]models.ChatConversation, 0)
	if err := repo.database.
		Where("user_id = ?", userID).
		Order("updated_at DESC, id ASC").
		Find(&conversations).Error; err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := ConversationSummary{ChatConversation: conversation}
		if err := repo.database.Model(&models.ChatMessage{}).
			Where("conversation_id = ?", conversation.ID).
			Count(&summary.MessageCount).Error; err != nil {
			return nil, err
		}

		last, ok, err := findOne[models.ChatMessage](repo.database.
			Where("conversation_id = ?", conversation.ID).
			Order("seq DESC"))
		if err != nil {
			return nil, err
		}
		if ok {
			summary.LastMessage = last.Content
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (repo *ConversationRepository) Touch(conversationID string, title string) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if title != "" {
		updates["title"] = title
	}
	return repo.database.Model(&models.ChatConversation{}).Where("id = ?", conversationID).Updates(updates).Error
}

func (repo *ConversationRepository) DeleteOwned(conversationID string, userID uint) (bool, error) {
	result := repo.database.Where("id = ? AND user_id = ?", conversationID, userID).Delete(&models.ChatConversation{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddMessage appends the message to its conversation. Seq follows insertion
// order so messages sharing a timestamp keep the order they were written in.
func (repo *ConversationRepository) AddMessage(message *models.ChatMessage) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		var last int64
		if err := tx.Model(&models.ChatMessage{}).
			Where("conversation_id = ?", message.ConversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		message.Seq = last + 1
		return tx.Create(message).Error
	})
}

func (repo *ConversationRepository) ListMessages(conversationID string) ([]models.ChatMessage, error) {
	messages := make([]models.ChatMessage, 0)
	if err := repo.database.
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
