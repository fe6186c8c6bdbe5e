package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"github.com/terraincognita07/lifelog/internal/logger"
	"github.com/terraincognita07/lifelog/internal/models"
	"github.com/terraincognita07/lifelog/internal/services"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	titleMaxTokens  = 50
	titleMaxRunes   = 20
	maxMessageRunes = 4000
)

var (
	ErrCompletionFailed = errors.New("assistant unavailable")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrMessageTooLong   = errors.New("message is too long")
)

// ToolCallRecord is a persisted tool call of an assistant message.
type ToolCallRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResultRecord is the persisted outcome of one tool call.
type ToolResultRecord struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Result     Result `json:"result"`
}

type Reply struct {
	Message        string           `json:"message"`
	ConversationID string           `json:"conversation_id"`
	ToolCalls      []ToolCallRecord `json:"tool_calls"`
	Timestamp      time.Time        `json:"timestamp"`
}

type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"last_message"`
	MessageCount int64     `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type HistoryMessage struct {
	ID          string          `json:"id"`
	Role        string          `json:"role"`
	Content     string          `json:"content"`
	ToolCalls   json.RawMessage `json:"tool_calls,omitempty"`
	ToolResults json.RawMessage `json:"tool_results,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

type History struct {
	ConversationID string           `json:"conversation_id"`
	Title          string           `json:"title"`
	Messages       []HistoryMessage `json:"messages"`
}

// Service runs assistant conversations. A nil client disables SendMessage
// while conversations stay readable.
type Service struct {
	store    services.Store
	client   ChatClient
	executor *Executor
	messages *i18n.Manager
	model    string
	location *time.Location
	now      func() time.Time
}

func NewService(store services.Store, client ChatClient, executor *Executor, messages *i18n.Manager, model string, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:    store,
		client:   client,
		executor: executor,
		messages: messages,
		model:    model,
		location: location,
		now:      time.Now,
	}
}

func (service *Service) Enabled() bool {
	return service.client != nil
}

// SendMessage runs one assistant turn. The user message is stored before
// the model is called and stays stored when the call fails.
func (service *Service) SendMessage(ctx context.Context, userID uint, conversationID string, content string, language string) (Reply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Reply{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageRunes {
		return Reply{}, ErrMessageTooLong
	}
	if service.client == nil {
		return Reply{}, fmt.Errorf("%w: no chat client configured", ErrCompletionFailed)
	}

	conversation, history, err := service.recordUserMessage(ctx, userID, conversationID, content, language)
	if err != nil {
		return Reply{}, err
	}

	tools := ToolDefinitions(service.messages, language)
	response, err := service.complete(ctx, openai.ChatCompletionRequest{
		Model:      service.model,
		Messages:   history,
		Tools:      tools,
		ToolChoice: "auto",
	})
	if err != nil {
		return Reply{}, err
	}

	assistant := response.Choices[0].Message
	replyText := strings.TrimSpace(assistant.Content)
	calls := make([]ToolCallRecord, 0, len(assistant.ToolCalls))
	results := make([]ToolResultRecord, 0, len(assistant.ToolCalls))

	if len(assistant.ToolCalls) > 0 {
		history = append(history, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   assistant.Content,
			ToolCalls: assistant.ToolCalls,
		})
		for _, call := range assistant.ToolCalls {
			result := service.runToolCall(ctx, userID, call)
			calls = append(calls, ToolCallRecord{ID: call.ID, Name: call.Function.Name, Arguments: rawArguments(call.Function.Arguments)})
			results = append(results, ToolResultRecord{ToolCallID: call.ID, Name: call.Function.Name, Result: result})

			encoded, err := json.Marshal(result)
			if err != nil {
				return Reply{}, fmt.Errorf("encode tool result: %w", err)
			}
			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(encoded),
				ToolCallID: call.ID,
			})
		}

		final, err := service.complete(ctx, openai.ChatCompletionRequest{Model: service.model, Messages: history})
		if err != nil {
			return Reply{}, err
		}
		replyText = strings.TrimSpace(final.Choices[0].Message.Content)
	}
	if replyText == "" {
		replyText = service.messages.Translate(language, "agent.empty_reply")
	}

	title := ""
	if conversation.Title == "" {
		title = service.generateTitle(ctx, content, language)
	}

	timestamp := service.now().UTC()
	err = service.store.Transaction(ctx, func(tx *db.Repositories) error {
		message := models.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			Role:           models.ChatRoleAssistant,
			Content:        replyText,
			ToolCalls:      models.EmptyJSONList,
			ToolResults:    models.EmptyJSONList,
			CreatedAt:      timestamp,
		}
		if len(calls) > 0 {
			encodedCalls, err := json.Marshal(calls)
			if err != nil {
				return err
			}
			encodedResults, err := json.Marshal(results)
			if err != nil {
				return err
			}
			message.ToolCalls = datatypes.JSON(encodedCalls)
			message.ToolResults = datatypes.JSON(encodedResults)
		}
		if err := tx.Conversations.AddMessage(&message); err != nil {
			return err
		}
		return tx.Conversations.Touch(conversation.ID, title)
	})
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Message:        replyText,
		ConversationID: conversation.ID,
		ToolCalls:      calls,
		Timestamp:      timestamp,
	}, nil
}

// recordUserMessage stores the message in the given conversation, or in a
// new one when conversationID is empty, and returns the model history.
func (service *Service) recordUserMessage(ctx context.Context, userID uint, conversationID string, content string, language string) (models.ChatConversation, []openai.ChatCompletionMessage, error) {
	var conversation models.ChatConversation
	var history []openai.ChatCompletionMessage

	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		var err error
		conversation, err = service.conversationForTurn(tx, userID, conversationID)
		if err != nil {
			return err
		}

		if err := tx.Conversations.AddMessage(&models.ChatMessage{
			ID:             uuid.NewString(),
			ConversationID: conversation.ID,
			Role:           models.ChatRoleUser,
			Content:        content,
			ToolCalls:      models.EmptyJSONList,
			ToolResults:    models.EmptyJSONList,
			CreatedAt:      service.now().UTC(),
		}); err != nil {
			return err
		}

		stored, err := tx.Conversations.ListMessages(conversation.ID)
		if err != nil {
			return err
		}
		systemPrompt, err := service.systemPrompt(tx, userID, language)
		if err != nil {
			return err
		}

		history = make([]openai.ChatCompletionMessage, 0, len(stored)+1)
		history = append(history, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
		for _, message := range stored {
			history = append(history, openai.ChatCompletionMessage{Role: message.Role, Content: message.Content})
		}
		return nil
	})
	return conversation, history, err
}

func (service *Service) conversationForTurn(tx *db.Repositories, userID uint, conversationID string) (models.ChatConversation, error) {
	if conversationID != "" {
		conversation, ok, err := tx.Conversations.FindOwned(conversationID, userID)
		if err != nil {
			return models.ChatConversation{}, err
		}
		if !ok {
			return models.ChatConversation{}, services.ErrConversationNotFound
		}
		return conversation, nil
	}
	return service.newConversation(tx, userID)
}

func (service *Service) newConversation(tx *db.Repositories, userID uint) (models.ChatConversation, error) {
	now := service.now().UTC()
	conversation := models.ChatConversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Conversations.Create(&conversation); err != nil {
		return models.ChatConversation{}, err
	}
	return conversation, nil
}

// systemPrompt lists the user's goals as "ID n: metric = target" lines.
func (service *Service) systemPrompt(tx *db.Repositories, userID uint, language string) (string, error) {
	today := service.now().In(service.location).Format(dateLayout)
	prompt := service.messages.Translatef(language, "agent.system_prompt", today)

	goals, err := tx.Goals.ListByUser(userID)
	if err != nil {
		return "", err
	}
	if len(goals) == 0 {
		return prompt, nil
	}

	ids := make([]uint, 0, len(goals))
	for _, goal := range goals {
		ids = append(ids, goal.VitalNameID)
	}
	names, err := tx.VitalNames.ListByIDs(ids)
	if err != nil {
		return "", err
	}
	nameByID := make(map[uint]string, len(names))
	for _, name := range names {
		nameByID[name.ID] = name.Name
	}

	var builder strings.Builder
	builder.WriteString(prompt)
	builder.WriteString("\n\n")
	builder.WriteString(service.messages.Translate(language, "agent.goals_header"))
	for _, goal := range goals {
		fmt.Fprintf(&builder, "\nID %d: %s = %g (%s - %s)",
			goal.ID,
			nameByID[goal.VitalNameID],
			goal.TargetValue,
			goal.StartDate.UTC().Format(dateLayout),
			goal.EndDate.UTC().Format(dateLayout),
		)
	}
	return builder.String(), nil
}

func (service *Service) runToolCall(ctx context.Context, userID uint, call openai.ToolCall) Result {
	op, err := DecodeOperation(call.Function.Name, call.Function.Arguments)
	if err != nil {
		logger.FromContext(ctx).Warn("rejected tool call", zap.String("tool", call.Function.Name), zap.Error(err))
		return Result{Error: describeError(err)}
	}
	return service.executor.Execute(ctx, userID, op)
}

func (service *Service) complete(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	response, err := service.client.CreateChatCompletion(ctx, request)
	if err != nil {
		logger.FromContext(ctx).Error("chat completion failed", zap.Error(err))
		return openai.ChatCompletionResponse{}, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(response.Choices) == 0 {
		return openai.ChatCompletionResponse{}, fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}
	return response, nil
}

// generateTitle asks the model for a short title and falls back to the
// start of the first message.
func (service *Service) generateTitle(ctx context.Context, firstMessage string, language string) string {
	response, err := service.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: service.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: service.messages.Translate(language, "agent.title_prompt")},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
		MaxTokens: titleMaxTokens,
	})
	if err == nil && len(response.Choices) > 0 {
		if title := strings.Trim(strings.TrimSpace(response.Choices[0].Message.Content), `"「」`); title != "" {
			return truncateRunes(title, titleMaxRunes*2)
		}
	}
	if err != nil {
		logger.FromContext(ctx).Warn("title generation failed", zap.Error(err))
	}

	if title := truncateRunes(firstMessage, titleMaxRunes); title != "" {
		return title
	}
	return service.messages.Translate(language, "agent.default_title")
}

func (service *Service) CreateConversation(ctx context.Context, userID uint) (ConversationSummary, error) {
	var summary ConversationSummary
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		conversation, err := service.newConversation(tx, userID)
		if err != nil {
			return err
		}
		summary = newConversationSummary(db.ConversationSummary{ChatConversation: conversation})
		return nil
	})
	return summary, err
}

// ListConversations returns the user's conversations, most recently
// updated first.
func (service *Service) ListConversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	result := make([]ConversationSummary, 0)
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		rows, err := tx.Conversations.ListSummaries(userID)
		if err != nil {
			return err
		}
		for _, row := range rows {
			result = append(result, newConversationSummary(row))
		}
		return nil
	})
	return result, err
}

func (service *Service) History(ctx context.Context, userID uint, conversationID string) (History, error) {
	var history History
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		conversation, ok, err := tx.Conversations.FindOwned(conversationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return services.ErrConversationNotFound
		}
		stored, err := tx.Conversations.ListMessages(conversation.ID)
		if err != nil {
			return err
		}

		history = History{
			ConversationID: conversation.ID,
			Title:          conversation.Title,
			Messages:       make([]HistoryMessage, 0, len(stored)),
		}
		for _, message := range stored {
			history.Messages = append(history.Messages, HistoryMessage{
				ID:          message.ID,
				Role:        message.Role,
				Content:     message.Content,
				ToolCalls:   nonEmptyJSON(message.ToolCalls),
				ToolResults: nonEmptyJSON(message.ToolResults),
				Timestamp:   message.CreatedAt.UTC(),
			})
		}
		return nil
	})
	return history, err
}

func (service *Service) DeleteConversation(ctx context.Context, userID uint, conversationID string) error {
	return service.store.Transaction(ctx, func(tx *db.Repositories) error {
		deleted, err := tx.Conversations.DeleteOwned(conversationID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return services.ErrConversationNotFound
		}
		return nil
	})
}

func newConversationSummary(row db.ConversationSummary) ConversationSummary {
	return ConversationSummary{
		ID:           row.ID,
		Title:        row.Title,
		LastMessage:  row.LastMessage,
		MessageCount: row.MessageCount,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

// nonEmptyJSON drops empty lists so they are omitted from responses.
func nonEmptyJSON(value datatypes.JSON) json.RawMessage {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" || trimmed == "[]" || trimmed == "null" {
		return nil
	}
	return json.RawMessage(trimmed)
}

func rawArguments(arguments string) json.RawMessage {
	if json.Valid([]byte(arguments)) {
		return json.RawMessage(arguments)
	}
	encoded, _ := json.Marshal(arguments)
	return encoded
}

func truncateRunes(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
