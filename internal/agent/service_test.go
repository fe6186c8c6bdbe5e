package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"github.com/terraincognita07/lifelog/internal/models"
	"github.com/terraincognita07/lifelog/internal/services"
	"go.uber.org/zap"
)

type scriptedClient struct {
	responses []openai.ChatCompletionResponse
	errs      []error
	requests  []openai.ChatCompletionRequest
}

func (client *scriptedClient) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	index := len(client.requests)
	client.requests = append(client.requests, request)
	if index < len(client.errs) && client.errs[index] != nil {
		return openai.ChatCompletionResponse{}, client.errs[index]
	}
	if index >= len(client.responses) {
		return openai.ChatCompletionResponse{}, errors.New("unexpected completion call")
	}
	return client.responses[index], nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
	}}}
}

func toolResponse(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls},
	}}}
}

func toolCall(id string, name string, arguments string) openai.ToolCall {
	return openai.ToolCall{ID: id, Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: name, Arguments: arguments}}
}

func testMessages(t *testing.T) *i18n.Manager {
	t.Helper()

	manager, err := i18n.NewEmbeddedManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("load locales: %v", err)
	}
	return manager
}

type agentFixture struct {
	repos   *db.Repositories
	user    models.User
	service *Service
	client  *scriptedClient
}

func newAgentFixture(t *testing.T, client *scriptedClient) agentFixture {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "agent-test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repos := db.NewRepositories(database)

	now := time.Now().UTC()
	user := models.User{Email: "member@example.com", Username: "member", CreatedAt: now, UpdatedAt: now}
	if err := repos.Users.Create(&user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	resolver := services.NewValueResolver(time.UTC)
	executor := NewExecutor(services.NewGoalService(repos, resolver), services.NewVitalService(repos), time.UTC)
	var chat ChatClient
	if client != nil {
		chat = client
	}
	service := NewService(repos, chat, executor, testMessages(t), "test-model", time.UTC)
	return agentFixture{repos: repos, user: user, service: service, client: client}
}

func TestSendMessageRunsToolCallsAndPersistsThem(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse(
			toolCall("call-1", "register_vital_data", `{"data_name":"steps","value":4200,"date":"2025-05-05 08:30:00"}`),
			toolCall("call-2", "create_objective", `{"data_name":"steps","start_date":"2025-05-01","end_date":"2025-05-31","objective_value":8000}`),
		),
		textResponse("Recorded 4200 steps and created your goal."),
		textResponse("Steps goal"),
	}}
	fixture := newAgentFixture(t, client)

	reply, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, "", "I walked 4200 steps, set a goal of 8000", "en")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if reply.Message != "Recorded 4200 steps and created your goal." || reply.ConversationID == "" {
		t.Fatalf("unexpected reply: %#v", reply)
	}
	if len(reply.ToolCalls) != 2 || reply.ToolCalls[0].Name != "register_vital_data" {
		t.Fatalf("unexpected tool calls: %#v", reply.ToolCalls)
	}

	if len(client.requests) != 3 {
		t.Fatalf("expected three completion calls, got %d", len(client.requests))
	}
	first := client.requests[0]
	if len(first.Tools) != len(OperationNames) || first.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("unexpected first request: %#v", first)
	}
	second := client.requests[1]
	toolMessages := 0
	for _, message := range second.Messages {
		if message.Role == openai.ChatMessageRoleTool {
			toolMessages++
			var result Result
			if err := json.Unmarshal([]byte(message.Content), &result); err != nil || !result.Success {
				t.Fatalf("expected successful tool result, got %q (%v)", message.Content, err)
			}
		}
	}
	if toolMessages != 2 {
		t.Fatalf("expected two tool results, got %d", toolMessages)
	}

	goals, err := fixture.repos.Goals.ListByUser(fixture.user.ID)
	if err != nil || len(goals) != 1 || goals[0].TargetValue != 8000 {
		t.Fatalf("expected the goal to be created, got %#v (%v)", goals, err)
	}
	readings, err := fixture.repos.Readings.ListByUser(fixture.user.ID)
	if err != nil || len(readings) != 1 || readings[0].Value != 4200 {
		t.Fatalf("expected the reading to be stored, got %#v (%v)", readings, err)
	}

	history, err := fixture.service.History(context.Background(), fixture.user.ID, reply.ConversationID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if history.Title != "Steps goal" || len(history.Messages) != 2 {
		t.Fatalf("unexpected history: %#v", history)
	}
	if history.Messages[0].Role != models.ChatRoleUser || history.Messages[0].ToolCalls != nil {
		t.Fatalf("unexpected user message: %#v", history.Messages[0])
	}
	assistant := history.Messages[1]
	if !strings.Contains(string(assistant.ToolCalls), "call-2") || !strings.Contains(string(assistant.ToolResults), `"success":true`) {
		t.Fatalf("expected persisted tool calls and results, got %s / %s", assistant.ToolCalls, assistant.ToolResults)
	}
}

func TestSendMessageReturnsToolErrorsToModel(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{
		toolResponse(
			toolCall("call-1", "delete_objective", `{"objective_id":42}`),
			toolCall("call-2", "format_disk", `{}`),
		),
		textResponse("I could not find that goal."),
		textResponse("Goal cleanup"),
	}}
	fixture := newAgentFixture(t, client)

	if _, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, "", "delete goal 42", "en"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}

	var results []string
	for _, message := range client.requests[1].Messages {
		if message.Role == openai.ChatMessageRoleTool {
			results = append(results, message.Content)
		}
	}
	if len(results) != 2 {
		t.Fatalf("expected two tool results, got %#v", results)
	}
	if !strings.Contains(results[0], "goal not found") {
		t.Fatalf("expected not found result, got %q", results[0])
	}
	if !strings.Contains(results[1], "unknown operation") {
		t.Fatalf("expected unknown operation result, got %q", results[1])
	}
}

func TestSystemPromptListsGoals(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{textResponse("Hello"), textResponse("Greeting")}}
	fixture := newAgentFixture(t, client)

	metric, err := fixture.repos.VitalNames.Ensure("weight")
	if err != nil {
		t.Fatalf("ensure metric: %v", err)
	}
	now := time.Now().UTC()
	goal := models.Goal{
		UserID:      fixture.user.ID,
		VitalNameID: metric.ID,
		StartDate:   time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC),
		TargetValue: 65,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := fixture.repos.Goals.Create(&goal); err != nil {
		t.Fatalf("create goal: %v", err)
	}

	if _, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, "", "hi", "en"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	prompt := client.requests[0].Messages[0].Content
	if !strings.Contains(prompt, "weight = 65") || !strings.Contains(prompt, "Current goals of the user:") {
		t.Fatalf("expected goal listing in system prompt, got %q", prompt)
	}
}

func TestSendMessageKeepsUserMessageWhenCompletionFails(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("rate limited")}}
	fixture := newAgentFixture(t, client)

	conversation, err := fixture.service.CreateConversation(context.Background(), fixture.user.ID)
	if err != nil {
		t.Fatalf("CreateConversation returned error: %v", err)
	}

	_, err = fixture.service.SendMessage(context.Background(), fixture.user.ID, conversation.ID, "hello", "en")
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected ErrCompletionFailed, got %v", err)
	}

	history, err := fixture.service.History(context.Background(), fixture.user.ID, conversation.ID)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history.Messages) != 1 || history.Messages[0].Content != "hello" {
		t.Fatalf("expected the user message to stay stored, got %#v", history.Messages)
	}
}

func TestSendMessageValidatesLength(t *testing.T) {
	client := &scriptedClient{responses: []openai.ChatCompletionResponse{textResponse("ok")}}
	fixture := newAgentFixture(t, client)

	conversation, err := fixture.service.CreateConversation(context.Background(), fixture.user.ID)
	if err != nil {
		t.Fatalf("CreateConversation returned error: %v", err)
	}

	cases := []struct {
		name    string
		content string
		want    error
	}{
		{name: "blank", content: "  \n ", want: ErrEmptyMessage},
		{name: "over limit", content: strings.Repeat("ä", maxMessageRunes+1), want: ErrMessageTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, conversation.ID, tc.content, "en"); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if len(client.requests) != 0 {
		t.Fatalf("rejected messages must not reach the model, got %d calls", len(client.requests))
	}

	if _, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, conversation.ID, strings.Repeat("ä", maxMessageRunes), "en"); err != nil {
		t.Fatalf("message at the limit returned error: %v", err)
	}
}

func TestTitleFallsBackToFirstMessage(t *testing.T) {
	client := &scriptedClient{
		responses: []openai.ChatCompletionResponse{textResponse("Sure")},
		errs:      []error{nil, errors.New("title model down")},
	}
	fixture := newAgentFixture(t, client)

	reply, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, "", "How much should I sleep every night to recover?", "en")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	summaries, err := fixture.service.ListConversations(context.Background(), fixture.user.ID)
	if err != nil {
		t.Fatalf("ListConversations returned error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != reply.ConversationID {
		t.Fatalf("unexpected summaries: %#v", summaries)
	}
	if summaries[0].Title != "How much should I sl" {
		t.Fatalf("unexpected fallback title: %q", summaries[0].Title)
	}
	if summaries[0].MessageCount != 2 || summaries[0].LastMessage != "Sure" {
		t.Fatalf("unexpected summary counts: %#v", summaries[0])
	}
}

func TestConversationsAreOwnerScoped(t *testing.T) {
	fixture := newAgentFixture(t, nil)
	now := time.Now().UTC()
	stranger := models.User{Email: "stranger@example.com", Username: "stranger", CreatedAt: now, UpdatedAt: now}
	if err := fixture.repos.Users.Create(&stranger); err != nil {
		t.Fatalf("create stranger: %v", err)
	}

	conversation, err := fixture.service.CreateConversation(context.Background(), fixture.user.ID)
	if err != nil {
		t.Fatalf("CreateConversation returned error: %v", err)
	}

	if _, err := fixture.service.History(context.Background(), stranger.ID, conversation.ID); !errors.Is(err, services.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for stranger history, got %v", err)
	}
	if err := fixture.service.DeleteConversation(context.Background(), stranger.ID, conversation.ID); !errors.Is(err, services.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for stranger delete, got %v", err)
	}
	if _, err := fixture.service.SendMessage(context.Background(), fixture.user.ID, conversation.ID, "hi", "en"); !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("expected disabled assistant to fail, got %v", err)
	}
	if err := fixture.service.DeleteConversation(context.Background(), fixture.user.ID, conversation.ID); err != nil {
		t.Fatalf("DeleteConversation returned error: %v", err)
	}
	summaries, err := fixture.service.ListConversations(context.Background(), fixture.user.ID)
	if err != nil || len(summaries) != 0 {
		t.Fatalf("expected no conversations after delete, got %#v (%v)", summaries, err)
	}
}
