package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/lifelog/internal/agent"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"go.uber.org/zap"
)

const testSecretKey = "test-secret-key-with-at-least-32-characters"

func newTestApp(t *testing.T) (*fiber.App, *db.Repositories) {
	t.Helper()
	return newTestAppWithChat(t, nil)
}

func newTestAppWithChat(t *testing.T, chatClient agent.ChatClient) (*fiber.App, *db.Repositories) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "lifelog-api-test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	i18nManager, err := i18n.NewEmbeddedManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	handler, err := NewHandler(database, Options{
		SecretKey:      testSecretKey,
		AccessTokenTTL: time.Hour,
		CodeTTL:        time.Minute,
		EchoCode:       true,
		Location:       time.UTC,
		ChatModel:      "test-model",
	}, i18nManager, nil, chatClient)
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app, db.NewRepositories(database)
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	content, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("%s %s read body failed: %v", method, path, err)
	}
	return response, content
}

func expectStatus(t *testing.T, response *http.Response, body []byte, expected int) {
	t.Helper()

	if response.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, response.StatusCode, string(body))
	}
}

func decodeBody(t *testing.T, body []byte, target any) {
	t.Helper()

	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode response body %q: %v", string(body), err)
	}
}

func readAPIError(t *testing.T, body []byte) string {
	t.Helper()

	payload := map[string]any{}
	decodeBody(t, body, &payload)
	message, _ := payload["error"].(string)
	return message
}

func requestCode(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	response, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email})
	expectStatus(t, response, body, http.StatusOK)

	payload := struct {
		Sent bool   `json:"sent"`
		Code string `json:"code"`
	}{}
	decodeBody(t, body, &payload)
	if !payload.Sent || payload.Code == "" {
		t.Fatalf("expected an echoed code, got %s", string(body))
	}
	return payload.Code
}

// loginAs runs the full code flow and returns a bearer token and user id.
func loginAs(t *testing.T, app *fiber.App, email string) (string, uint) {
	t.Helper()

	code := requestCode(t, app, email)
	response, body := doJSON(t, app, http.MethodPost, "/api/auth/verify", "", map[string]string{"email": email, "code": code})
	expectStatus(t, response, body, http.StatusOK)

	payload := struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID uint `json:"id"`
		} `json:"user"`
	}{}
	decodeBody(t, body, &payload)
	if payload.AccessToken == "" || payload.User.ID == 0 {
		t.Fatalf("unexpected verify response: %s", string(body))
	}
	return payload.AccessToken, payload.User.ID
}
