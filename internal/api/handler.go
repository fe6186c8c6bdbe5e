package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/lifelog/internal/agent"
	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"github.com/terraincognita07/lifelog/internal/services"
	"gorm.io/gorm"
)

const (
	verifyFailureLimit  = 5
	verifyFailureWindow = 15 * time.Minute
)

// Options carries the settings the handler needs from configuration.
type Options struct {
	SecretKey      string
	AccessTokenTTL time.Duration
	CodeTTL        time.Duration
	EchoCode       bool
	Location       *time.Location
	ChatModel      string
}

type Handler struct {
	db             *gorm.DB
	secretKey      []byte
	accessTokenTTL time.Duration
	codeTTL        time.Duration
	echoCode       bool
	location       *time.Location
	chatModel      string
	i18n           *i18n.Manager
	codeSender     services.CodeSender
	chatClient     agent.ChatClient
	verifyLimiter  *attemptLimiter

	repositories      *db.Repositories
	authService       *services.AuthService
	profileService    *services.ProfileService
	vitalService      *services.VitalService
	statisticsService *services.StatisticsService
	goalService       *services.GoalService
	friendService     *services.FriendService
	agentService      *agent.Service
}

// NewHandler wires the HTTP surface. A nil sender leaves codes undelivered
// and a nil chat client disables the assistant.
func NewHandler(database *gorm.DB, options Options, i18nManager *i18n.Manager, sender services.CodeSender, chatClient agent.ChatClient) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if i18nManager == nil {
		return nil, errors.New("i18n manager is required")
	}
	if len(options.SecretKey) == 0 {
		return nil, errors.New("secret key is required")
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.AccessTokenTTL <= 0 {
		options.AccessTokenTTL = defaultAccessTokenTTL
	}

	handler := &Handler{
		db:             database,
		secretKey:      []byte(options.SecretKey),
		accessTokenTTL: options.AccessTokenTTL,
		codeTTL:        options.CodeTTL,
		echoCode:       options.EchoCode,
		location:       options.Location,
		chatModel:      options.ChatModel,
		i18n:           i18nManager,
		codeSender:     sender,
		chatClient:     chatClient,
		verifyLimiter:  newAttemptLimiter(verifyFailureLimit, verifyFailureWindow),
	}
	return handler.withDependencies(database), nil
}
