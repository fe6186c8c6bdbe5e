package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/terraincognita07/lifelog/internal/config"
	"github.com/terraincognita07/lifelog/internal/i18n"
	"go.uber.org/zap"
)

// sesAPI is the part of the SES client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers login codes as plain text email through Amazon SES.
type SESSender struct {
	client   sesAPI
	from     string
	messages *i18n.Manager
	logger   *zap.Logger
}

func NewSESSender(client sesAPI, from string, messages *i18n.Manager, logger *zap.Logger) *SESSender {
	return &SESSender{client: client, from: from, messages: messages, logger: logger}
}

func (sender *SESSender) SendLoginCode(ctx context.Context, email string, code string, ttl time.Duration, language string) error {
	subject, body := loginCodeMessage(sender.messages, code, ttl, language)
	output, err := sender.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
		Source: aws.String(sender.from),
	})
	if err != nil {
		sender.logger.Warn("ses send failed", zap.Error(err))
		return fmt.Errorf("send login code: %w", err)
	}

	sender.logger.Info("login code sent", zap.String("message_id", aws.ToString(output.MessageId)))
	return nil
}

// LogSender writes login codes to the log. It is the delivery path for
// development setups without mail.
type LogSender struct {
	messages *i18n.Manager
	logger   *zap.Logger
}

func NewLogSender(messages *i18n.Manager, logger *zap.Logger) *LogSender {
	return &LogSender{messages: messages, logger: logger}
}

func (sender *LogSender) SendLoginCode(_ context.Context, email string, code string, ttl time.Duration, language string) error {
	subject, _ := loginCodeMessage(sender.messages, code, ttl, language)
	sender.logger.Info("login code issued",
		zap.String("email", email),
		zap.String("subject", subject),
		zap.String("code", code),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Sender is the delivery contract shared by SESSender and LogSender.
type Sender interface {
	SendLoginCode(ctx context.Context, email string, code string, ttl time.Duration, language string) error
}

// New returns an SES sender when a sender address is configured and a log
// sender otherwise.
func New(ctx context.Context, cfg config.MailConfig, messages *i18n.Manager, logger *zap.Logger) (Sender, error) {
	if cfg.FromEmail == "" {
		logger.Warn("SES_FROM_EMAIL not set, login codes are written to the log")
		return NewLogSender(messages, logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESSender(ses.NewFromConfig(awsCfg), cfg.FromEmail, messages, logger), nil
}

func loginCodeMessage(messages *i18n.Manager, code string, ttl time.Duration, language string) (string, string) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	subject := messages.Translate(language, "email.login_code.subject")
	body := messages.Translatef(language, "email.login_code.body", code, minutes)
	return subject, body
}
