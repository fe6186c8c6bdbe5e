package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/terraincognita07/lifelog/internal/db"
	"github.com/terraincognita07/lifelog/internal/metrics"
	"github.com/terraincognita07/lifelog/internal/models"
	"github.com/terraincognita07/lifelog/internal/security"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	LoginCodeLength     = 6
	DefaultLoginCodeTTL = 10 * time.Minute
	maxEmailLength      = 254
)

// CodeSender delivers one-time login codes to the user.
type CodeSender interface {
	SendLoginCode(ctx context.Context, email string, code string, ttl time.Duration, language string) error
}

type IssuedChallenge struct {
	UserID    uint
	Email     string
	Code      string
	ExpiresAt time.Time
}

type AuthService struct {
	store   Store
	sender  CodeSender
	codeTTL time.Duration
	now     func() time.Time
	compare func(hash []byte, code []byte) error
}

// dummyCodeHash stands in for the stored hash when there is no challenge to
// compare against.
var dummyCodeHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("no-active-challenge"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("hash placeholder login code: %v", err))
	}
	return hash
})

// NewAuthService builds the one-time code flow. A nil sender skips delivery.
func NewAuthService(store Store, sender CodeSender, codeTTL time.Duration) *AuthService {
	if codeTTL <= 0 {
		codeTTL = DefaultLoginCodeTTL
	}
	return &AuthService{
		store:   store,
		sender:  sender,
		codeTTL: codeTTL,
		now:     time.Now,
		compare: bcrypt.CompareHashAndPassword,
	}
}

func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// IssueChallenge provisions the user on first contact, replaces any earlier
// challenge and delivers a fresh code.
func (service *AuthService) IssueChallenge(ctx context.Context, rawEmail string, language string) (IssuedChallenge, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return IssuedChallenge{}, err
	}

	code, err := security.NumericCode(LoginCodeLength)
	if err != nil {
		return IssuedChallenge{}, fmt.Errorf("generate login code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return IssuedChallenge{}, fmt.Errorf("hash login code: %w", err)
	}

	now := service.now().UTC()
	issued := IssuedChallenge{Email: email, Code: code, ExpiresAt: now.Add(service.codeTTL)}
	err = service.store.Transaction(ctx, func(tx *db.Repositories) error {
		user, found, err := tx.Users.FindByNormalizedEmail(email)
		if err != nil {
			return err
		}
		if !found {
			user = models.User{
				Email:     email,
				Username:  strings.SplitN(email, "@", 2)[0],
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Users.Create(&user); err != nil {
				return err
			}
		}
		issued.UserID = user.ID

		return tx.Challenges.Replace(&models.AuthChallenge{
			UserID:    user.ID,
			CodeHash:  string(codeHash),
			ExpiresAt: issued.ExpiresAt,
			CreatedAt: now,
		})
	})
	if err != nil {
		return IssuedChallenge{}, err
	}
	metrics.RecordChallenge(metrics.ChallengeIssued)

	if service.sender != nil {
		if err := service.sender.SendLoginCode(ctx, email, code, service.codeTTL, language); err != nil {
			return issued, fmt.Errorf("%w: %v", ErrCodeDeliveryFailed, err)
		}
	}
	return issued, nil
}

// VerifyChallenge consumes the user's challenge. Every failure reports
// ErrInvalidChallenge after exactly one hash comparison, so neither the
// error nor the response time tells the cases apart.
func (service *AuthService) VerifyChallenge(ctx context.Context, rawEmail string, code string) (models.User, error) {
	code = strings.TrimSpace(code)
	email, emailErr := NormalizeEmail(rawEmail)

	var user models.User
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		var (
			found     models.User
			challenge models.AuthChallenge
			known     bool
		)
		if emailErr == nil {
			var exists bool
			var err error
			found, exists, err = tx.Users.FindByNormalizedEmail(email)
			if err != nil {
				return err
			}
			if exists {
				challenge, known, err = tx.Challenges.FindActiveByUser(found.ID)
				if err != nil {
					return err
				}
			}
		}

		hash := dummyCodeHash()
		if known {
			hash = []byte(challenge.CodeHash)
		}
		matched := service.compare(hash, []byte(code)) == nil
		if !known || !matched || challenge.ExpiredAt(service.now()) {
			return ErrInvalidChallenge
		}

		consumed, err := tx.Challenges.MarkUsed(challenge.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrInvalidChallenge
		}
		user = found
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidChallenge) {
			metrics.RecordChallenge(metrics.ChallengeRejected)
		}
		return models.User{}, err
	}

	metrics.RecordChallenge(metrics.ChallengeVerified)
	return user, nil
}

func (service *AuthService) FindByID(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	err := service.store.Transaction(ctx, func(tx *db.Repositories) error {
		found, err := tx.Users.FindByID(userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		user = found
		return err
	})
	return user, err
}
