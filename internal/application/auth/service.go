package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelance-hub/internal/domain"
	pkgtoken "github.com/freelance-hub/internal/pkg/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const codeDigits = 6

type Service interface {
	RequestPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryRequest) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
}

type recoveryStore interface {
	Put(ctx context.Context, c *domain.RecoveryCode) error
	Get(ctx context.Context, userID, typ string) (*domain.RecoveryCode, error)
	Delete(ctx context.Context, userID, typ string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	codes  recoveryStore
	users  userStore
	mailer mailer
	ttl    time.Duration
	log    *zap.Logger
}

type ServiceDeps struct {
	RecoveryRepo recoveryStore
	UserRepo     userStore
	Mailer       mailer // nil disables recovery mail
	CodeTTL      time.Duration
	Log          *zap.Logger
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.CodeTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		codes:  deps.RecoveryRepo,
		users:  deps.UserRepo,
		mailer: deps.Mailer,
		ttl:    ttl,
		log:    log,
	}
}

// RequestPasswordRecovery mails a fresh code to the account owner. Unknown
// addresses succeed silently so the endpoint cannot be used to probe accounts.
func (s *service) RequestPasswordRecovery(ctx context.Context, req domain.PasswordRecoveryRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Info("password recovery for unknown email")
			return nil
		}
		return err
	}
	if !u.Enable {
		return nil
	}
	if s.mailer == nil {
		return fmt.Errorf("password recovery mail is not configured: %w", domain.ErrBadRequest)
	}

	code, err := pkgtoken.NewNumericCode(codeDigits)
	if err != nil {
		return err
	}
	rc := &domain.RecoveryCode{
		UserID:    u.UserID,
		Type:      domain.RecoveryTypePassword,
		Code:      code,
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}
	if err := s.codes.Put(ctx, rc); err != nil {
		return err
	}
	body := fmt.Sprintf("Your password recovery code is %s. It expires in %d minutes.", code, int(s.ttl.Minutes()))
	return s.mailer.SendEmail(u.Email, "Password recovery code", body)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid recovery code: %w", domain.ErrUnauthorized)
		}
		return err
	}
	rc, err := s.codes.Get(ctx, u.UserID, domain.RecoveryTypePassword)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid recovery code: %w", domain.ErrUnauthorized)
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(rc.Code), []byte(req.Code)) != 1 {
		return fmt.Errorf("invalid recovery code: %w", domain.ErrUnauthorized)
	}
	if rc.ExpiresAt < time.Now().Unix() {
		return fmt.Errorf("recovery code expired: %w", domain.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.codes.Delete(ctx, u.UserID, domain.RecoveryTypePassword); err != nil {
		s.log.Warn("failed to delete recovery code", zap.String("user_id", u.UserID), zap.Error(err))
	}
	return nil
}
