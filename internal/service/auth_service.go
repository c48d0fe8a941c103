package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"memory_webapp/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthService выдает и проверяет JWT, субъект токена - id игрока
type AuthService struct {
	secret   []byte
	ttl      time.Duration
	botToken string
	audit    *AuditService
	now      func() time.Time
}

func NewAuthService(secret string, ttl time.Duration, botToken string, audit *AuditService) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		secret:   []byte(secret),
		ttl:      ttl,
		botToken: botToken,
		audit:    audit,
		now:      time.Now,
	}
}

// IssueToken подписывает токен для игрока
func (s *AuthService) IssueToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue token: empty user id")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken возвращает id игрока из валидного токена
func (s *AuthService) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// LoginTelegram проверяет init_data мини-аппа и выдает токен
func (s *AuthService) LoginTelegram(ctx context.Context, initData, ip, userAgent string) (string, *TelegramUser, error) {
	values, ok := ValidateTelegramInitData(initData, s.botToken)
	if !ok {
		return "", nil, ErrInvalidInitData
	}
	user, err := ParseTelegramUser(values)
	if err != nil {
		return "", nil, err
	}

	userID := strconv.FormatInt(user.ID, 10)
	token, err := s.IssueToken(userID)
	if err != nil {
		return "", nil, err
	}

	if s.audit != nil {
		s.audit.LogWithRequest(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, ip, userAgent, map[string]interface{}{
			"username": user.Username,
		})
	}
	return token, user, nil
}
