// Package auth проверяет access токены, выпущенные внешним сервисом авторизации,
// и превращает их в entity.Actor.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
)

var ErrInvalidToken = errors.New("токен невалиден")

// TokenManager проверяет (и для тестов выпускает) HS256 access токены.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// IssueAccess выпускает access токен с клеймами sub и role.
func (m *TokenManager) IssueAccess(actor entity.Actor) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  actor.ID.String(),
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAccess извлекает пользователя и роль из access токена.
// Неизвестная роль понижается до user.
func (m *TokenManager) ParseAccess(raw string) (entity.Actor, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return entity.Actor{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return entity.Actor{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return entity.Actor{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(sub)
	if err != nil || userID == uuid.Nil {
		return entity.Actor{}, ErrInvalidToken
	}

	role := entity.RoleUser
	if r, _ := claims["role"].(string); entity.Role(r) == entity.RoleAdmin {
		role = entity.RoleAdmin
	}

	return entity.Actor{ID: userID, Role: role}, nil
}
