package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для любого токена, который не прошёл проверку.
var ErrInvalidToken = errors.New("invalid token")

// CustomClaims описывает данные, хранящиеся в JWT.
type CustomClaims struct {
	UserID  int64 `json:"uid"` // Идентификатор пользователя
	IsAdmin bool  `json:"adm"` // Признак администратора на момент выпуска
	jwt.RegisteredClaims
}

// SessionID возвращает идентификатор сессии (claim jti).
func (c *CustomClaims) SessionID() string {
	return c.ID
}

// GenerateToken создаёт JWT токен, подписанный секретным ключом (HS256).
func (j *MakerImpl) GenerateToken(userID int64, isAdmin bool, sessionID string) (string, time.Time, error) {
	const op = "jwt.GenerateToken"
	now := j.now()
	expiresAt := now.Add(j.tokenTTL)
	claims := CustomClaims{
		UserID:  userID,
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return signed, expiresAt, nil
}

// ParseToken парсит JWT токен, проверяет подпись, алгоритм и срок действия.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
