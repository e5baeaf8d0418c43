// Package jwt реализует выпуск и разбор JWT токенов сессии.
//
// Токен несёт идентификатор пользователя, признак администратора и идентификатор
// сессии (sid). Сам по себе токен не является источником истины: запись сессии
// в базе данных проверяется на каждом защищённом запросе.
package jwt

import (
	"time"
)

// DefaultTTL: время жизни токена по умолчанию.
const DefaultTTL = 7 * 24 * time.Hour

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken подписывает токен для пользователя и сессии и возвращает время его истечения.
	GenerateToken(userID int64, isAdmin bool, sessionID string) (string, time.Time, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
	// TTL возвращает время жизни выпускаемых токенов.
	TTL() time.Duration
}

// MakerImpl реализует Maker с использованием секретного ключа HMAC и TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт новый MakerImpl. Нулевой ttl заменяется на DefaultTTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// TTL возвращает время жизни токена.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
