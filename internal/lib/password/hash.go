// Package password реализует хеширование паролей и одноразовые токены.
//
// GetHash создаёт bcrypt-хеш пароля для хранения в базе данных,
// CompareHash сверяет хеш с введённым паролем. Одноразовые токены
// (сброс пароля, подтверждение e-mail) хранятся в базе только в виде SHA-256.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
)

const (
	// tokenBytes: длина случайной части одноразового токена.
	tokenBytes = 32
	// MaxBytes: предел длины пароля в байтах, дальше bcrypt не принимает.
	MaxBytes = 72
)

// GetHash принимает пароль пользователя и возвращает его bcrypt‑хэш.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if len(password) > MaxBytes {
		return "", fmt.Errorf("%s: %w", op, apperr.NewValidation("password", fmt.Sprintf("must be at most %d bytes", MaxBytes)))
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым паролем.
//
// Возвращает nil, если пароль соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NewToken генерирует одноразовый токен. raw отправляется пользователю,
// hash сохраняется в базе.
func NewToken() (raw, hash string, err error) {
	const op = "password.NewToken"
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken возвращает SHA-256 одноразового токена в hex.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
