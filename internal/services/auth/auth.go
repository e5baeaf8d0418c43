// Package auth содержит бизнес-логику регистрации, входа, сессий и восстановления пароля.
//
// Токен JWT сам по себе не является доказательством аутентификации: на каждом
// запросе Authenticate проверяет подпись, затем наличие неистёкшей записи сессии
// и только потом загружает пользователя. Признак администратора берётся из базы.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/jwt"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/password"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/sl"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
)

// UserRepository описывает контракт хранилища пользователей и сессий.
type UserRepository interface {
	CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, passwordHash string) error
	SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (int64, error)
	SetVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	ConsumeVerificationToken(ctx context.Context, tokenHash string) (int64, error)

	CreateSession(ctx context.Context, sess models.UserSession) error
	GetActiveSession(ctx context.Context, id string) (*models.UserSession, error)
	DeleteSession(ctx context.Context, id string) error
}

// Mailer ставит письмо в очередь отправки.
type Mailer interface {
	SendEmail(ctx context.Context, msg models.EmailMessage) error
}

// Options: настраиваемые параметры сервиса.
type Options struct {
	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	// PublicBaseURL: адрес клиента, на который ведут ссылки в письмах.
	PublicBaseURL string
}

// SessionMeta: сведения о клиенте, сохраняемые вместе с сессией.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// LoginResult: выпущенный токен и пользователь.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Service отвечает за регистрацию, авторизацию и восстановление доступа.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
	mailer   Mailer
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(users UserRepository, jwtMaker jwt.Maker, mailer Mailer, opts Options, log *slog.Logger) *Service {
	if opts.ResetTokenTTL == 0 {
		opts.ResetTokenTTL = 24 * time.Hour
	}
	if opts.VerificationTokenTTL == 0 {
		opts.VerificationTokenTTL = 24 * time.Hour
	}
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
		mailer:   mailer,
		opts:     opts,
		log:      log,
		now:      time.Now,
	}
}

// NormalizeEmail приводит адрес к виду, в котором он хранится и сравнивается.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя. Первый зарегистрированный пользователь становится администратором.
// Письмо с подтверждением адреса ставится в очередь; сбой очереди не отменяет регистрацию.
func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*models.User, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, tokenHash, err := password.NewToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.NewUser{
		Email:                 NormalizeEmail(email),
		Name:                  strings.TrimSpace(name),
		PasswordHash:          hashed,
		VerificationTokenHash: tokenHash,
		VerificationExpiresAt: s.now().Add(s.opts.VerificationTokenTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.sendVerification(ctx, user, raw)
	return user, nil
}

// Login проверяет пароль и создаёт сессию. Запись сессии появляется только при успешной проверке.
func (s *Service) Login(ctx context.Context, email, rawPassword string, meta SessionMeta) (*LoginResult, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%s: invalid credentials: %w", op, apperr.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, fmt.Errorf("%s: invalid credentials: %w", op, apperr.ErrUnauthenticated)
	}

	res, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (s *Service) issueSession(ctx context.Context, user *models.User, meta SessionMeta) (*LoginResult, error) {
	sid := uuid.NewString()
	token, expiresAt, err := s.jwtMaker.GenerateToken(user.ID, user.IsAdmin, sid)
	if err != nil {
		return nil, err
	}
	err = s.users.CreateSession(ctx, models.UserSession{
		ID:        sid,
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate проверяет токен, запись сессии и возвращает пользователя запроса.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, models.Actor, error) {
	const op = "auth.Authenticate"

	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, models.Actor{}, fmt.Errorf("%s: %w: %w", op, apperr.ErrUnauthenticated, err)
	}
	sid := claims.SessionID()
	if sid == "" {
		return nil, models.Actor{}, fmt.Errorf("%s: token has no session: %w", op, apperr.ErrUnauthenticated)
	}

	sess, err := s.users.GetActiveSession(ctx, sid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, models.Actor{}, fmt.Errorf("%s: session revoked or expired: %w", op, apperr.ErrUnauthenticated)
		}
		return nil, models.Actor{}, fmt.Errorf("%s: %w", op, err)
	}
	if sess.UserID != claims.UserID {
		return nil, models.Actor{}, fmt.Errorf("%s: session user mismatch: %w", op, apperr.ErrUnauthenticated)
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, models.Actor{}, fmt.Errorf("%s: user deleted: %w", op, apperr.ErrUnauthenticated)
		}
		return nil, models.Actor{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, models.Actor{UserID: user.ID, IsAdmin: user.IsAdmin, SessionID: sid}, nil
}

// Logout удаляет запись текущей сессии. Повторный выход не считается ошибкой.
func (s *Service) Logout(ctx context.Context, actor models.Actor) error {
	const op = "auth.Logout"
	if err := s.users.DeleteSession(ctx, actor.SessionID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, actor models.Actor) (*models.User, error) {
	const op = "auth.Me"
	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ForgotPassword выпускает токен сброса пароля и отправляет его на почту.
// Для неизвестного адреса ничего не делает и не сообщает об этом.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, tokenHash, err := password.NewToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, s.now().Add(s.opts.ResetTokenTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.EmailMessage{
		To:      []string{user.Email},
		Subject: "Сброс пароля",
		Body: fmt.Sprintf("Здравствуйте, %s!\n\nДля сброса пароля перейдите по ссылке:\n%s\n\nСсылка действует %s. "+
			"Если вы не запрашивали сброс, проигнорируйте это письмо.",
			user.Name, s.link("/reset-password", raw), s.opts.ResetTokenTTL),
	}
	if err := s.mailer.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword устанавливает новый пароль по одноразовому токену и завершает все сессии пользователя.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "auth.ResetPassword"

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.users.ConsumeResetToken(ctx, password.HashToken(token), hashed); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.NewValidation("token", "invalid or expired token"))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangePassword меняет пароль, завершает все сессии пользователя и выдаёт новый токен.
func (s *Service) ChangePassword(ctx context.Context, actor models.Actor, current, newPassword string,
	meta SessionMeta) (*LoginResult, error) {
	const op = "auth.ChangePassword"

	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, current); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.NewValidation("current_password", "does not match"))
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.ChangePassword(ctx, user.ID, hashed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// VerifyEmail подтверждает адрес по одноразовому токену.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	const op = "auth.VerifyEmail"
	if _, err := s.users.ConsumeVerificationToken(ctx, password.HashToken(token)); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.NewValidation("token", "invalid or expired token"))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResendVerification выпускает новый токен подтверждения, заменяя предыдущий.
func (s *Service) ResendVerification(ctx context.Context, actor models.Actor) error {
	const op = "auth.ResendVerification"

	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.EmailVerified {
		return fmt.Errorf("%s: %w", op, apperr.NewValidation("email", "already verified"))
	}

	raw, tokenHash, err := password.NewToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, tokenHash, s.now().Add(s.opts.VerificationTokenTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mailer.SendEmail(ctx, s.verificationMessage(user, raw)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) sendVerification(ctx context.Context, user *models.User, raw string) {
	if err := s.mailer.SendEmail(ctx, s.verificationMessage(user, raw)); err != nil {
		s.log.Warn("failed to queue verification email",
			sl.Op("auth.sendVerification"), slog.Int64("user_id", user.ID), sl.Err(err))
	}
}

func (s *Service) verificationMessage(user *models.User, raw string) models.EmailMessage {
	return models.EmailMessage{
		To:      []string{user.Email},
		Subject: "Подтверждение адреса электронной почты",
		Body: fmt.Sprintf("Здравствуйте, %s!\n\nПодтвердите адрес, перейдя по ссылке:\n%s\n\nСсылка действует %s.",
			user.Name, s.link("/verify-email", raw), s.opts.VerificationTokenTTL),
	}
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}
