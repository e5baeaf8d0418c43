package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/magabrotheeeer/lab-notebook/internal/lib/apperr"
	customjwt "github.com/magabrotheeeer/lab-notebook/internal/lib/jwt"
	"github.com/magabrotheeeer/lab-notebook/internal/lib/password"
	"github.com/magabrotheeeer/lab-notebook/internal/models"
	"github.com/magabrotheeeer/lab-notebook/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, nu models.NewUser) (*models.User, error) {
	args := m.Called(ctx, nu)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) ChangePassword(ctx context.Context, userID int64, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *UserRepoMock) SetResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *UserRepoMock) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (int64, error) {
	args := m.Called(ctx, tokenHash, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) SetVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *UserRepoMock) ConsumeVerificationToken(ctx context.Context, tokenHash string) (int64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) CreateSession(ctx context.Context, sess models.UserSession) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *UserRepoMock) GetActiveSession(ctx context.Context, id string) (*models.UserSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSession), args.Error(1)
}

func (m *UserRepoMock) DeleteSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	return m.Called(ctx, msg).Error(0)
}

const secret = "test-secret"

func newService(repo *UserRepoMock, mailer *MailerMock) *auth.Service {
	return auth.New(repo, customjwt.NewJWTMaker(secret, time.Hour), mailer,
		auth.Options{PublicBaseURL: "https://lab.example.com/"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func hashOf(t *testing.T, raw string) string {
	t.Helper()
	h, err := password.GetHash(raw)
	require.NoError(t, err)
	return h
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, m *MailerMock)
		wantErr    error
	}{
		{
			name: "successful registration",
			setupMocks: func(r *UserRepoMock, m *MailerMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(nu models.NewUser) bool {
					return nu.Email == "ada@lab.io" &&
						nu.Name == "Ada" &&
						nu.PasswordHash != "" && nu.PasswordHash != "password123" &&
						len(nu.VerificationTokenHash) == 64 &&
						nu.VerificationExpiresAt.After(time.Now())
				})).Return(&models.User{ID: 1, Email: "ada@lab.io", Name: "Ada", IsAdmin: true}, nil).Once()
				m.On("SendEmail", mock.Anything, mock.MatchedBy(func(msg models.EmailMessage) bool {
					return msg.To[0] == "ada@lab.io" &&
						strings.Contains(msg.Body, "https://lab.example.com/verify-email?token=")
				})).Return(nil).Once()
			},
		},
		{
			name: "mail queue failure does not fail registration",
			setupMocks: func(r *UserRepoMock, m *MailerMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(&models.User{ID: 2, Email: "ada@lab.io"}, nil).Once()
				m.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
			},
		},
		{
			name: "duplicate email",
			setupMocks: func(r *UserRepoMock, _ *MailerMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, apperr.ErrConflict).Once()
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			mailer := new(MailerMock)
			tt.setupMocks(repo, mailer)

			user, err := newService(repo, mailer).Register(context.Background(), "  Ada@Lab.io ", " Ada ", "password123")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, user)
			}

			repo.AssertExpectations(t)
			mailer.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	user := &models.User{ID: 7, Email: "ada@lab.io", PasswordHash: hashOf(t, "correctpassword"), IsAdmin: true}

	t.Run("success creates session", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByEmail", mock.Anything, "ada@lab.io").Return(user, nil).Once()
		repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s models.UserSession) bool {
			return s.UserID == 7 && s.ID != "" && s.UserAgent == "curl" && s.IP == "10.0.0.1"
		})).Return(nil).Once()

		res, err := newService(repo, new(MailerMock)).Login(context.Background(), "ADA@lab.io", "correctpassword",
			auth.SessionMeta{UserAgent: "curl", IP: "10.0.0.1"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)

		claims, err := customjwt.NewJWTMaker(secret, time.Hour).ParseToken(res.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
		assert.True(t, claims.IsAdmin)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password creates no session", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByEmail", mock.Anything, "ada@lab.io").Return(user, nil).Once()

		_, err := newService(repo, new(MailerMock)).Login(context.Background(), "ada@lab.io", "nope", auth.SessionMeta{})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("unknown email is unauthenticated", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByEmail", mock.Anything, "ghost@lab.io").Return(nil, apperr.ErrNotFound).Once()

		_, err := newService(repo, new(MailerMock)).Login(context.Background(), "ghost@lab.io", "x", auth.SessionMeta{})
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		assert.NotErrorIs(t, err, apperr.ErrNotFound)
		repo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})
}

func TestService_Authenticate(t *testing.T) {
	maker := customjwt.NewJWTMaker(secret, time.Hour)
	token, _, err := maker.GenerateToken(7, true, "sid-1")
	require.NoError(t, err)

	t.Run("database admin flag is authoritative", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetActiveSession", mock.Anything, "sid-1").Return(&models.UserSession{ID: "sid-1", UserID: 7}, nil).Once()
		repo.On("GetUserByID", mock.Anything, int64(7)).Return(&models.User{ID: 7, IsAdmin: false}, nil).Once()

		user, actor, err := newService(repo, new(MailerMock)).Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, models.Actor{UserID: 7, IsAdmin: false, SessionID: "sid-1"}, actor)
	})

	t.Run("revoked session", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetActiveSession", mock.Anything, "sid-1").Return(nil, apperr.ErrNotFound).Once()

		_, _, err := newService(repo, new(MailerMock)).Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		repo.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("session of another user", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetActiveSession", mock.Anything, "sid-1").Return(&models.UserSession{ID: "sid-1", UserID: 8}, nil).Once()

		_, _, err := newService(repo, new(MailerMock)).Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("tampered token", func(t *testing.T) {
		repo := new(UserRepoMock)
		_, _, err := newService(repo, new(MailerMock)).Authenticate(context.Background(), token+"x")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
		repo.AssertNotCalled(t, "GetActiveSession", mock.Anything, mock.Anything)
	})

	t.Run("storage failure is not unauthenticated", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetActiveSession", mock.Anything, "sid-1").Return(nil, apperr.Transient(errors.New("conn refused"))).Once()

		_, _, err := newService(repo, new(MailerMock)).Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, apperr.ErrTransient)
		assert.NotErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestService_Logout(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("DeleteSession", mock.Anything, "sid-1").Return(nil).Once()
	repo.On("DeleteSession", mock.Anything, "sid-2").Return(apperr.ErrNotFound).Once()
	svc := newService(repo, new(MailerMock))

	assert.NoError(t, svc.Logout(context.Background(), models.Actor{UserID: 1, SessionID: "sid-1"}))
	assert.NoError(t, svc.Logout(context.Background(), models.Actor{UserID: 1, SessionID: "sid-2"}))
	repo.AssertExpectations(t)
}

func TestService_ForgotPassword(t *testing.T) {
	t.Run("unknown email is silent", func(t *testing.T) {
		repo := new(UserRepoMock)
		mailer := new(MailerMock)
		repo.On("GetUserByEmail", mock.Anything, "ghost@lab.io").Return(nil, apperr.ErrNotFound).Once()

		require.NoError(t, newService(repo, mailer).ForgotPassword(context.Background(), "ghost@lab.io"))
		mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	})

	t.Run("token hash stored and raw token mailed", func(t *testing.T) {
		repo := new(UserRepoMock)
		mailer := new(MailerMock)
		var storedHash string
		repo.On("GetUserByEmail", mock.Anything, "ada@lab.io").Return(&models.User{ID: 3, Email: "ada@lab.io"}, nil).Once()
		repo.On("SetResetToken", mock.Anything, int64(3), mock.AnythingOfType("string"), mock.MatchedBy(func(exp time.Time) bool {
			return exp.Sub(time.Now()) > 23*time.Hour && exp.Sub(time.Now()) <= 24*time.Hour
		})).Run(func(args mock.Arguments) {
			storedHash = args.String(2)
		}).Return(nil).Once()
		mailer.On("SendEmail", mock.Anything, mock.MatchedBy(func(msg models.EmailMessage) bool {
			i := strings.Index(msg.Body, "token=")
			if i < 0 {
				return false
			}
			raw := strings.Fields(msg.Body[i+len("token="):])[0]
			return password.HashToken(raw) == storedHash
		})).Return(nil).Once()

		require.NoError(t, newService(repo, mailer).ForgotPassword(context.Background(), "ada@lab.io"))
		repo.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})
}

func TestService_ResetPassword(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("ConsumeResetToken", mock.Anything, password.HashToken("good"), mock.AnythingOfType("string")).Return(int64(3), nil).Once()
	repo.On("ConsumeResetToken", mock.Anything, password.HashToken("used"), mock.AnythingOfType("string")).Return(int64(0), apperr.ErrNotFound).Once()
	svc := newService(repo, new(MailerMock))

	require.NoError(t, svc.ResetPassword(context.Background(), "good", "newpassword1"))

	err := svc.ResetPassword(context.Background(), "used", "newpassword1")
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "token")
}

func TestService_ChangePassword(t *testing.T) {
	user := &models.User{ID: 5, Email: "ada@lab.io", PasswordHash: hashOf(t, "oldpassword")}
	actor := models.Actor{UserID: 5, SessionID: "old-sid"}

	t.Run("revokes sessions and issues a new token", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, int64(5)).Return(user, nil).Once()
		repo.On("ChangePassword", mock.Anything, int64(5), mock.AnythingOfType("string")).Return(nil).Once()
		repo.On("CreateSession", mock.Anything, mock.MatchedBy(func(s models.UserSession) bool {
			return s.UserID == 5 && s.ID != "old-sid"
		})).Return(nil).Once()

		res, err := newService(repo, new(MailerMock)).ChangePassword(context.Background(), actor, "oldpassword", "newpassword", auth.SessionMeta{})
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		repo.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, int64(5)).Return(user, nil).Once()

		_, err := newService(repo, new(MailerMock)).ChangePassword(context.Background(), actor, "bad", "newpassword", auth.SessionMeta{})
		v, ok := apperr.IsValidation(err)
		require.True(t, ok)
		assert.Contains(t, v.Fields, "current_password")
		repo.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_VerifyEmail(t *testing.T) {
	repo := new(UserRepoMock)
	repo.On("ConsumeVerificationToken", mock.Anything, password.HashToken("t1")).Return(int64(1), nil).Once()
	repo.On("ConsumeVerificationToken", mock.Anything, password.HashToken("t1")).Return(int64(0), apperr.ErrNotFound).Once()
	svc := newService(repo, new(MailerMock))

	require.NoError(t, svc.VerifyEmail(context.Background(), "t1"))
	_, ok := apperr.IsValidation(svc.VerifyEmail(context.Background(), "t1"))
	assert.True(t, ok)
}

func TestService_ResendVerification(t *testing.T) {
	t.Run("already verified", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1, EmailVerified: true}, nil).Once()

		err := newService(repo, new(MailerMock)).ResendVerification(context.Background(), models.Actor{UserID: 1})
		_, ok := apperr.IsValidation(err)
		assert.True(t, ok)
	})

	t.Run("new token mailed", func(t *testing.T) {
		repo := new(UserRepoMock)
		mailer := new(MailerMock)
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1, Email: "ada@lab.io"}, nil).Once()
		repo.On("SetVerificationToken", mock.Anything, int64(1), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()
		mailer.On("SendEmail", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, newService(repo, mailer).ResendVerification(context.Background(), models.Actor{UserID: 1}))
		repo.AssertExpectations(t)
		mailer.AssertExpectations(t)
	})
}
