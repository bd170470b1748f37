package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opuscenter/tutor-center-api/internal/models"
	"github.com/opuscenter/tutor-center-api/pkg/config"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type userRepoStub struct {
	user       *models.User
	lastLogins []time.Time
}

func (s *userRepoStub) FindByEmail(context.Context, string) (*models.User, error) {
	if s.user == nil {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *userRepoStub) FindByID(context.Context, string) (*models.User, error) {
	if s.user == nil {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *userRepoStub) UpdateLastLogin(_ context.Context, _ string, ts time.Time) error {
	s.lastLogins = append(s.lastLogins, ts)
	return nil
}

func staffUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "front@center.test",
		PasswordHash: string(hash),
		FullName:     "Front Desk",
		Role:         models.RoleRegistrar,
		Active:       true,
	}
}

func authFixture(repo *userRepoStub) *AuthService {
	cfg := config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}
	return NewAuthService(repo, cfg, nil, nil)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &userRepoStub{user: staffUser(t, "s3cret")}
	svc := authFixture(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "front@center.test", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, models.RoleRegistrar, res.User.Role)
	assert.Len(t, repo.lastLogins, 1)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := authFixture(&userRepoStub{user: staffUser(t, "s3cret")})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "front@center.test", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	svc := authFixture(&userRepoStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@center.test", Password: "s3cret"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := staffUser(t, "s3cret")
	user.Active = false
	svc := authFixture(&userRepoStub{user: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "front@center.test", Password: "s3cret"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := authFixture(&userRepoStub{})

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLoginInvalidPayload(t *testing.T) {
	svc := authFixture(&userRepoStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: ""})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
