package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/sitebuilder/internal/auth/domain"
	"github.com/smallbiznis/sitebuilder/internal/auth/repository"
	"github.com/smallbiznis/sitebuilder/internal/auth/token"
	"github.com/smallbiznis/sitebuilder/internal/config"
	"github.com/smallbiznis/sitebuilder/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) authdomain.Service {
	t.Helper()

	dbConn, err := db.NewTest(&authdomain.User{})
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tokens, err := token.NewJWTService(config.Config{AuthJWTSecret: "test", AuthTokenTTL: time.Hour})
	require.NoError(t, err)

	return New(Params{
		DB:     dbConn,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repository.Provide(),
		Tokens: tokens,
	})
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
		Role:     authdomain.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t)

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "Bob@Example.com",
		Password: "strong-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", user.Email)
	assert.Equal(t, authdomain.RoleClient, user.Role)
	assert.Equal(t, "bob", user.Name)

	result, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "bob@example.com",
		Password: "strong-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)

	claims, err := svc.Authenticate(context.Background(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, authdomain.RoleClient, claims.Role)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "nope", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrWeakPassword)

	_, err = svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "a@example.com", Password: "long-enough", Role: "root"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidRole)

	_, err = svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "A@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestChangePassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "c@example.com", Password: "first-password"})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID.String(), "second-password"))

	_, err = svc.Login(ctx, authdomain.LoginRequest{Email: "c@example.com", Password: "first-password"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, authdomain.LoginRequest{Email: "c@example.com", Password: "second-password"})
	assert.NoError(t, err)
}
