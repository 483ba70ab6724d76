package identities_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/internal/identities"
	"github.com/chamapesa/backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Profile{}))
	return db
}

func newTestService(t *testing.T) identities.IdentityService {
	db := setupTestDB(t)
	svc, err := identities.NewService(zap.NewNop(), db, nil, "test-secret", time.Minute, time.Hour)
	assert.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := &models.RegisterRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	}
	resp, err := svc.Register(ctx, req)
	assert.NoError(t, err)
	assert.Equal(t, req.Email, resp.Email)
	assert.Equal(t, req.DisplayName, resp.DisplayName)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)

	loginResp, err := svc.Login(ctx, &models.LoginRequest{Email: req.Email, Password: req.Password})
	assert.NoError(t, err)
	assert.Equal(t, resp.UserID, loginResp.UserID)

	claims, err := svc.ValidateToken(ctx, loginResp.AccessToken)
	assert.NoError(t, err)
	assert.Equal(t, resp.UserID.String(), claims.Subject)
	assert.Equal(t, req.Email, claims.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := &models.RegisterRequest{Email: "dup@example.com", Password: "password123"}
	_, err := svc.Register(ctx, req)
	assert.NoError(t, err)

	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, identities.ErrEmailTaken)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{Email: "user@example.com", Password: "password123"})
	assert.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "user@example.com", Password: "wrongpass"})
	assert.ErrorIs(t, err, identities.ErrInvalidCredentials)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, identities.ErrInvalidCredentials)
}

func TestRefreshTokenFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &models.RegisterRequest{Email: "refresh@example.com", Password: "password123"})
	assert.NoError(t, err)

	// A refresh token must not grant API access
	_, err = svc.ValidateToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, identities.ErrInvalidToken)

	// An access token must not be exchangeable
	_, err = svc.Refresh(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, identities.ErrInvalidToken)

	renewed, err := svc.Refresh(ctx, resp.RefreshToken)
	assert.NoError(t, err)
	assert.Equal(t, resp.UserID, renewed.UserID)
	assert.NotEmpty(t, renewed.AccessToken)

	_, err = svc.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, identities.ErrInvalidToken)
}

func TestProfileUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &models.RegisterRequest{
		Email:       "profile@example.com",
		Password:    "password123",
		DisplayName: "Before",
	})
	assert.NoError(t, err)

	profile, err := svc.GetProfile(ctx, resp.UserID)
	assert.NoError(t, err)
	assert.Equal(t, "Before", profile.DisplayName)

	name := "After"
	bio := "Saving for the future"
	updated, err := svc.UpdateProfile(ctx, resp.UserID, &models.UpdateProfileRequest{
		DisplayName: &name,
		Bio:         &bio,
	})
	assert.NoError(t, err)
	assert.Equal(t, "After", updated.DisplayName)
	assert.Equal(t, bio, updated.Bio)

	profiles, total, err := svc.ListProfiles(ctx, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, profiles, 1)
}
