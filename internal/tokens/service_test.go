package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/internal/tokens"
	"github.com/chamapesa/backend/pkg/models"
)

func newTestService(t *testing.T) tokens.TokenService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.AvalancheToken{}))
	svc, err := tokens.NewService(zap.NewNop(), db, nil, time.Minute, time.Minute)
	assert.NoError(t, err)
	return svc
}

func TestCreateAndGetToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateToken(ctx, &models.CreateTokenRequest{
		Name:   "Avalanche",
		Symbol: "avax",
		Price:  25.50,
	})
	assert.NoError(t, err)
	// Symbols are normalized to upper case
	assert.Equal(t, "AVAX", created.Symbol)

	// Lookup is case insensitive
	token, err := svc.GetToken(ctx, "Avax")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, token.ID)

	_, err = svc.GetToken(ctx, "JOE")
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)

	// Duplicate symbols are rejected regardless of case
	_, err = svc.CreateToken(ctx, &models.CreateTokenRequest{Name: "Avalanche Again", Symbol: "AVAX"})
	assert.ErrorIs(t, err, tokens.ErrSymbolTaken)
}

func TestUpdateToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateToken(ctx, &models.CreateTokenRequest{Name: "Avalanche", Symbol: "AVAX", Price: 25})
	assert.NoError(t, err)

	price := 30.0
	change := -2.5
	updated, err := svc.UpdateToken(ctx, created.ID, &models.UpdateTokenRequest{
		Price:          &price,
		PriceChange24h: &change,
	})
	assert.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, change, updated.PriceChange24h)
	assert.NotNil(t, updated.LastUpdated)

	_, err = svc.UpdateToken(ctx, uuid.New(), &models.UpdateTokenRequest{Price: &price})
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}

func TestListTokensOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateToken(ctx, &models.CreateTokenRequest{Name: "Small Cap", Symbol: "SML", MarketCap: 1_000})
	assert.NoError(t, err)
	_, err = svc.CreateToken(ctx, &models.CreateTokenRequest{Name: "Large Cap", Symbol: "LRG", MarketCap: 1_000_000})
	assert.NoError(t, err)

	list, err := svc.ListTokens(ctx)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "LRG", list[0].Symbol)
	assert.Equal(t, "SML", list[1].Symbol)
}

func TestDeleteToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateToken(ctx, &models.CreateTokenRequest{Name: "Avalanche", Symbol: "AVAX"})
	assert.NoError(t, err)

	assert.NoError(t, svc.DeleteToken(ctx, created.ID))

	_, err = svc.GetToken(ctx, "AVAX")
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)

	err = svc.DeleteToken(ctx, created.ID)
	assert.ErrorIs(t, err, tokens.ErrTokenNotFound)
}

func TestStartStop(t *testing.T) {
	svc := newTestService(t)

	assert.NoError(t, svc.Start())
	assert.Error(t, svc.Start())
	assert.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())
}
