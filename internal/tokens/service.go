package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/pkg/models"
)

// Sentinel errors surfaced to the HTTP layer
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrSymbolTaken   = errors.New("token symbol already registered")
)

// TokenService defines Avalanche token quote operations.
type TokenService interface {
	Start() error
	Stop() error
	CreateToken(ctx context.Context, req *models.CreateTokenRequest) (*models.AvalancheToken, error)
	ListTokens(ctx context.Context) ([]*models.AvalancheToken, error)
	GetToken(ctx context.Context, symbol string) (*models.AvalancheToken, error)
	UpdateToken(ctx context.Context, id uuid.UUID, req *models.UpdateTokenRequest) (*models.AvalancheToken, error)
	DeleteToken(ctx context.Context, id uuid.UUID) error
}

// Service implements TokenService
type Service struct {
	logger          *zap.Logger
	db              *gorm.DB
	redis           *redis.Client
	cacheTTL        time.Duration
	refreshInterval time.Duration
	mutex           sync.Mutex
	stopChan        chan struct{}
	isRunning       bool
}

// NewService creates a new TokenService. The redis client is optional; when
// nil, quote caching is disabled.
func NewService(logger *zap.Logger, db *gorm.DB, redisClient *redis.Client, refreshInterval, cacheTTL time.Duration) (TokenService, error) {
	if refreshInterval == 0 {
		refreshInterval = 5 * time.Minute
	}
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		logger:          logger,
		db:              db,
		redis:           redisClient,
		cacheTTL:        cacheTTL,
		refreshInterval: refreshInterval,
		stopChan:        make(chan struct{}),
	}, nil
}

// Start starts the token service and its cache refresher
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.isRunning {
		return fmt.Errorf("token service is already running")
	}
	s.isRunning = true
	go s.refreshLoop()
	s.logger.Info("Token service started")
	return nil
}

// Stop stops the token service
func (s *Service) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.isRunning {
		return fmt.Errorf("token service is not running")
	}
	close(s.stopChan)
	s.isRunning = false
	s.logger.Info("Token service stopped")
	return nil
}

// CreateToken registers a token to track
func (s *Service) CreateToken(ctx context.Context, req *models.CreateTokenRequest) (*models.AvalancheToken, error) {
	symbol := strings.ToUpper(req.Symbol)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AvalancheToken{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check symbol: %w", err)
	}
	if count > 0 {
		return nil, ErrSymbolTaken
	}

	now := time.Now().UTC()
	token := &models.AvalancheToken{
		ID:             uuid.New(),
		Name:           req.Name,
		Symbol:         symbol,
		Price:          req.Price,
		MarketCap:      req.MarketCap,
		Volume24h:      req.Volume24h,
		PriceChange24h: req.PriceChange24h,
		CreatedAt:      now,
		LastUpdated:    &now,
	}
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	s.cacheToken(ctx, token)
	return token, nil
}

// ListTokens returns all tracked tokens ordered by market cap
func (s *Service) ListTokens(ctx context.Context) ([]*models.AvalancheToken, error) {
	var list []*models.AvalancheToken
	if err := s.db.WithContext(ctx).Order("market_cap desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	return list, nil
}

// GetToken returns a token quote by symbol, preferring the cache
func (s *Service) GetToken(ctx context.Context, symbol string) (*models.AvalancheToken, error) {
	symbol = strings.ToUpper(symbol)

	if cached := s.cachedToken(ctx, symbol); cached != nil {
		return cached, nil
	}

	var token models.AvalancheToken
	if err := s.db.WithContext(ctx).Where("symbol = ?", symbol).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	s.cacheToken(ctx, &token)
	return &token, nil
}

// UpdateToken applies a partial quote update
func (s *Service) UpdateToken(ctx context.Context, id uuid.UUID, req *models.UpdateTokenRequest) (*models.AvalancheToken, error) {
	var token models.AvalancheToken
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}

	if req.Price != nil {
		token.Price = *req.Price
	}
	if req.MarketCap != nil {
		token.MarketCap = *req.MarketCap
	}
	if req.Volume24h != nil {
		token.Volume24h = *req.Volume24h
	}
	if req.PriceChange24h != nil {
		token.PriceChange24h = *req.PriceChange24h
	}
	now := time.Now().UTC()
	token.LastUpdated = &now

	if err := s.db.WithContext(ctx).Save(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}
	s.cacheToken(ctx, &token)
	return &token, nil
}

// DeleteToken stops tracking a token
func (s *Service) DeleteToken(ctx context.Context, id uuid.UUID) error {
	var token models.AvalancheToken
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to find token: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&token).Error; err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Del(ctx, cacheKey(token.Symbol)).Err(); err != nil {
			s.logger.Warn("Failed to evict token cache", zap.String("symbol", token.Symbol), zap.Error(err))
		}
	}
	return nil
}

// refreshLoop periodically rewarms the quote cache from the database
func (s *Service) refreshLoop() {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.refreshCache(ctx); err != nil {
				s.logger.Error("Token cache refresh failed", zap.Error(err))
			}
			cancel()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) refreshCache(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	tokens, err := s.ListTokens(ctx)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		s.cacheToken(ctx, token)
	}
	s.logger.Debug("Token cache refreshed", zap.Int("tokens", len(tokens)))
	return nil
}

func (s *Service) cacheToken(ctx context.Context, token *models.AvalancheToken) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(token.Symbol), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("Failed to cache token", zap.String("symbol", token.Symbol), zap.Error(err))
	}
}

func (s *Service) cachedToken(ctx context.Context, symbol string) *models.AvalancheToken {
	if s.redis == nil {
		return nil
	}
	payload, err := s.redis.Get(ctx, cacheKey(symbol)).Bytes()
	if err != nil {
		return nil
	}
	var token models.AvalancheToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil
	}
	return &token
}

func cacheKey(symbol string) string {
	return "tokens:quote:" + strings.ToUpper(symbol)
}
