package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/pkg/models"
)

// ErrNotificationNotFound is returned when a notification does not exist
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService defines notification operations.
type NotificationService interface {
	Start() error
	Stop() error
	Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service implements NotificationService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new NotificationService
func NewService(logger *zap.Logger, db *gorm.DB) (NotificationService, error) {
	return &Service{logger: logger, db: db}, nil
}

// Start starts the notifications service
func (s *Service) Start() error {
	s.logger.Info("Notifications service started")
	return nil
}

// Stop stops the notifications service
func (s *Service) Stop() error {
	s.logger.Info("Notifications service stopped")
	return nil
}

// Create stores a notification for a user
func (s *Service) Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error) {
	notification := &models.Notification{
		ID:             uuid.New(),
		UserID:         req.UserID,
		GroupID:        req.GroupID,
		ContributionID: req.ContributionID,
		Type:           req.Type,
		Title:          req.Title,
		Message:        req.Message,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return notification, nil
}

// List returns a page of the user's notifications, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var list []*models.Notification
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, total, nil
}

// MarkRead flags a single notification as read
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.find(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if !notification.IsRead {
		notification.IsRead = true
		if err := s.db.WithContext(ctx).Save(notification).Error; err != nil {
			return nil, fmt.Errorf("failed to save notification: %w", err)
		}
	}
	return notification, nil
}

// MarkAllRead flags every unread notification of the user as read
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Delete removes a notification owned by the user
func (s *Service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	notification, err := s.find(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(notification).Error; err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the user
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (s *Service) find(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}
