package contributions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/internal/notifications"
	"github.com/chamapesa/backend/pkg/metrics"
	"github.com/chamapesa/backend/pkg/models"
)

// Sentinel errors surfaced to the HTTP layer
var (
	ErrContributionNotFound = errors.New("contribution not found")
	ErrGroupNotFound        = errors.New("group not found")
	ErrMemberNotFound       = errors.New("member not found in this group")
	ErrAlreadyPaid          = errors.New("contribution is already paid")
)

// ContributionService defines contribution-ledger operations.
type ContributionService interface {
	Start() error
	Stop() error

	Create(ctx context.Context, req *models.CreateContributionRequest) (*models.Contribution, error)
	List(ctx context.Context, params *models.ContributionListParams) ([]*models.Contribution, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Contribution, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateContributionRequest) (*models.Contribution, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkPaid(ctx context.Context, id uuid.UUID, transactionHash string) (*models.Contribution, error)

	GroupSummary(ctx context.Context, groupID uuid.UUID) (*models.ContributionSummary, error)
	UserContributions(ctx context.Context, userID uuid.UUID, params *models.ContributionListParams) ([]*models.Contribution, int64, error)
	UserOverdue(ctx context.Context, userID uuid.UUID) ([]*models.Contribution, error)

	FlagOverdue(ctx context.Context, now time.Time) (int64, error)
}

// Service implements ContributionService
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	notifier notifications.NotificationService
}

// NewService creates a new ContributionService. The notifier is optional; when
// nil, payment and overdue events are not announced.
func NewService(logger *zap.Logger, db *gorm.DB, notifier notifications.NotificationService) (ContributionService, error) {
	return &Service{logger: logger, db: db, notifier: notifier}, nil
}

// Start starts the contributions service
func (s *Service) Start() error {
	s.logger.Info("Contributions service started")
	return nil
}

// Stop stops the contributions service
func (s *Service) Stop() error {
	s.logger.Info("Contributions service stopped")
	return nil
}

// Create schedules a contribution for a member of a group
func (s *Service) Create(ctx context.Context, req *models.CreateContributionRequest) (*models.Contribution, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", req.GroupID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check group: %w", err)
	}
	if count == 0 {
		return nil, ErrGroupNotFound
	}

	if err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("id = ? AND group_id = ?", req.MemberID, req.GroupID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check member: %w", err)
	}
	if count == 0 {
		return nil, ErrMemberNotFound
	}

	now := time.Now().UTC()
	contribution := &models.Contribution{
		ID:        uuid.New(),
		GroupID:   req.GroupID,
		MemberID:  req.MemberID,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
		Status:    models.ContributionStatusPending,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(contribution).Error; err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}
	return contribution, nil
}

// List returns a filtered, sorted page of contributions
func (s *Service) List(ctx context.Context, params *models.ContributionListParams) ([]*models.Contribution, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Contribution{})

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.GroupID != "" {
		groupID, err := uuid.Parse(params.GroupID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid group_id filter: %w", err)
		}
		query = query.Where("group_id = ?", groupID)
	}
	if params.MemberID != "" {
		memberID, err := uuid.Parse(params.MemberID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid member_id filter: %w", err)
		}
		query = query.Where("member_id = ?", memberID)
	}
	if params.DueDateFrom != nil {
		query = query.Where("due_date >= ?", *params.DueDateFrom)
	}
	if params.DueDateTo != nil {
		query = query.Where("due_date <= ?", *params.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contributions: %w", err)
	}

	sortBy := params.SortBy
	switch sortBy {
	case "amount", "created_at", "status":
	default:
		sortBy = "due_date"
	}
	order := "asc"
	if params.SortOrder == "desc" {
		order = "desc"
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var list []*models.Contribution
	if err := query.Order(sortBy + " " + order).Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list contributions: %w", err)
	}
	return list, total, nil
}

// Get returns a single contribution
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	return s.find(ctx, id)
}

// Update applies a partial update. Setting paid_date completes the
// contribution; moving due_date into the past on an unpaid row marks it
// overdue.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *models.UpdateContributionRequest) (*models.Contribution, error) {
	contribution, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil {
		contribution.Amount = *req.Amount
	}
	if req.DueDate != nil {
		contribution.DueDate = *req.DueDate
	}
	if req.PaidDate != nil {
		contribution.PaidDate = req.PaidDate
	}
	if req.Status != nil {
		contribution.Status = *req.Status
	}
	if req.TransactionHash != nil {
		contribution.TransactionHash = *req.TransactionHash
	}
	if req.Notes != nil {
		contribution.Notes = *req.Notes
	}

	if req.PaidDate != nil {
		contribution.Status = models.ContributionStatusCompleted
	} else if req.DueDate != nil && req.DueDate.Before(time.Now().UTC()) && contribution.PaidDate == nil {
		contribution.Status = models.ContributionStatusOverdue
	}
	contribution.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(contribution).Error; err != nil {
		return nil, fmt.Errorf("failed to save contribution: %w", err)
	}
	return contribution, nil
}

// Delete removes a contribution
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	contribution, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(contribution).Error; err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}
	return nil
}

// MarkPaid settles a contribution and notifies the paying member
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, transactionHash string) (*models.Contribution, error) {
	contribution, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if contribution.Status == models.ContributionStatusCompleted {
		return nil, ErrAlreadyPaid
	}

	now := time.Now().UTC()
	contribution.PaidDate = &now
	contribution.Status = models.ContributionStatusCompleted
	if transactionHash != "" {
		contribution.TransactionHash = transactionHash
	}
	contribution.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(contribution).Error; err != nil {
		return nil, fmt.Errorf("failed to save contribution: %w", err)
	}
	metrics.ContributionsPaid.Inc()

	s.notifyMember(ctx, contribution, models.NotificationPaymentReceived,
		"Payment received",
		fmt.Sprintf("Your contribution of %s was received.", contribution.Amount.String()))

	return contribution, nil
}

// GroupSummary aggregates the contribution ledger of a group
func (s *Service) GroupSummary(ctx context.Context, groupID uuid.UUID) (*models.ContributionSummary, error) {
	var list []*models.Contribution
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}

	summary := &models.ContributionSummary{
		GroupID:       groupID,
		TotalExpected: decimal.Zero,
		TotalPaid:     decimal.Zero,
	}
	for _, c := range list {
		summary.TotalContributions++
		summary.TotalExpected = summary.TotalExpected.Add(c.Amount)
		switch c.Status {
		case models.ContributionStatusCompleted:
			summary.TotalPaid = summary.TotalPaid.Add(c.Amount)
		case models.ContributionStatusPending:
			summary.PendingCount++
		case models.ContributionStatusOverdue:
			summary.OverdueCount++
		}
	}
	summary.TotalPending = summary.TotalExpected.Sub(summary.TotalPaid)
	if summary.TotalExpected.IsPositive() {
		rate, _ := summary.TotalPaid.Div(summary.TotalExpected).Mul(decimal.NewFromInt(100)).Float64()
		summary.CompletionRate = rate
	}
	return summary, nil
}

// UserContributions returns the contributions of every membership held by a user
func (s *Service) UserContributions(ctx context.Context, userID uuid.UUID, params *models.ContributionListParams) ([]*models.Contribution, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Contribution{}).
		Joins("JOIN group_members ON group_members.id = contributions.member_id").
		Where("group_members.user_id = ?", userID)

	if params.Status != "" {
		query = query.Where("contributions.status = ?", params.Status)
	}
	if params.GroupID != "" {
		groupID, err := uuid.Parse(params.GroupID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid group_id filter: %w", err)
		}
		query = query.Where("contributions.group_id = ?", groupID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count contributions: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var list []*models.Contribution
	err := query.Order("contributions.due_date desc").Limit(limit).Offset(offset).Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contributions: %w", err)
	}
	return list, total, nil
}

// UserOverdue returns the user's overdue contributions, oldest due first
func (s *Service) UserOverdue(ctx context.Context, userID uuid.UUID) ([]*models.Contribution, error) {
	var list []*models.Contribution
	err := s.db.WithContext(ctx).Model(&models.Contribution{}).
		Joins("JOIN group_members ON group_members.id = contributions.member_id").
		Where("group_members.user_id = ? AND contributions.status = ?", userID, models.ContributionStatusOverdue).
		Order("contributions.due_date asc").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue contributions: %w", err)
	}
	return list, nil
}

// FlagOverdue transitions pending contributions whose due date has passed to
// overdue and notifies the affected members. Returns the number of rows
// flagged. Driven by a ticker in main.
func (s *Service) FlagOverdue(ctx context.Context, now time.Time) (int64, error) {
	var due []*models.Contribution
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", models.ContributionStatusPending, now).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load due contributions: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	result := s.db.WithContext(ctx).Model(&models.Contribution{}).
		Where("id IN ? AND status = ?", ids, models.ContributionStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ContributionStatusOverdue,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to flag overdue contributions: %w", result.Error)
	}
	metrics.ContributionsOverdue.Add(float64(result.RowsAffected))

	for _, c := range due {
		s.notifyMember(ctx, c, models.NotificationContributionDue,
			"Contribution overdue",
			fmt.Sprintf("Your contribution of %s due on %s is overdue.",
				c.Amount.String(), c.DueDate.Format("2006-01-02")))
	}

	s.logger.Info("Flagged overdue contributions", zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	var contribution models.Contribution
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to find contribution: %w", err)
	}
	return &contribution, nil
}

// notifyMember resolves the membership's user and emits a notification.
// Failures are logged, never propagated: the ledger update already happened.
func (s *Service) notifyMember(ctx context.Context, c *models.Contribution, kind, title, message string) {
	if s.notifier == nil {
		return
	}
	var member models.GroupMember
	if err := s.db.WithContext(ctx).Where("id = ?", c.MemberID).First(&member).Error; err != nil {
		s.logger.Warn("Failed to resolve member for notification",
			zap.String("contribution_id", c.ID.String()), zap.Error(err))
		return
	}
	contributionID := c.ID
	groupID := c.GroupID
	_, err := s.notifier.Create(ctx, &models.CreateNotificationRequest{
		UserID:         member.UserID,
		GroupID:        &groupID,
		ContributionID: &contributionID,
		Type:           kind,
		Title:          title,
		Message:        message,
	})
	if err != nil {
		s.logger.Warn("Failed to create notification",
			zap.String("contribution_id", c.ID.String()), zap.Error(err))
	}
}
