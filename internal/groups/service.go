package groups

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

// Sentinel errors surfaced to the HTTP layer
var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrPunishmentNotFound = errors.New("punishment not found")
	ErrAlreadyMember      = errors.New("user is already a member of this group")
	ErrAlreadyAdmin       = errors.New("user is already an admin of this group")
	ErrGroupFull          = errors.New("group is at maximum capacity")
	ErrLastAdmin          = errors.New("cannot remove the last admin of a group")
)

// GroupService defines savings-group operations.
type GroupService interface {
	Start() error
	Stop() error

	CreateGroup(ctx context.Context, creatorID uuid.UUID, req *models.CreateGroupRequest) (*models.Group, error)
	ListGroups(ctx context.Context, params *models.GroupListParams) ([]*models.Group, int64, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error)
	UpdateGroup(ctx context.Context, groupID uuid.UUID, req *models.UpdateGroupRequest) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error
	ListUserGroups(ctx context.Context, userID uuid.UUID) ([]*models.Group, error)

	AddMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error)
	UpdateMember(ctx context.Context, groupID, memberID uuid.UUID, status string) (*models.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error

	AddAdmin(ctx context.Context, groupID, userID uuid.UUID, assignedBy *uuid.UUID) (*models.GroupAdmin, error)
	ListAdmins(ctx context.Context, groupID uuid.UUID) ([]*models.GroupAdmin, error)
	RemoveAdmin(ctx context.Context, groupID, adminID uuid.UUID) error
	IsGroupAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error)

	PunishMember(ctx context.Context, groupID uuid.UUID, req *models.PunishMemberRequest) (*models.MemberPunishment, error)
	ListPunishments(ctx context.Context, groupID uuid.UUID, activeOnly bool) ([]*models.MemberPunishment, error)
	ResolvePunishment(ctx context.Context, groupID, punishmentID uuid.UUID) (*models.MemberPunishment, error)
}

// Service implements GroupService
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a new GroupService
func NewService(logger *zap.Logger, db *gorm.DB) (GroupService, error) {
	return &Service{logger: logger, db: db}, nil
}

// Start starts the groups service
func (s *Service) Start() error {
	s.logger.Info("Groups service started")
	return nil
}

// Stop stops the groups service
func (s *Service) Stop() error {
	s.logger.Info("Groups service stopped")
	return nil
}

// CreateGroup creates a group and enrolls the creator as active member and admin
func (s *Service) CreateGroup(ctx context.Context, creatorID uuid.UUID, req *models.CreateGroupRequest) (*models.Group, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", creatorID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check creator profile: %w", err)
	}
	if count == 0 {
		return nil, ErrProfileNotFound
	}

	now := time.Now().UTC()
	frequency := req.ContributionFrequency
	if frequency == "" {
		frequency = models.FrequencyMonthly
	}
	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = now
	}

	group := &models.Group{
		ID:                       uuid.New(),
		Name:                     req.Name,
		Description:              req.Description,
		ContributionAmount:       req.ContributionAmount,
		ContributionFrequency:    frequency,
		MaxMembers:               req.MaxMembers,
		StartDate:                startDate,
		EndDate:                  req.EndDate,
		Status:                   models.GroupStatusActive,
		CreatedBy:                creatorID,
		ApprovalRequired:         req.ApprovalRequired,
		EmergencyWithdrawAllowed: req.EmergencyWithdrawAllowed,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		admin := &models.GroupAdmin{
			ID:         uuid.New(),
			GroupID:    group.ID,
			UserID:     creatorID,
			AssignedAt: now,
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create group admin: %w", err)
		}
		member := &models.GroupMember{
			ID:       uuid.New(),
			GroupID:  group.ID,
			UserID:   creatorID,
			Status:   models.MemberStatusActive,
			JoinedAt: now,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to create group member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	group.MemberCount = 1
	return group, nil
}

// ListGroups returns a filtered, sorted page of groups with active member counts
func (s *Service) ListGroups(ctx context.Context, params *models.GroupListParams) ([]*models.Group, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Group{})

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	sortBy := params.SortBy
	switch sortBy {
	case "name", "start_date", "contribution_amount":
	default:
		sortBy = "created_at"
	}
	order := "desc"
	if params.SortOrder == "asc" {
		order = "asc"
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var list []*models.Group
	if err := query.Order(sortBy + " " + order).Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}

	for _, g := range list {
		if err := s.countActiveMembers(ctx, g); err != nil {
			return nil, 0, err
		}
	}
	return list, total, nil
}

// GetGroup returns a group with its members and admins preloaded
func (s *Service) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).
		Preload("Members").
		Preload("Admins").
		Where("id = ?", groupID).
		First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if err := s.countActiveMembers(ctx, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateGroup applies a partial update to a group
func (s *Service) UpdateGroup(ctx context.Context, groupID uuid.UUID, req *models.UpdateGroupRequest) (*models.Group, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = *req.Description
	}
	if req.ContributionAmount != nil {
		group.ContributionAmount = *req.ContributionAmount
	}
	if req.ContributionFrequency != nil {
		group.ContributionFrequency = *req.ContributionFrequency
	}
	if req.MaxMembers != nil {
		group.MaxMembers = *req.MaxMembers
	}
	if req.StartDate != nil {
		group.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		group.EndDate = req.EndDate
	}
	if req.Status != nil {
		group.Status = *req.Status
	}
	group.UpdatedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Save(group).Error; err != nil {
		return nil, fmt.Errorf("failed to save group: %w", err)
	}
	if err := s.countActiveMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes a group and its memberships, admin roles, punishments
// and contributions. Notifications keep their history with the group reference
// cleared.
func (s *Service) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	if _, err := s.findGroup(ctx, groupID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.MemberPunishment{}).Error; err != nil {
			return fmt.Errorf("failed to delete punishments: %w", err)
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Contribution{}).Error; err != nil {
			return fmt.Errorf("failed to delete contributions: %w", err)
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete members: %w", err)
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupAdmin{}).Error; err != nil {
			return fmt.Errorf("failed to delete admins: %w", err)
		}
		if err := tx.Model(&models.Notification{}).Where("group_id = ?", groupID).Update("group_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach notifications: %w", err)
		}
		if err := tx.Where("id = ?", groupID).Delete(&models.Group{}).Error; err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
}

// ListUserGroups returns the groups in which the user is an active member
func (s *Service) ListUserGroups(ctx context.Context, userID uuid.UUID) ([]*models.Group, error) {
	var list []*models.Group
	err := s.db.WithContext(ctx).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.status = ?", userID, models.MemberStatusActive).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}
	for _, g := range list {
		if err := s.countActiveMembers(ctx, g); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// AddMember enrolls a user into a group. Membership starts pending when the
// group requires approval, active otherwise.
func (s *Service) AddMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	group, err := s.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if count == 0 {
		return nil, ErrProfileNotFound
	}

	if err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyMember
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ?", groupID, models.MemberStatusActive).Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}
	if active >= int64(group.MaxMembers) {
		return nil, ErrGroupFull
	}

	status := models.MemberStatusPending
	if !group.ApprovalRequired {
		status = models.MemberStatusActive
	}
	member := &models.GroupMember{
		ID:       uuid.New(),
		GroupID:  groupID,
		UserID:   userID,
		Status:   status,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

// ListMembers returns every membership row of a group
func (s *Service) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	var list []*models.GroupMember
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("joined_at asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return list, nil
}

// UpdateMember transitions a member's status. Leaving (inactive) stamps left_at.
func (s *Service) UpdateMember(ctx context.Context, groupID, memberID uuid.UUID, status string) (*models.GroupMember, error) {
	member, err := s.findMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}

	member.Status = status
	if status == models.MemberStatusInactive {
		now := time.Now().UTC()
		member.LeftAt = &now
	} else {
		member.LeftAt = nil
	}
	if err := s.db.WithContext(ctx).Save(member).Error; err != nil {
		return nil, fmt.Errorf("failed to save member: %w", err)
	}
	return member, nil
}

// RemoveMember deletes a membership row
func (s *Service) RemoveMember(ctx context.Context, groupID, memberID uuid.UUID) error {
	member, err := s.findMember(ctx, groupID, memberID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(member).Error; err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// AddAdmin grants the group admin role to a user
func (s *Service) AddAdmin(ctx context.Context, groupID, userID uuid.UUID, assignedBy *uuid.UUID) (*models.GroupAdmin, error) {
	if _, err := s.findGroup(ctx, groupID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check profile: %w", err)
	}
	if count == 0 {
		return nil, ErrProfileNotFound
	}

	if err := s.db.WithContext(ctx).Model(&models.GroupAdmin{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check admin: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyAdmin
	}

	admin := &models.GroupAdmin{
		ID:         uuid.New(),
		GroupID:    groupID,
		UserID:     userID,
		AssignedBy: assignedBy,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return admin, nil
}

// ListAdmins returns every admin role of a group
func (s *Service) ListAdmins(ctx context.Context, groupID uuid.UUID) ([]*models.GroupAdmin, error) {
	var list []*models.GroupAdmin
	if err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("assigned_at asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return list, nil
}

// RemoveAdmin revokes an admin role; a group always keeps at least one admin
func (s *Service) RemoveAdmin(ctx context.Context, groupID, adminID uuid.UUID) error {
	var admin models.GroupAdmin
	err := s.db.WithContext(ctx).Where("id = ? AND group_id = ?", adminID, groupID).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("failed to find admin: %w", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.GroupAdmin{}).Where("group_id = ?", groupID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count <= 1 {
		return ErrLastAdmin
	}

	if err := s.db.WithContext(ctx).Delete(&admin).Error; err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	return nil
}

// IsGroupAdmin reports whether the user holds the admin role in the group
func (s *Service) IsGroupAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.GroupAdmin{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return count > 0, nil
}

// PunishMember records a sanction against a group member
func (s *Service) PunishMember(ctx context.Context, groupID uuid.UUID, req *models.PunishMemberRequest) (*models.MemberPunishment, error) {
	if _, err := s.findMember(ctx, groupID, req.MemberID); err != nil {
		return nil, err
	}

	punishment := &models.MemberPunishment{
		ID:          uuid.New(),
		GroupID:     groupID,
		MemberID:    req.MemberID,
		Action:      req.Action,
		Reason:      req.Reason,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(punishment).Error; err != nil {
		return nil, fmt.Errorf("failed to create punishment: %w", err)
	}

	// Bans immediately deactivate the membership
	if req.Action == models.PunishmentActionBan {
		if _, err := s.UpdateMember(ctx, groupID, req.MemberID, models.MemberStatusInactive); err != nil {
			s.logger.Warn("Failed to deactivate banned member",
				zap.String("group_id", groupID.String()),
				zap.String("member_id", req.MemberID.String()),
				zap.Error(err))
		}
	}
	return punishment, nil
}

// ListPunishments returns a group's punishments, optionally only active ones
func (s *Service) ListPunishments(ctx context.Context, groupID uuid.UUID, activeOnly bool) ([]*models.MemberPunishment, error) {
	query := s.db.WithContext(ctx).Where("group_id = ?", groupID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var list []*models.MemberPunishment
	if err := query.Order("created_at desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list punishments: %w", err)
	}
	return list, nil
}

// ResolvePunishment marks a punishment as resolved
func (s *Service) ResolvePunishment(ctx context.Context, groupID, punishmentID uuid.UUID) (*models.MemberPunishment, error) {
	var punishment models.MemberPunishment
	err := s.db.WithContext(ctx).Where("id = ? AND group_id = ?", punishmentID, groupID).First(&punishment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPunishmentNotFound
		}
		return nil, fmt.Errorf("failed to find punishment: %w", err)
	}

	now := time.Now().UTC()
	punishment.IsActive = false
	punishment.ResolvedAt = &now
	if err := s.db.WithContext(ctx).Save(&punishment).Error; err != nil {
		return nil, fmt.Errorf("failed to save punishment: %w", err)
	}
	return &punishment, nil
}

func (s *Service) findGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return &group, nil
}

func (s *Service) findMember(ctx context.Context, groupID, memberID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := s.db.WithContext(ctx).Where("id = ? AND group_id = ?", memberID, groupID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &member, nil
}

func (s *Service) countActiveMembers(ctx context.Context, group *models.Group) error {
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ?", group.ID, models.MemberStatusActive).
		Count(&group.MemberCount).Error
	if err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	return nil
}
