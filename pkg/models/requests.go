package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterRequest is the payload for user registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=100"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

// LoginRequest is the payload for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
}

// UpdateProfileRequest is the payload for profile updates; nil fields are left unchanged
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
	Bio         *string `json:"bio" binding:"omitempty,max=2000"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,url,max=500"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	Location    *string `json:"location" binding:"omitempty,max=100"`
}

// CreateGroupRequest is the payload for group creation
type CreateGroupRequest struct {
	Name                     string          `json:"name" binding:"required,min=1,max=255"`
	Description              string          `json:"description" binding:"omitempty,max=2000"`
	ContributionAmount       decimal.Decimal `json:"contribution_amount" binding:"required,gt=0"`
	ContributionFrequency    string          `json:"contribution_frequency" binding:"omitempty,oneof=weekly biweekly monthly"`
	MaxMembers               int             `json:"max_members" binding:"required,min=3,max=100"`
	StartDate                time.Time       `json:"start_date"`
	EndDate                  *time.Time      `json:"end_date"`
	ApprovalRequired         bool            `json:"approval_required"`
	EmergencyWithdrawAllowed bool            `json:"emergency_withdraw_allowed"`
}

// UpdateGroupRequest carries partial group updates; nil fields are left unchanged
type UpdateGroupRequest struct {
	Name                  *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Description           *string          `json:"description" binding:"omitempty,max=2000"`
	ContributionAmount    *decimal.Decimal `json:"contribution_amount" binding:"omitempty,gt=0"`
	ContributionFrequency *string          `json:"contribution_frequency" binding:"omitempty,oneof=weekly biweekly monthly"`
	MaxMembers            *int             `json:"max_members" binding:"omitempty,min=3,max=100"`
	StartDate             *time.Time       `json:"start_date"`
	EndDate               *time.Time       `json:"end_date"`
	Status                *string          `json:"status" binding:"omitempty,oneof=active inactive completed"`
}

// PageParams are the shared pagination query parameters
type PageParams struct {
	Offset int `form:"offset" binding:"omitempty,min=0"`
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// NotificationListParams are the query parameters for listing notifications
type NotificationListParams struct {
	PageParams
	Unread bool `form:"unread"`
}

// GroupListParams are the query parameters for listing groups
type GroupListParams struct {
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=active inactive completed"`
	Search    string `form:"search" binding:"omitempty,max=255"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at name start_date contribution_amount"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// AddMemberRequest is the payload for adding a group member
type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// UpdateMemberRequest carries a member status transition
type UpdateMemberRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive pending"`
}

// AddAdminRequest is the payload for granting a group admin role
type AddAdminRequest struct {
	UserID     uuid.UUID  `json:"user_id" binding:"required"`
	AssignedBy *uuid.UUID `json:"assigned_by"`
}

// PunishMemberRequest is the payload for sanctioning a member
type PunishMemberRequest struct {
	MemberID    uuid.UUID `json:"member_id" binding:"required"`
	Action      string    `json:"action" binding:"required,oneof=ban fine warning"`
	Reason      string    `json:"reason" binding:"required,oneof=late_payment missed_payment rule_violation"`
	Description string    `json:"description" binding:"omitempty,max=2000"`
}

// CreateContributionRequest is the payload for scheduling a contribution
type CreateContributionRequest struct {
	GroupID  uuid.UUID       `json:"group_id" binding:"required"`
	MemberID uuid.UUID       `json:"member_id" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required,gt=0"`
	DueDate  time.Time       `json:"due_date" binding:"required"`
	Notes    string          `json:"notes" binding:"omitempty,max=2000"`
}

// UpdateContributionRequest carries partial contribution updates
type UpdateContributionRequest struct {
	Amount          *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	DueDate         *time.Time       `json:"due_date"`
	PaidDate        *time.Time       `json:"paid_date"`
	Status          *string          `json:"status" binding:"omitempty,oneof=pending completed overdue"`
	TransactionHash *string          `json:"transaction_hash" binding:"omitempty,max=66"`
	Notes           *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ContributionListParams are the query parameters for listing contributions
type ContributionListParams struct {
	Offset      int        `form:"offset" binding:"omitempty,min=0"`
	Limit       int        `form:"limit" binding:"omitempty,min=1,max=100"`
	Status      string     `form:"status" binding:"omitempty,oneof=pending completed overdue"`
	GroupID     string     `form:"group_id" binding:"omitempty,uuid"`
	MemberID    string     `form:"member_id" binding:"omitempty,uuid"`
	DueDateFrom *time.Time `form:"due_date_from" time_format:"2006-01-02T15:04:05Z07:00"`
	DueDateTo   *time.Time `form:"due_date_to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy      string     `form:"sort_by" binding:"omitempty,oneof=due_date amount created_at status"`
	SortOrder   string     `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// MarkPaidRequest is the optional payload when settling a contribution
type MarkPaidRequest struct {
	TransactionHash string `json:"transaction_hash" binding:"omitempty,max=66"`
}

// ContributionSummary aggregates a group's contribution ledger
type ContributionSummary struct {
	GroupID            uuid.UUID       `json:"group_id"`
	TotalContributions int64           `json:"total_contributions"`
	TotalExpected      decimal.Decimal `json:"total_expected"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	TotalPending       decimal.Decimal `json:"total_pending"`
	PendingCount       int64           `json:"pending_count"`
	OverdueCount       int64           `json:"overdue_count"`
	CompletionRate     float64         `json:"completion_rate"`
}

// CreateNotificationRequest is the payload for creating a notification
type CreateNotificationRequest struct {
	UserID         uuid.UUID  `json:"user_id" binding:"required"`
	GroupID        *uuid.UUID `json:"group_id"`
	ContributionID *uuid.UUID `json:"contribution_id"`
	Type           string     `json:"type" binding:"required,oneof=contribution_due payment_received group_update admin_message"`
	Title          string     `json:"title" binding:"required,max=255"`
	Message        string     `json:"message" binding:"required,max=2000"`
}

// CreateTokenRequest is the payload for registering a tracked token
type CreateTokenRequest struct {
	Name           string  `json:"name" binding:"required,max=100"`
	Symbol         string  `json:"symbol" binding:"required,max=20"`
	Price          float64 `json:"price" binding:"omitempty,min=0"`
	MarketCap      float64 `json:"market_cap" binding:"omitempty,min=0"`
	Volume24h      float64 `json:"volume_24h" binding:"omitempty,min=0"`
	PriceChange24h float64 `json:"price_change_24h"`
}

// UpdateTokenRequest carries partial token quote updates
type UpdateTokenRequest struct {
	Price          *float64 `json:"price" binding:"omitempty,min=0"`
	MarketCap      *float64 `json:"market_cap" binding:"omitempty,min=0"`
	Volume24h      *float64 `json:"volume_24h" binding:"omitempty,min=0"`
	PriceChange24h *float64 `json:"price_change_24h"`
}

// ChainStatus describes the Avalanche C-Chain connection
type ChainStatus struct {
	Connected      bool   `json:"connected"`
	ChainID        string `json:"chain_id,omitempty"`
	LatestBlock    uint64 `json:"latest_block,omitempty"`
	FactoryAddress string `json:"factory_address,omitempty"`
	GroupCounter   uint64 `json:"group_counter,omitempty"`
}

// ChainSyncResult reports a factory sync pass
type ChainSyncResult struct {
	TotalOnChainGroups int      `json:"total_blockchain_groups"`
	SyncedCount        int      `json:"synced_count"`
	Errors             []string `json:"errors"`
}
