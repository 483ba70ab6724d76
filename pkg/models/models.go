package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Group status values
const (
	GroupStatusActive    = "active"
	GroupStatusInactive  = "inactive"
	GroupStatusCompleted = "completed"
)

// Member status values
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
	MemberStatusPending  = "pending"
)

// Contribution status values
const (
	ContributionStatusPending   = "pending"
	ContributionStatusCompleted = "completed"
	ContributionStatusOverdue   = "overdue"
)

// Notification types
const (
	NotificationContributionDue = "contribution_due"
	NotificationPaymentReceived = "payment_received"
	NotificationGroupUpdate     = "group_update"
	NotificationAdminMessage    = "admin_message"
)

// Punishment actions and reasons
const (
	PunishmentActionBan     = "ban"
	PunishmentActionFine    = "fine"
	PunishmentActionWarning = "warning"

	PunishmentReasonLatePayment   = "late_payment"
	PunishmentReasonMissedPayment = "missed_payment"
	PunishmentReasonRuleViolation = "rule_violation"
)

// Contribution frequencies
const (
	FrequencyWeekly   = "weekly"
	FrequencyBiweekly = "biweekly"
	FrequencyMonthly  = "monthly"
)

// User represents an authenticated account
type User struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Email        string    `json:"email" gorm:"uniqueIndex" validate:"required,email,max=254"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile represents a user's public profile
type Profile struct {
	ID          uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`
	DisplayName string    `json:"display_name" validate:"omitempty,max=100"`
	Bio         string    `json:"bio" gorm:"type:text" validate:"omitempty,max=2000"`
	AvatarURL   string    `json:"avatar_url" validate:"omitempty,url,max=500"`
	PhoneNumber string    `json:"phone_number" validate:"omitempty,max=20"`
	Location    string    `json:"location" validate:"omitempty,max=100"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Group represents a savings group
type Group struct {
	ID                       uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Name                     string          `json:"name" gorm:"index" validate:"required,min=1,max=255"`
	Description              string          `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	ContributionAmount       decimal.Decimal `json:"contribution_amount" gorm:"type:numeric(20,8)"`
	ContributionFrequency    string          `json:"contribution_frequency" gorm:"default:monthly" validate:"required,oneof=weekly biweekly monthly"`
	MaxMembers               int             `json:"max_members" gorm:"default:20" validate:"required,min=3,max=100"`
	StartDate                time.Time       `json:"start_date"`
	EndDate                  *time.Time      `json:"end_date"`
	Status                   string          `json:"status" gorm:"default:active;index" validate:"required,oneof=active inactive completed"`
	CreatedBy                uuid.UUID       `json:"created_by" gorm:"type:uuid;index" validate:"required,uuid"`
	ApprovalRequired         bool            `json:"approval_required"`
	EmergencyWithdrawAllowed bool            `json:"emergency_withdraw_allowed"`
	ContractAddress          string          `json:"contract_address,omitempty"`
	CreationTxHash           string          `json:"creation_tx_hash,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`

	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
	Admins  []GroupAdmin  `json:"admins,omitempty" gorm:"foreignKey:GroupID"`

	// Computed per request, not persisted
	MemberCount int64 `json:"member_count" gorm:"-"`
}

// GroupMember represents a user's membership in a group
type GroupMember struct {
	ID       uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	GroupID  uuid.UUID  `json:"group_id" gorm:"type:uuid;uniqueIndex:idx_group_user" validate:"required,uuid"`
	UserID   uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_group_user" validate:"required,uuid"`
	Status   string     `json:"status" gorm:"default:pending;index" validate:"required,oneof=active inactive pending"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at"`
}

// GroupAdmin represents an admin role within a group
type GroupAdmin struct {
	ID         uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	GroupID    uuid.UUID  `json:"group_id" gorm:"type:uuid;uniqueIndex:idx_group_admin" validate:"required,uuid"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_group_admin" validate:"required,uuid"`
	AssignedBy *uuid.UUID `json:"assigned_by" gorm:"type:uuid" validate:"omitempty,uuid"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// Contribution represents a scheduled payment into a group
type Contribution struct {
	ID              uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	GroupID         uuid.UUID       `json:"group_id" gorm:"type:uuid;index" validate:"required,uuid"`
	MemberID        uuid.UUID       `json:"member_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(20,8)"`
	DueDate         time.Time       `json:"due_date" gorm:"index"`
	PaidDate        *time.Time      `json:"paid_date"`
	Status          string          `json:"status" gorm:"default:pending;index" validate:"required,oneof=pending completed overdue"`
	TransactionHash string          `json:"transaction_hash,omitempty"`
	Notes           string          `json:"notes" gorm:"type:text" validate:"omitempty,max=2000"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MemberPunishment represents a sanction applied to a group member
type MemberPunishment struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	GroupID     uuid.UUID  `json:"group_id" gorm:"type:uuid;index" validate:"required,uuid"`
	MemberID    uuid.UUID  `json:"member_id" gorm:"type:uuid;index" validate:"required,uuid"`
	Action      string     `json:"action" validate:"required,oneof=ban fine warning"`
	Reason      string     `json:"reason" validate:"required,oneof=late_payment missed_payment rule_violation"`
	Description string     `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// Notification represents a message delivered to a user
type Notification struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;index" validate:"required,uuid"`
	GroupID        *uuid.UUID `json:"group_id,omitempty" gorm:"type:uuid;index" validate:"omitempty,uuid"`
	ContributionID *uuid.UUID `json:"contribution_id,omitempty" gorm:"type:uuid" validate:"omitempty,uuid"`
	Type           string     `json:"type" validate:"required,oneof=contribution_due payment_received group_update admin_message"`
	Title          string     `json:"title" validate:"required,max=255"`
	Message        string     `json:"message" gorm:"type:text" validate:"required,max=2000"`
	IsRead         bool       `json:"is_read" gorm:"default:false;index"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AvalancheToken represents a tracked AVAX-ecosystem token quote
type AvalancheToken struct {
	ID             uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	Name           string     `json:"name" validate:"required,max=100"`
	Symbol         string     `json:"symbol" gorm:"uniqueIndex" validate:"required,max=20"`
	Price          float64    `json:"price" validate:"min=0"`
	MarketCap      float64    `json:"market_cap" validate:"min=0"`
	Volume24h      float64    `json:"volume_24h" validate:"min=0"`
	PriceChange24h float64    `json:"price_change_24h"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdated    *time.Time `json:"last_updated"`
}
