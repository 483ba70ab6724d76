package contributions_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chamapesa/backend/internal/contributions"
	"github.com/chamapesa/backend/internal/notifications"
	"github.com/chamapesa/backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(
		&models.Group{},
		&models.GroupMember{},
		&models.Contribution{},
		&models.Notification{},
	)
	assert.NoError(t, err)
	return db
}

type fixture struct {
	db       *gorm.DB
	svc      contributions.ContributionService
	notifier notifications.NotificationService
	groupID  uuid.UUID
	memberID uuid.UUID
	userID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	notifier, err := notifications.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	svc, err := contributions.NewService(zap.NewNop(), db, notifier)
	assert.NoError(t, err)

	now := time.Now().UTC()
	groupID := uuid.New()
	userID := uuid.New()
	memberID := uuid.New()
	assert.NoError(t, db.Create(&models.Group{
		ID:                    groupID,
		Name:                  "Test Group",
		ContributionAmount:    decimal.NewFromInt(100),
		ContributionFrequency: models.FrequencyMonthly,
		MaxMembers:            10,
		StartDate:             now,
		Status:                models.GroupStatusActive,
		CreatedBy:             userID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}).Error)
	assert.NoError(t, db.Create(&models.GroupMember{
		ID:       memberID,
		GroupID:  groupID,
		UserID:   userID,
		Status:   models.MemberStatusActive,
		JoinedAt: now,
	}).Error)

	return &fixture{db: db, svc: svc, notifier: notifier, groupID: groupID, memberID: memberID, userID: userID}
}

func (f *fixture) schedule(t *testing.T, amount int64, due time.Time) *models.Contribution {
	c, err := f.svc.Create(context.Background(), &models.CreateContributionRequest{
		GroupID:  f.groupID,
		MemberID: f.memberID,
		Amount:   decimal.NewFromInt(amount),
		DueDate:  due,
	})
	assert.NoError(t, err)
	return c
}

func TestCreateContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.schedule(t, 100, time.Now().UTC().Add(24*time.Hour))
	assert.Equal(t, models.ContributionStatusPending, c.Status)

	_, err := f.svc.Create(ctx, &models.CreateContributionRequest{
		GroupID:  uuid.New(),
		MemberID: f.memberID,
		Amount:   decimal.NewFromInt(100),
		DueDate:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, contributions.ErrGroupNotFound)

	_, err = f.svc.Create(ctx, &models.CreateContributionRequest{
		GroupID:  f.groupID,
		MemberID: uuid.New(),
		Amount:   decimal.NewFromInt(100),
		DueDate:  time.Now().UTC(),
	})
	assert.ErrorIs(t, err, contributions.ErrMemberNotFound)
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.schedule(t, 100, time.Now().UTC().Add(24*time.Hour))

	paid, err := f.svc.MarkPaid(ctx, c.ID, "0xabc")
	assert.NoError(t, err)
	assert.Equal(t, models.ContributionStatusCompleted, paid.Status)
	assert.NotNil(t, paid.PaidDate)
	assert.Equal(t, "0xabc", paid.TransactionHash)

	// Paying twice is rejected
	_, err = f.svc.MarkPaid(ctx, c.ID, "")
	assert.ErrorIs(t, err, contributions.ErrAlreadyPaid)

	// The member is told about the payment
	list, total, err := f.notifier.List(ctx, f.userID, false, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.NotificationPaymentReceived, list[0].Type)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.schedule(t, 100, time.Now().UTC().Add(24*time.Hour))

	// Setting paid_date completes the contribution
	paidAt := time.Now().UTC()
	updated, err := f.svc.Update(ctx, c.ID, &models.UpdateContributionRequest{PaidDate: &paidAt})
	assert.NoError(t, err)
	assert.Equal(t, models.ContributionStatusCompleted, updated.Status)

	// Moving an unpaid due date into the past flags it overdue
	c2 := f.schedule(t, 50, time.Now().UTC().Add(24*time.Hour))
	past := time.Now().UTC().Add(-24 * time.Hour)
	updated, err = f.svc.Update(ctx, c2.ID, &models.UpdateContributionRequest{DueDate: &past})
	assert.NoError(t, err)
	assert.Equal(t, models.ContributionStatusOverdue, updated.Status)

	_, err = f.svc.Update(ctx, uuid.New(), &models.UpdateContributionRequest{})
	assert.ErrorIs(t, err, contributions.ErrContributionNotFound)
}

func TestGroupSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := time.Now().UTC().Add(24 * time.Hour)
	paid := f.schedule(t, 100, due)
	f.schedule(t, 100, due)
	f.schedule(t, 100, due)

	_, err := f.svc.MarkPaid(ctx, paid.ID, "")
	assert.NoError(t, err)

	summary, err := f.svc.GroupSummary(ctx, f.groupID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalContributions)
	assert.True(t, summary.TotalExpected.Equal(decimal.NewFromInt(300)))
	assert.True(t, summary.TotalPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, summary.TotalPending.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int64(2), summary.PendingCount)
	assert.InDelta(t, 33.33, summary.CompletionRate, 0.01)
}

func TestFlagOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.schedule(t, 100, now.Add(-48*time.Hour))
	f.schedule(t, 100, now.Add(-24*time.Hour))
	future := f.schedule(t, 100, now.Add(24*time.Hour))

	flagged, err := f.svc.FlagOverdue(ctx, now)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), flagged)

	overdue, err := f.svc.UserOverdue(ctx, f.userID)
	assert.NoError(t, err)
	assert.Len(t, overdue, 2)
	// Oldest due first
	assert.True(t, overdue[0].DueDate.Before(overdue[1].DueDate))

	current, err := f.svc.Get(ctx, future.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContributionStatusPending, current.Status)

	// Members are notified per flagged row
	list, total, err := f.notifier.List(ctx, f.userID, true, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, models.NotificationContributionDue, list[0].Type)

	// A second sweep finds nothing
	flagged, err = f.svc.FlagOverdue(ctx, now)
	assert.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Now().UTC()
	f.schedule(t, 100, now.Add(24*time.Hour))
	paid := f.schedule(t, 200, now.Add(48*time.Hour))
	_, err := f.svc.MarkPaid(ctx, paid.ID, "")
	assert.NoError(t, err)

	list, total, err := f.svc.List(ctx, &models.ContributionListParams{Status: models.ContributionStatusPending})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(100)))

	list, total, err = f.svc.List(ctx, &models.ContributionListParams{GroupID: f.groupID.String(), SortBy: "amount", SortOrder: "desc"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(200)))

	list, total, err = f.svc.List(ctx, &models.ContributionListParams{MemberID: f.memberID.String()})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	_, _, err = f.svc.List(ctx, &models.ContributionListParams{GroupID: "not-a-uuid"})
	assert.Error(t, err)

	userList, total, err := f.svc.UserContributions(ctx, f.userID, &models.ContributionListParams{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, userList, 2)
}

func TestDeleteContribution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.schedule(t, 100, time.Now().UTC().Add(24*time.Hour))
	assert.NoError(t, f.svc.Delete(ctx, c.ID))

	_, err := f.svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, contributions.ErrContributionNotFound)

	err = f.svc.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, contributions.ErrContributionNotFound)
}
