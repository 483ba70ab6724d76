package groups_test

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

	"github.com/chamapesa/backend/internal/groups"
	"github.com/chamapesa/backend/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	err = db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupAdmin{},
		&models.Contribution{},
		&models.MemberPunishment{},
		&models.Notification{},
	)
	assert.NoError(t, err)
	return db
}

func createProfile(t *testing.T, db *gorm.DB) uuid.UUID {
	userID := uuid.New()
	now := time.Now().UTC()
	err := db.Create(&models.Profile{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
	assert.NoError(t, err)
	return userID
}

func newGroupRequest(name string, maxMembers int) *models.CreateGroupRequest {
	return &models.CreateGroupRequest{
		Name:               name,
		ContributionAmount: decimal.NewFromInt(100),
		MaxMembers:         maxMembers,
	}
}

func TestCreateGroupEnrollsCreator(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Umoja Savings", 10))
	assert.NoError(t, err)
	assert.Equal(t, models.GroupStatusActive, group.Status)
	assert.Equal(t, models.FrequencyMonthly, group.ContributionFrequency)
	assert.Equal(t, int64(1), group.MemberCount)

	members, err := svc.ListMembers(ctx, group.ID)
	assert.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, creator, members[0].UserID)
	assert.Equal(t, models.MemberStatusActive, members[0].Status)

	isAdmin, err := svc.IsGroupAdmin(ctx, group.ID, creator)
	assert.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestCreateGroupWithoutProfile(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)

	_, err = svc.CreateGroup(context.Background(), uuid.New(), newGroupRequest("Ghost", 5))
	assert.ErrorIs(t, err, groups.ErrProfileNotFound)
}

func TestAddMember(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Open Group", 3))
	assert.NoError(t, err)

	joiner := createProfile(t, db)
	member, err := svc.AddMember(ctx, group.ID, joiner)
	assert.NoError(t, err)
	assert.Equal(t, models.MemberStatusActive, member.Status)

	// Duplicate enrollment is rejected
	_, err = svc.AddMember(ctx, group.ID, joiner)
	assert.ErrorIs(t, err, groups.ErrAlreadyMember)

	// The third seat fills the group
	third := createProfile(t, db)
	_, err = svc.AddMember(ctx, group.ID, third)
	assert.NoError(t, err)

	fourth := createProfile(t, db)
	_, err = svc.AddMember(ctx, group.ID, fourth)
	assert.ErrorIs(t, err, groups.ErrGroupFull)
}

func TestAddMemberApprovalRequired(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	req := newGroupRequest("Gated Group", 10)
	req.ApprovalRequired = true
	group, err := svc.CreateGroup(ctx, creator, req)
	assert.NoError(t, err)

	joiner := createProfile(t, db)
	member, err := svc.AddMember(ctx, group.ID, joiner)
	assert.NoError(t, err)
	assert.Equal(t, models.MemberStatusPending, member.Status)

	// Pending members do not consume capacity counted against max_members
	approved, err := svc.UpdateMember(ctx, group.ID, member.ID, models.MemberStatusActive)
	assert.NoError(t, err)
	assert.Equal(t, models.MemberStatusActive, approved.Status)
	assert.Nil(t, approved.LeftAt)
}

func TestUpdateMemberLeaving(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Leavers", 5))
	assert.NoError(t, err)

	joiner := createProfile(t, db)
	member, err := svc.AddMember(ctx, group.ID, joiner)
	assert.NoError(t, err)

	left, err := svc.UpdateMember(ctx, group.ID, member.ID, models.MemberStatusInactive)
	assert.NoError(t, err)
	assert.NotNil(t, left.LeftAt)

	_, err = svc.UpdateMember(ctx, group.ID, uuid.New(), models.MemberStatusActive)
	assert.ErrorIs(t, err, groups.ErrMemberNotFound)
}

func TestLastAdminCannotBeRemoved(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Admins", 10))
	assert.NoError(t, err)

	admins, err := svc.ListAdmins(ctx, group.ID)
	assert.NoError(t, err)
	assert.Len(t, admins, 1)

	err = svc.RemoveAdmin(ctx, group.ID, admins[0].ID)
	assert.ErrorIs(t, err, groups.ErrLastAdmin)

	second := createProfile(t, db)
	_, err = svc.AddMember(ctx, group.ID, second)
	assert.NoError(t, err)
	added, err := svc.AddAdmin(ctx, group.ID, second, &creator)
	assert.NoError(t, err)

	_, err = svc.AddAdmin(ctx, group.ID, second, &creator)
	assert.ErrorIs(t, err, groups.ErrAlreadyAdmin)

	// With two admins the first one may now step down
	err = svc.RemoveAdmin(ctx, group.ID, admins[0].ID)
	assert.NoError(t, err)

	isAdmin, err := svc.IsGroupAdmin(ctx, group.ID, second)
	assert.NoError(t, err)
	assert.True(t, isAdmin)
	assert.Equal(t, second, added.UserID)
}

func TestListGroups(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	_, err = svc.CreateGroup(ctx, creator, newGroupRequest("Harambee Fund", 10))
	assert.NoError(t, err)
	_, err = svc.CreateGroup(ctx, creator, newGroupRequest("Village Bank", 10))
	assert.NoError(t, err)

	list, total, err := svc.ListGroups(ctx, &models.GroupListParams{})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = svc.ListGroups(ctx, &models.GroupListParams{Search: "harambee"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Harambee Fund", list[0].Name)

	list, _, err = svc.ListGroups(ctx, &models.GroupListParams{SortBy: "name", SortOrder: "asc"})
	assert.NoError(t, err)
	assert.Equal(t, "Harambee Fund", list[0].Name)
	assert.Equal(t, "Village Bank", list[1].Name)
}

func TestListUserGroups(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	alice := createProfile(t, db)
	bob := createProfile(t, db)

	g1, err := svc.CreateGroup(ctx, alice, newGroupRequest("Alice Group", 10))
	assert.NoError(t, err)
	_, err = svc.CreateGroup(ctx, bob, newGroupRequest("Bob Group", 10))
	assert.NoError(t, err)

	mine, err := svc.ListUserGroups(ctx, alice)
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, g1.ID, mine[0].ID)
}

func TestDeleteGroupCascades(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Doomed", 10))
	assert.NoError(t, err)

	err = svc.DeleteGroup(ctx, group.ID)
	assert.NoError(t, err)

	_, err = svc.GetGroup(ctx, group.ID)
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)

	var memberCount int64
	assert.NoError(t, db.Model(&models.GroupMember{}).Where("group_id = ?", group.ID).Count(&memberCount).Error)
	assert.Zero(t, memberCount)

	err = svc.DeleteGroup(ctx, group.ID)
	assert.ErrorIs(t, err, groups.ErrGroupNotFound)
}

func TestPunishMember(t *testing.T) {
	db := setupTestDB(t)
	svc, err := groups.NewService(zap.NewNop(), db)
	assert.NoError(t, err)
	ctx := context.Background()

	creator := createProfile(t, db)
	group, err := svc.CreateGroup(ctx, creator, newGroupRequest("Strict Group", 10))
	assert.NoError(t, err)

	joiner := createProfile(t, db)
	member, err := svc.AddMember(ctx, group.ID, joiner)
	assert.NoError(t, err)

	warning, err := svc.PunishMember(ctx, group.ID, &models.PunishMemberRequest{
		MemberID: member.ID,
		Action:   models.PunishmentActionWarning,
		Reason:   models.PunishmentReasonLatePayment,
	})
	assert.NoError(t, err)
	assert.True(t, warning.IsActive)

	// A ban deactivates the membership
	_, err = svc.PunishMember(ctx, group.ID, &models.PunishMemberRequest{
		MemberID: member.ID,
		Action:   models.PunishmentActionBan,
		Reason:   models.PunishmentReasonRuleViolation,
	})
	assert.NoError(t, err)

	var banned models.GroupMember
	assert.NoError(t, db.Where("id = ?", member.ID).First(&banned).Error)
	assert.Equal(t, models.MemberStatusInactive, banned.Status)

	active, err := svc.ListPunishments(ctx, group.ID, true)
	assert.NoError(t, err)
	assert.Len(t, active, 2)

	resolved, err := svc.ResolvePunishment(ctx, group.ID, warning.ID)
	assert.NoError(t, err)
	assert.False(t, resolved.IsActive)
	assert.NotNil(t, resolved.ResolvedAt)

	active, err = svc.ListPunishments(ctx, group.ID, true)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
}
