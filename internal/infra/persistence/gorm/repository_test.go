package gormpersistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Media{}, &domain.Notification{}, &domain.Message{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, repo *GormUserRepository, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Username: name, Email: name + "@snsu.edu.ph", Phone: "+639123456789", Password: "hash", Role: role}
	require.NoError(t, repo.Save(context.Background(), u))
	return u
}

func TestGormUserRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))

	u := seedUser(t, repo, "maria", domain.RoleTeacher)
	assert.NotZero(t, u.ID)

	got, err := repo.FindByUsername(ctx, "maria")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleTeacher, got.Role)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	dup := &domain.User{Username: "maria", Email: "other@snsu.edu.ph", Phone: "+639123456789", Password: "x", Role: domain.RoleStudent}
	assert.ErrorIs(t, repo.Save(ctx, dup), repository.ErrDuplicateEntry)
}

func TestGormUserRepository_ExistsByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	u := seedUser(t, repo, "jose", domain.RoleStudent)

	exists, err := repo.ExistsByUsernameOrEmail(ctx, "", "jose@snsu.edu.ph", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "jose", "jose@snsu.edu.ph", u.ID)
	require.NoError(t, err)
	assert.False(t, exists, "own record is excluded")

	exists, err = repo.ExistsByUsernameOrEmail(ctx, "", "", 0)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormUserRepository_Presence(t *testing.T) {
	ctx := context.Background()
	repo := NewGormUserRepository(newTestDB(t))
	u := seedUser(t, repo, "ana", domain.RoleStudent)
	seedUser(t, repo, "ben", domain.RoleStudent)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetPresence(ctx, u.ID, true, now))

	online, err := repo.ListOnline(ctx)
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, u.ID, online[0].ID)
	assert.True(t, online[0].LastActive.Equal(now))

	later := now.Add(time.Minute)
	require.NoError(t, repo.TouchLastActive(ctx, u.ID, later))
	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.OnlineStatus, "touching last active keeps the flag")
	assert.True(t, got.LastActive.Equal(later))

	assert.ErrorIs(t, repo.SetPresence(ctx, 999, false, now), repository.ErrUserNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 999), repository.ErrUserNotFound)
}

func TestGormMessageRepository_Visibility(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	repo := NewGormMessageRepository(db)

	admin := seedUser(t, users, "admin", domain.RoleAdmin)
	alice := seedUser(t, users, "alice", domain.RoleStudent)
	bob := seedUser(t, users, "bob", domain.RoleStudent)
	carl := seedUser(t, users, "carl", domain.RoleStudent)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	broadcast := &domain.Message{Content: "assembly at 9", SenderID: admin.ID, IsBroadcast: true, Timestamp: base}
	dm := &domain.Message{Content: "hi bob", SenderID: alice.ID, RecipientID: &bob.ID, Timestamp: base.Add(time.Minute)}
	other := &domain.Message{Content: "hi carl", SenderID: admin.ID, RecipientID: &carl.ID, Timestamp: base.Add(2 * time.Minute)}
	for _, m := range []*domain.Message{broadcast, dm, other} {
		require.NoError(t, repo.Create(ctx, m))
	}

	got, err := repo.FindByIDWithParticipants(ctx, dm.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Sender)
	require.NotNil(t, got.Recipient)
	assert.Equal(t, "alice", got.Sender.Username)
	assert.Equal(t, "bob", got.Recipient.Username)

	visible, err := repo.ListVisibleTo(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, broadcast.ID, visible[0].ID)
	assert.Equal(t, dm.ID, visible[1].ID)

	require.NoError(t, repo.UpdateDeletedFor(ctx, dm.ID, []uint{bob.ID}))
	visible, err = repo.ListVisibleTo(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, broadcast.ID, visible[0].ID)

	visible, err = repo.ListVisibleTo(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 2, "soft delete only hides the message for bob")

	between, err := repo.ListBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, []uint{bob.ID}, between[0].DeletedFor)

	direct, err := repo.ListDirectFor(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, direct, 1, "broadcasts are not direct messages")
	assert.Equal(t, other.ID, direct[0].ID)
}

func TestGormMessageRepository_ReadAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewGormUserRepository(db)
	repo := NewGormMessageRepository(db)

	alice := seedUser(t, users, "alice", domain.RoleStudent)
	bob := seedUser(t, users, "bob", domain.RoleTeacher)
	now := time.Now().UTC()
	m1 := &domain.Message{Content: "one", SenderID: alice.ID, RecipientID: &bob.ID, Timestamp: now}
	m2 := &domain.Message{Content: "two", SenderID: bob.ID, RecipientID: &alice.ID, Timestamp: now}
	require.NoError(t, repo.Create(ctx, m1))
	require.NoError(t, repo.Create(ctx, m2))

	require.NoError(t, repo.MarkRead(ctx, m1.ID))
	got, err := repo.FindByIDWithParticipants(ctx, m1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	require.NoError(t, repo.Delete(ctx, m1.ID))
	_, err = repo.FindByIDWithParticipants(ctx, m1.ID)
	assert.ErrorIs(t, err, repository.ErrMessageNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, m1.ID), repository.ErrMessageNotFound)

	n, err := repo.DeleteByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGormNotificationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormNotificationRepository(db)
	media := NewGormMediaRepository(db)

	img := &domain.Media{Data: "aGVsbG8=", MimeType: "image/jpeg", Filename: "poster.jpg"}
	require.NoError(t, media.Create(ctx, img))

	march := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	n1 := &domain.Notification{Title: "Foundation Day", Content: "program", Type: domain.NotificationEvent,
		EventDate: &march, ImagePath: domain.MediaPath(img.ID), Timestamp: march.Add(-48 * time.Hour)}
	n2 := &domain.Notification{Title: "Enrollment", Content: "opens", Type: domain.NotificationInfo,
		EventDate: &april, Timestamp: march.Add(-24 * time.Hour)}
	n3 := &domain.Notification{Title: "Typhoon", Content: "no classes", Type: domain.NotificationEmergency, Timestamp: march}
	for _, n := range []*domain.Notification{n1, n2, n3} {
		require.NoError(t, repo.Save(ctx, n))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, n3.ID, list[0].ID, "newest first")

	exists, err := repo.ExistsByTitle(ctx, "Enrollment", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByTitle(ctx, "Enrollment", n2.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := &domain.Notification{Title: "Enrollment", Content: "again", Type: domain.NotificationInfo, Timestamp: march}
	assert.ErrorIs(t, repo.Save(ctx, dup), repository.ErrDuplicateEntry)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inMarch, err := repo.ListWithEventBetween(ctx, from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, inMarch, 1)
	assert.Equal(t, n1.ID, inMarch[0].ID)

	require.NoError(t, media.DeleteByIDs(ctx, n1.MediaIDs()))
	_, err = media.FindByID(ctx, img.ID)
	assert.ErrorIs(t, err, repository.ErrMediaNotFound)
	assert.NoError(t, media.DeleteByIDs(ctx, nil))

	require.NoError(t, repo.Delete(ctx, n1.ID))
	assert.ErrorIs(t, repo.Delete(ctx, n1.ID), repository.ErrNotificationNotFound)
}
