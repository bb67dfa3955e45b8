package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository/mocks"
	"snsu-notification/internal/service"
)

type userFixture struct {
	svc    *service.UserService
	users  *mocks.UserRepository
	msgs   *mocks.MessageRepository
	media  *mocks.MediaRepository
	purger *recordingPurger
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:  new(mocks.UserRepository),
		msgs:   new(mocks.MessageRepository),
		media:  new(mocks.MediaRepository),
		purger: &recordingPurger{},
	}
	f.svc = service.NewUserService(f.users, f.msgs, service.NewMediaService(f.media, 0), f.purger)
	return f
}

func strPtr(s string) *string { return &s }

func TestUserService_List_GroupsByRole(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.users.On("List", ctx).Return([]domain.User{
		{ID: 1, Username: "admin", Role: domain.RoleAdmin},
		{ID: 2, Username: "admin2", Role: domain.RoleAdmin},
		{ID: 3, Username: "maria", Role: domain.RoleTeacher},
		{ID: 4, Username: "jose", Role: domain.RoleStudent},
	}, nil).Once()

	got, err := f.svc.List(ctx, 1)

	require.NoError(t, err)
	require.Len(t, got.Admins, 1)
	assert.Equal(t, uint(2), got.Admins[0].ID, "caller is excluded")
	assert.Len(t, got.Teachers, 1)
	assert.Len(t, got.Students, 1)
}

func TestUserService_Create_TeacherKeepsDepartmentOnly(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	in := service.UserInput{Username: "maria", Email: "maria@snsu.edu.ph", Phone: "+639171234567",
		Password: "secret1", Role: domain.RoleTeacher, Department: "CCIS", Course: "BSIT", YearLevel: 3}

	f.users.On("ExistsByUsernameOrEmail", ctx, "maria", "maria@snsu.edu.ph", uint(0)).Return(false, nil).Once()
	f.users.On("Save", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Department == "CCIS" && u.Course == "" && u.YearLevel == 0
	})).Return(nil).Once()

	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestUserService_Update_UsernameTaken(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.users.On("FindByID", ctx, uint(4)).Return(&domain.User{ID: 4, Username: "jose", Email: "jose@snsu.edu.ph"}, nil).Once()
	f.users.On("ExistsByUsernameOrEmail", ctx, "maria", "", uint(4)).Return(true, nil).Once()

	_, err := f.svc.Update(ctx, 4, service.UserUpdate{Username: strPtr("maria")})

	assert.ErrorIs(t, err, service.ErrRegistrationFailed)
	f.users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUserService_Delete_DefaultAdminProtected(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.users.On("FindByID", ctx, uint(1)).Return(&domain.User{ID: 1, Username: domain.DefaultAdminUsername}, nil).Once()

	err := f.svc.Delete(ctx, 1)

	assert.ErrorIs(t, err, service.ErrDefaultAdmin)
	f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.msgs.AssertNotCalled(t, "DeleteByUser", mock.Anything, mock.Anything)
}

func TestUserService_Delete_RemovesMessagesAndPicture(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.users.On("FindByID", ctx, uint(4)).Return(&domain.User{ID: 4, Username: "jose", ProfilePicture: "media/12"}, nil).Once()
	f.msgs.On("DeleteByUser", ctx, uint(4)).Return(int64(3), nil).Once()
	f.users.On("Delete", ctx, uint(4)).Return(nil).Once()

	require.NoError(t, f.svc.Delete(ctx, 4))

	f.msgs.AssertExpectations(t)
	f.users.AssertExpectations(t)
	assert.Equal(t, [][]uint{{12}}, f.purger.ids)
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	f.users.On("FindByID", ctx, uint(4)).Return(&domain.User{ID: 4, Password: string(hash)}, nil)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, 4, "wrong", "newpass"), service.ErrWrongPassword)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, 4, "", "newpass"), service.ErrMissingPasswordFields)

	f.users.On("Save", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("newpass")) == nil
	})).Return(nil).Once()
	require.NoError(t, f.svc.ChangePassword(ctx, 4, "oldpass", "newpass"))
	f.users.AssertExpectations(t)
}

func TestUserService_UploadProfilePicture_ReplacesOld(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.users.On("FindByID", ctx, uint(4)).Return(&domain.User{ID: 4, ProfilePicture: "media/7"}, nil).Once()
	f.media.On("Create", ctx, mock.AnythingOfType("*domain.Media")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Media).ID = 8
	}).Return(nil).Once()
	f.users.On("Save", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.ProfilePicture == "media/8" })).Return(nil).Once()

	path, err := f.svc.UploadProfilePicture(ctx, 4, pngUpload(t, 500, 500))

	require.NoError(t, err)
	assert.Equal(t, "media/8", path)
	assert.Equal(t, [][]uint{{7}}, f.purger.ids)
}
