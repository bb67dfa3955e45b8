package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// UserInput carries the fields of a new account.
type UserInput struct {
	Username   string
	Email      string
	Phone      string
	Password   string
	Role       domain.Role
	Department string
	Course     string
	YearLevel  int
}

func (in *UserInput) validate(requirePassword bool) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if len(in.Username) < 3 {
		return invalid("username must be at least 3 characters")
	}
	if in.Email == "" {
		return invalid("invalid email address")
	}
	if !domain.ValidPhone(in.Phone) {
		return ErrInvalidPhone
	}
	if requirePassword && len(in.Password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	if !in.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

// newUser keeps department for teachers and course/year for students only.
func (in *UserInput) newUser(passwordHash string, now time.Time) *domain.User {
	u := &domain.User{
		Username:   in.Username,
		Email:      in.Email,
		Phone:      in.Phone,
		Password:   passwordHash,
		Role:       in.Role,
		LastActive: now,
	}
	switch in.Role {
	case domain.RoleTeacher:
		u.Department = in.Department
	case domain.RoleStudent:
		u.Course = in.Course
		u.YearLevel = in.YearLevel
	}
	return u
}

// UserUpdate holds optional changes; nil fields are left untouched.
type UserUpdate struct {
	Username   *string
	Email      *string
	Phone      *string
	Role       *domain.Role
	Department *string
	Course     *string
	YearLevel  *int
	Bio        *string
}

// GroupedUsers is the directory returned to the management screens.
type GroupedUsers struct {
	Teachers []domain.User `json:"teachers"`
	Students []domain.User `json:"students"`
	Admins   []domain.User `json:"admins"`
}

// UserService manages accounts and profiles.
type UserService struct {
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	media       *MediaService
	purger      MediaPurger
}

func NewUserService(userRepo repository.UserRepository, messageRepo repository.MessageRepository, media *MediaService, purger MediaPurger) *UserService {
	if userRepo == nil || messageRepo == nil || media == nil || purger == nil {
		panic("UserService dependencies cannot be nil")
	}
	return &UserService{userRepo: userRepo, messageRepo: messageRepo, media: media, purger: purger}
}

// List groups every user by role. The caller is left out of the admin list.
func (s *UserService) List(ctx context.Context, callerID uint) (*GroupedUsers, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		return nil, ErrInternalServer
	}
	out := &GroupedUsers{Teachers: []domain.User{}, Students: []domain.User{}, Admins: []domain.User{}}
	for _, u := range users {
		switch u.Role {
		case domain.RoleTeacher:
			out.Teachers = append(out.Teachers, u)
		case domain.RoleStudent:
			out.Students = append(out.Students, u)
		case domain.RoleAdmin:
			if u.ID != callerID {
				out.Admins = append(out.Admins, u)
			}
		}
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapFindError(err, id)
	}
	return u, nil
}

// Create is the admin path for adding an account.
func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": in.Username, "role": in.Role})
	if err := in.validate(true); err != nil {
		return nil, err
	}
	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email, 0)
	if err != nil {
		logCtx.WithError(err).Error("Failed to check existing users")
		return nil, ErrInternalServer
	}
	if exists {
		return nil, ErrRegistrationFailed
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password")
		return nil, ErrInternalServer
	}
	u := in.newUser(hash, time.Now())
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	logCtx.WithField("user_id", u.ID).Info("User created")
	return u, nil
}

// Update applies an admin edit.
func (s *UserService) Update(ctx context.Context, id uint, upd UserUpdate) (*domain.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapFindError(err, id)
	}
	if upd.Role != nil && *upd.Role != "" {
		if !upd.Role.Valid() {
			return nil, ErrInvalidRole
		}
		u.Role = *upd.Role
	}
	if err := s.apply(ctx, u, upd); err != nil {
		return nil, err
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	logrus.WithField("user_id", u.ID).Info("User updated")
	return u, nil
}

// Delete removes the account, its messages and its profile picture. The
// default admin account cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	logCtx := logrus.WithField("user_id", id)
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return s.mapFindError(err, id)
	}
	if u.Username == domain.DefaultAdminUsername {
		return ErrDefaultAdmin
	}

	if n, err := s.messageRepo.DeleteByUser(ctx, id); err != nil {
		logCtx.WithError(err).Warn("Could not delete user messages")
	} else {
		logCtx.WithField("messages", n).Debug("Deleted user messages")
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to delete user")
		return ErrInternalServer
	}

	if mediaID, ok := domain.ParseMediaPath(u.ProfilePicture); ok {
		if err := s.purger.PurgeMedia(ctx, []uint{mediaID}); err != nil {
			logCtx.WithError(err).Warn("Failed to schedule profile picture purge")
		}
	}
	logCtx.Info("User deleted")
	return nil
}

// UpdateProfile is the self-service edit. Role cannot be changed here.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, upd UserUpdate, picture *Upload) (*domain.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, s.mapFindError(err, userID)
	}
	if err := s.apply(ctx, u, upd); err != nil {
		return nil, err
	}
	var oldPicture string
	if picture != nil {
		path, err := s.media.StoreProfilePicture(ctx, u.ID, picture)
		if err != nil {
			return nil, err
		}
		oldPicture, u.ProfilePicture = u.ProfilePicture, path
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	s.purgeOld(ctx, u.ID, oldPicture)
	logrus.WithField("user_id", u.ID).Info("Profile updated")
	return u, nil
}

// ChangePassword requires the current password.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if current == "" || next == "" {
		return ErrMissingPasswordFields
	}
	if len(next) < 6 {
		return invalid("password must be at least 6 characters")
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return s.mapFindError(err, userID)
	}
	if !checkPassword(current, u.Password) {
		return ErrWrongPassword
	}
	hash, err := hashPassword(next)
	if err != nil {
		logrus.WithField("user_id", userID).WithError(err).Error("Failed to hash password")
		return ErrInternalServer
	}
	u.Password = hash
	if err := s.save(ctx, u); err != nil {
		return err
	}
	logrus.WithField("user_id", userID).Info("Password changed")
	return nil
}

// UploadProfilePicture replaces the profile picture and returns the new path.
func (s *UserService) UploadProfilePicture(ctx context.Context, userID uint, picture *Upload) (string, error) {
	if picture == nil {
		return "", ErrNoFile
	}
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", s.mapFindError(err, userID)
	}
	path, err := s.media.StoreProfilePicture(ctx, u.ID, picture)
	if err != nil {
		return "", err
	}
	oldPicture := u.ProfilePicture
	u.ProfilePicture = path
	if err := s.save(ctx, u); err != nil {
		return "", err
	}
	s.purgeOld(ctx, u.ID, oldPicture)
	return path, nil
}

// apply copies the optional fields onto u, checking username and email
// uniqueness against other accounts.
func (s *UserService) apply(ctx context.Context, u *domain.User, upd UserUpdate) error {
	var username, email string
	if upd.Username != nil {
		if v := strings.TrimSpace(*upd.Username); v != "" && v != u.Username {
			if len(v) < 3 {
				return invalid("username must be at least 3 characters")
			}
			username = v
		}
	}
	if upd.Email != nil {
		if v := strings.TrimSpace(*upd.Email); v != "" && v != u.Email {
			email = v
		}
	}
	if username != "" || email != "" {
		exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, username, email, u.ID)
		if err != nil {
			logrus.WithField("user_id", u.ID).WithError(err).Error("Failed to check username/email uniqueness")
			return ErrInternalServer
		}
		if exists {
			return ErrRegistrationFailed
		}
		if username != "" {
			u.Username = username
		}
		if email != "" {
			u.Email = email
		}
	}
	if upd.Phone != nil && *upd.Phone != "" {
		if !domain.ValidPhone(*upd.Phone) {
			return ErrInvalidPhone
		}
		u.Phone = *upd.Phone
	}
	if upd.Department != nil && *upd.Department != "" {
		u.Department = *upd.Department
	}
	if upd.Course != nil && *upd.Course != "" {
		u.Course = *upd.Course
	}
	if upd.YearLevel != nil && *upd.YearLevel != 0 {
		u.YearLevel = *upd.YearLevel
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	return nil
}

func (s *UserService) save(ctx context.Context, u *domain.User) error {
	if err := s.userRepo.Save(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return ErrRegistrationFailed
		}
		logrus.WithField("user_id", u.ID).WithError(err).Error("Failed to save user")
		return ErrInternalServer
	}
	return nil
}

func (s *UserService) purgeOld(ctx context.Context, userID uint, oldPath string) {
	id, ok := domain.ParseMediaPath(oldPath)
	if !ok {
		return
	}
	if err := s.purger.PurgeMedia(ctx, []uint{id}); err != nil {
		logrus.WithField("user_id", userID).WithError(err).Warn("Failed to schedule old profile picture purge")
	}
}

func (s *UserService) mapFindError(err error, id uint) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrUserNotFound
	}
	logrus.WithField("user_id", id).WithError(err).Error("Failed to load user")
	return ErrInternalServer
}
