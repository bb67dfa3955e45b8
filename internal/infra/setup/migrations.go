package setup

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"snsu-notification/internal/domain"
)

// Default admin account created on first start.
const (
	DefaultAdminEmail    = "admin@snsu.edu.ph"
	DefaultAdminPhone    = "+639123456789"
	DefaultAdminPassword = "admin123"
)

// MigrateDB creates or updates every table.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	// Users first: messages reference them through foreign keys.
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	if err := db.AutoMigrate(&domain.Media{}, &domain.Notification{}, &domain.Message{}); err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}

// SeedDefaultAdmin creates the "admin" account when it does not exist yet.
// It reports whether a row was inserted.
func SeedDefaultAdmin(db *gorm.DB, password string) (bool, error) {
	var existing domain.User
	err := db.Where("username = ?", domain.DefaultAdminUsername).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up default admin: %w", err)
	}

	if password == "" {
		password = DefaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash default admin password: %w", err)
	}
	admin := &domain.User{
		Username:   domain.DefaultAdminUsername,
		Email:      DefaultAdminEmail,
		Phone:      DefaultAdminPhone,
		Password:   string(hash),
		Role:       domain.RoleAdmin,
		Department: "Administration",
		LastActive: time.Now(),
	}
	if err := db.Create(admin).Error; err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}
	logrus.WithField("username", admin.Username).Info("Default admin account created")
	return true, nil
}
