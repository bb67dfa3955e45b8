package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"snsu-notification/internal/domain"
	"snsu-notification/internal/repository"
)

// DefaultTokenExpiryHours is seven days.
const DefaultTokenExpiryHours = 7 * 24

// Claims is the verified content of a session token.
type Claims struct {
	UserID    uint
	Role      domain.Role
	ExpiresAt time.Time
}

// AuthService issues and verifies session tokens and owns registration,
// login and logout.
type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

// NewAuthService creates an AuthService. jwtExpiryHours <= 0 selects
// DefaultTokenExpiryHours.
func NewAuthService(userRepo repository.UserRepository, jwtSecretKey string, jwtExpiryHours int) (*AuthService, error) {
	if userRepo == nil {
		panic("UserRepository cannot be nil for AuthService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = DefaultTokenExpiryHours
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
		now:       time.Now,
	}, nil
}

// Register creates a self-service account and returns it with a session token.
func (s *AuthService) Register(ctx context.Context, in UserInput) (*domain.User, string, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": in.Username, "email": in.Email})

	if in.Role == "" {
		in.Role = domain.RoleStudent
	}
	if err := in.validate(true); err != nil {
		return nil, "", err
	}

	exists, err := s.userRepo.ExistsByUsernameOrEmail(ctx, in.Username, in.Email, 0)
	if err != nil {
		logCtx.WithError(err).Error("Failed to check existing users during registration")
		return nil, "", ErrInternalServer
	}
	if exists {
		logCtx.Warn("Registration failed: username or email already exists")
		return nil, "", ErrRegistrationFailed
	}

	hashedPassword, err := hashPassword(in.Password)
	if err != nil {
		logCtx.WithError(err).Error("Failed to hash password during registration")
		return nil, "", ErrInternalServer
	}

	user := in.newUser(hashedPassword, s.now())
	if err := s.userRepo.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Warn("Registration failed: username or email already exists (repo error)")
			return nil, "", ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Database error during user creation")
		return nil, "", ErrInternalServer
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during registration")
		return nil, "", ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered successfully")
	return user, token, nil
}

// Login verifies credentials, marks the user online and returns a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	logCtx := logrus.WithField("username", username)

	if username == "" || password == "" {
		return "", nil, invalid("username and password are required")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.WithError(err).Warn("Login attempt failed: User not found")
		} else {
			logCtx.WithError(err).Warn("Login attempt failed: Error finding user")
		}
		return "", nil, ErrAuthenticationFailed
	}
	if user == nil {
		logCtx.Warn("Login attempt failed: User not found (repo returned nil user without error)")
		return "", nil, ErrAuthenticationFailed
	}

	if !checkPassword(password, user.Password) {
		logCtx.Warn("Login attempt failed: Invalid password")
		return "", nil, ErrAuthenticationFailed
	}

	now := s.now()
	if err := s.userRepo.SetPresence(ctx, user.ID, true, now); err != nil {
		logCtx.WithError(err).Warn("Failed to mark user online during login")
	} else {
		user.OnlineStatus = true
		user.LastActive = now
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate JWT token during login")
		return "", nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User logged in successfully")
	return token, user, nil
}

// GenerateToken signs an HS256 token carrying user_id and role.
func (s *AuthService) GenerateToken(user *domain.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.Role),
		"exp":     now.Add(s.jwtExpiry).Unix(),
		"iat":     now.Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken checks signature and expiry. Any failure is ErrAuthenticationFailed.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrAuthenticationFailed
	}

	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrAuthenticationFailed
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrAuthenticationFailed
	}

	userIDFloat, ok := mapClaims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return nil, ErrAuthenticationFailed
	}
	claims := &Claims{UserID: uint(userIDFloat)}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = domain.Role(role)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return claims, nil
}

// AuthenticateToken resolves a bearer credential to the stored user. It
// fails with ErrAuthenticationFailed when the token is missing or invalid or
// its subject no longer exists.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logrus.WithField("user_id", claims.UserID).Warn("Token subject no longer exists")
			return nil, ErrAuthenticationFailed
		}
		logrus.WithField("user_id", claims.UserID).WithError(err).Error("Failed to load token subject")
		return nil, ErrInternalServer
	}
	if user == nil {
		return nil, ErrAuthenticationFailed
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate hash from password: %w", err)
	}
	return string(bytes), nil
}

func checkPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
