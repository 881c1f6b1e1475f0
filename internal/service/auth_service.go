package service

import (
	"context"
	"errors"
	"time"

	"github.com/hortafresh/backoffice/internal/cache"
	"github.com/hortafresh/backoffice/internal/config"
	"github.com/hortafresh/backoffice/internal/constants"
	"github.com/hortafresh/backoffice/internal/logger"
	"github.com/hortafresh/backoffice/internal/models"
	"github.com/hortafresh/backoffice/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService admin authentication
type AuthService struct {
	cfg          *config.Config
	adminRepo    repository.AdminRepository
	loginLogRepo repository.AdminLoginLogRepository
}

// NewAuthService builds an auth service
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository, loginLogRepo repository.AdminLoginLogRepository) *AuthService {
	return &AuthService{
		cfg:          cfg,
		adminRepo:    adminRepo,
		loginLogRepo: loginLogRepo,
	}
}

// HashPassword hashes with bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash against a candidate
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks the configured policy
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// JWTClaims admin session claims
type JWTClaims struct {
	AdminID      uint   `json:"admin_id"`
	Username     string `json:"username"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// GenerateJWT issues a signed session token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)

	claims := JWTClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseJWT validates and decodes a session token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// LoginContext request metadata recorded in the login log
type LoginContext struct {
	ClientIP  string
	UserAgent string
	RequestID string
}

// Login authenticates an admin and issues a session token
func (s *AuthService) Login(username, password string, lc LoginContext) (*models.Admin, string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil {
		s.recordLogin(0, username, constants.LoginLogStatusFailed, "unknown username", lc)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	if err := s.VerifyPassword(admin.PasswordHash, password); err != nil {
		s.recordLogin(admin.ID, username, constants.LoginLogStatusFailed, "wrong password", lc)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.Update(admin); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))

	s.recordLogin(admin.ID, username, constants.LoginLogStatusSuccess, "", lc)
	return admin, token, expiresAt, nil
}

// ChangePassword rotates the password and invalidates existing sessions
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrAdminNotFound
	}

	if err := s.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	admin.PasswordHash = hashedPassword
	now := time.Now()
	admin.TokenVersion++
	admin.TokenInvalidBefore = &now
	if err := s.adminRepo.Update(admin); err != nil {
		return err
	}
	_ = cache.SetAdminAuthState(context.Background(), cache.BuildAdminAuthState(admin))
	return nil
}

// ListLoginLogs returns the paginated login audit trail
func (s *AuthService) ListLoginLogs(filter repository.AdminLoginLogListFilter) ([]models.AdminLoginLog, int64, error) {
	return s.loginLogRepo.List(filter)
}

func (s *AuthService) recordLogin(adminID uint, username, status, reason string, lc LoginContext) {
	if s.loginLogRepo == nil {
		return
	}
	entry := &models.AdminLoginLog{
		AdminID:    adminID,
		Username:   username,
		Status:     status,
		FailReason: reason,
		ClientIP:   lc.ClientIP,
		UserAgent:  lc.UserAgent,
		RequestID:  lc.RequestID,
	}
	if err := s.loginLogRepo.Create(entry); err != nil {
		logger.Warnw("admin_login_log_failed", "username", username, "error", err)
	}
}
