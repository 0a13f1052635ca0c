package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
)

// JWTClaims JWT声明结构
type JWTClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService 租户用户认证 - 核验凭据并签发携带租户声明的token
// 密码校验只发生在这里, 核心各组件消费的是已解析的身份
type AuthService struct {
	userRepo   *repository.TenantUserRepository
	tenantRepo *repository.TenantRepository
	secretKey  string
	tokenTTL   time.Duration
}

func NewAuthService(
	userRepo *repository.TenantUserRepository,
	tenantRepo *repository.TenantRepository,
	secretKey string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		secretKey:  secretKey,
		tokenTTL:   tokenTTL,
	}
}

// AuthResponse 认证响应
type AuthResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      *model.TenantUser `json:"user"`
}

// Login 在指定租户内核验邮箱+密码
func (s *AuthService) Login(subdomain, email, password string) (*AuthResponse, error) {
	t, err := s.tenantRepo.GetBySubdomain(subdomain)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTenantInactive
	}

	user, err := s.userRepo.GetByEmail(t.ID, email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	token, err := s.generateToken(user, t.ID.String(), expiresAt)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// generateToken 生成携带租户声明的JWT令牌
func (s *AuthService) generateToken(user *model.TenantUser, tenantID string, expiresAt time.Time) (string, error) {
	claims := JWTClaims{
		UserID:   user.ID.String(),
		TenantID: tenantID,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "petshop-management",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}
