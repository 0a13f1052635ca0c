package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/pkg/utils"
)

type AuthHandler struct {
	authService *service.AuthService
}

type LoginRequest struct {
	Subdomain string `json:"subdomain" binding:"required,min=2,max=63"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	resp, err := h.authService.Login(req.Subdomain, req.Email, req.Password)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			utils.Error(c, utils.ErrCodeUnauthorized, "Invalid email or password")
		case service.ErrTenantNotFound:
			utils.Error(c, utils.ErrCodeNotFound, "Tenant not found")
		case service.ErrTenantInactive:
			utils.Error(c, utils.ErrCodeTenantInactive, "Tenant is not active")
		default:
			utils.Error(c, utils.ErrCodeInternalError, "Login failed: %v", err)
		}
		return
	}

	utils.Success(c, http.StatusOK, resp)
}
