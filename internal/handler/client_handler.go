package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/tenant"
	"github.com/petshop-system/petshop-management/pkg/utils"
)

// ClientHandler 客户接口 - 运行在租户解析中间件之后, 所有查询自动受租户过滤
type ClientHandler struct {
	clientRepo *repository.ClientRepository
	animalRepo *repository.AnimalRepository
}

type CreateClientRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=255"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"max=30"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type UpdateClientRequest struct {
	Name    string `json:"name" binding:"omitempty,min=1,max=255"`
	Phone   string `json:"phone" binding:"max=30"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func NewClientHandler(clientRepo *repository.ClientRepository, animalRepo *repository.AnimalRepository) *ClientHandler {
	return &ClientHandler{clientRepo: clientRepo, animalRepo: animalRepo}
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	client := &model.Client{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	}

	if err := h.clientRepo.Create(c.Request.Context(), client); err != nil {
		handleTenantError(c, err, "Failed to create client")
		return
	}

	utils.Success(c, http.StatusCreated, client)
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid client id")
		return
	}

	client, err := h.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleTenantError(c, err, "Failed to get client")
		return
	}

	utils.Success(c, http.StatusOK, client)
}

func (h *ClientHandler) ListClients(c *gin.Context) {
	page := utils.ParseInt(c.Query("page"), 1)
	pageSize := utils.ParseInt(c.Query("limit"), 20)

	clients, total, err := h.clientRepo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		handleTenantError(c, err, "Failed to list clients")
		return
	}

	utils.Success(c, http.StatusOK, gin.H{
		"clients": clients,
		"total":   total,
		"page":    page,
		"limit":   pageSize,
	})
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid client id")
		return
	}

	var req UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	client, err := h.clientRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		handleTenantError(c, err, "Failed to get client")
		return
	}

	if req.Name != "" {
		client.Name = req.Name
	}
	client.Phone = req.Phone
	client.Address = req.Address
	client.Notes = req.Notes

	if err := h.clientRepo.Update(c.Request.Context(), client); err != nil {
		handleTenantError(c, err, "Failed to update client")
		return
	}

	utils.Success(c, http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid client id")
		return
	}

	if err := h.clientRepo.Delete(c.Request.Context(), id); err != nil {
		handleTenantError(c, err, "Failed to delete client")
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"id": id})
}

func (h *ClientHandler) ListClientAnimals(c *gin.Context) {
	id, err := utils.ParseUUID(c.Param("id"))
	if err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid client id")
		return
	}

	animals, err := h.animalRepo.ListByClient(c.Request.Context(), id)
	if err != nil {
		handleTenantError(c, err, "Failed to list animals")
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"animals": animals, "total": len(animals)})
}

// handleTenantError 把租户路由/隔离错误映射为对外错误码
func handleTenantError(c *gin.Context, err error, format string, args ...interface{}) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(c, utils.ErrCodeNotFound, "Resource not found")
	case errors.Is(err, tenant.ErrNoTenantContext):
		utils.Error(c, utils.ErrCodeTenantRequired, "No tenant context for this request")
	case errors.Is(err, tenant.ErrTenantNotReady):
		utils.Error(c, utils.ErrCodeTenantInactive, "Tenant is not active")
	case tenant.IsCrossTenant(err):
		utils.Error(c, utils.ErrCodeForbidden, "Reference crosses tenant boundary")
	default:
		utils.Error(c, utils.ErrCodeInternalError, format+": %v", append(args, err)...)
	}
}
