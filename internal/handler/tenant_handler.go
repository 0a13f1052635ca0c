package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
	"github.com/petshop-system/petshop-management/internal/service"
	"github.com/petshop-system/petshop-management/internal/tenant"
	"github.com/petshop-system/petshop-management/pkg/utils"
)

// TenantHandler 租户管理接口(平台管理面)
// 不经过租户解析中间件, 路由本身不携带租户上下文
type TenantHandler struct {
	tenantService       *service.TenantService
	provisioningService *service.ProvisioningService
	backupService       *service.BackupService
	schemaManager       *tenant.Manager
	userRepo            *repository.TenantUserRepository
}

type TenantSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Subdomain  string    `json:"subdomain"`
	SchemaName string    `json:"schema_name"`
	IsActive   bool      `json:"is_active"`
	PlanType   string    `json:"plan_type"`
	CreatedAt  string    `json:"created_at"`
}

type TenantDetailResponse struct {
	TenantSummary
	MaxUsers        int      `json:"max_users"`
	MaxAnimals      int      `json:"max_animals"`
	UserCount       int64    `json:"user_count"`
	SchemaTables    []string `json:"schema_tables,omitempty"`
	SchemaSizeBytes int64    `json:"schema_size_bytes"`
}

type ListTenantsResponse struct {
	Tenants []TenantSummary `json:"tenants"`
	Total   int             `json:"total"`
}

type SetConfigRequest struct {
	Key        string `json:"key" binding:"required,min=1,max=100"`
	Value      string `json:"value" binding:"required"`
	ConfigType string `json:"config_type" binding:"omitempty,oneof=string int bool json"`
}

type CreateBackupRequest struct {
	Compress     bool `json:"compress"`
	IncludeFiles bool `json:"include_files"`
}

type RestoreBackupRequest struct {
	Filename string `json:"filename" binding:"required"`
	Force    bool   `json:"force"`
}

type BackupFileSummary struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	TakenAt   string `json:"taken_at,omitempty"`
}

func NewTenantHandler(
	tenantService *service.TenantService,
	provisioningService *service.ProvisioningService,
	backupService *service.BackupService,
	schemaManager *tenant.Manager,
	userRepo *repository.TenantUserRepository,
) *TenantHandler {
	return &TenantHandler{
		tenantService:       tenantService,
		provisioningService: provisioningService,
		backupService:       backupService,
		schemaManager:       schemaManager,
		userRepo:            userRepo,
	}
}

func (h *TenantHandler) ProvisionTenant(c *gin.Context) {
	var req service.ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	result := h.provisioningService.Provision(c.Request.Context(), req)
	if result.Status != constants.StatusSuccess {
		utils.ErrorWithStatus(c, http.StatusUnprocessableEntity, utils.ErrCodeValidationFailed,
			"Provisioning failed at step %s", result.FailedStep)
		return
	}

	utils.Success(c, http.StatusCreated, result)
}

func (h *TenantHandler) ListTenants(c *gin.Context) {
	tenants, err := h.tenantService.ListTenants()
	if err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Failed to list tenants: %v", err)
		return
	}

	summaries := make([]TenantSummary, 0, len(tenants))
	for _, t := range tenants {
		summaries = append(summaries, toTenantSummary(t))
	}

	utils.Success(c, http.StatusOK, ListTenantsResponse{
		Tenants: summaries,
		Total:   len(summaries),
	})
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	detail := TenantDetailResponse{
		TenantSummary: toTenantSummary(t),
		MaxUsers:      t.MaxUsers,
		MaxAnimals:    t.MaxAnimals,
	}

	// schema明细是尽力而为, 查询失败不影响基础信息返回
	if count, err := h.userRepo.CountByTenant(t.ID); err == nil {
		detail.UserCount = count
	}
	if tables, err := h.schemaManager.ListTables(t); err == nil {
		detail.SchemaTables = tables
	}
	if size, err := h.schemaManager.ComputeSize(t); err == nil {
		detail.SchemaSizeBytes = size
	}

	utils.Success(c, http.StatusOK, detail)
}

func (h *TenantHandler) ActivateTenant(c *gin.Context) {
	h.setActive(c, true)
}

func (h *TenantHandler) DeactivateTenant(c *gin.Context) {
	h.setActive(c, false)
}

func (h *TenantHandler) setActive(c *gin.Context, active bool) {
	t, err := h.tenantService.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		if err == service.ErrTenantNotFound {
			utils.Error(c, utils.ErrCodeNotFound, "Tenant not found")
		} else {
			utils.Error(c, utils.ErrCodeInternalError, "Failed to update tenant: %v", err)
		}
		return
	}

	utils.Success(c, http.StatusOK, toTenantSummary(t))
}

func (h *TenantHandler) SetTenantConfig(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	var req SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	configType := req.ConfigType
	if configType == "" {
		configType = model.ConfigTypeString
	}

	if err := h.tenantService.SetConfig(t.ID.String(), req.Key, req.Value, configType); err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Failed to set config: %v", err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"key": req.Key, "value": req.Value})
}

func (h *TenantHandler) GetTenantConfig(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	key := c.Param("key")
	value, found, err := h.tenantService.GetTypedConfig(t.ID.String(), key)
	if err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Failed to get config: %v", err)
		return
	}
	if !found {
		utils.Error(c, utils.ErrCodeNotFound, "Config key %s not set", key)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
}

func (h *TenantHandler) MigrateTenant(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	fake := c.Query("fake") == "true"
	if err := h.schemaManager.Migrate(t, fake); err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Migration failed: %v", err)
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"tenant_id": t.ID, "fake": fake})
}

func (h *TenantHandler) CreateBackup(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	var req CreateBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	result, err := h.backupService.Backup(c.Request.Context(), t, service.BackupOptions{
		Compress:     req.Compress,
		IncludeFiles: req.IncludeFiles,
	})
	if err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Backup failed: %v", err)
		return
	}

	utils.Success(c, http.StatusCreated, result)
}

func (h *TenantHandler) ListBackups(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	files, err := h.backupService.ListBackups(t)
	if err != nil {
		utils.Error(c, utils.ErrCodeInternalError, "Failed to list backups: %v", err)
		return
	}

	summaries := make([]BackupFileSummary, 0, len(files))
	for _, f := range files {
		summary := BackupFileSummary{Filename: filepath.Base(f)}
		if info, err := os.Stat(f); err == nil {
			summary.SizeBytes = info.Size()
		}
		if ts, err := service.ParseBackupTimestamp(filepath.Base(f)); err == nil {
			summary.TakenAt = ts.Format(time.RFC3339)
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Filename > summaries[j].Filename
	})

	utils.Success(c, http.StatusOK, gin.H{"backups": summaries, "total": len(summaries)})
}

func (h *TenantHandler) RestoreBackup(c *gin.Context) {
	t, ok := h.lookupTenant(c)
	if !ok {
		return
	}

	var req RestoreBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid request body: %v", err)
		return
	}

	// 防止通过文件名逃出备份目录
	if strings.Contains(req.Filename, "/") || strings.Contains(req.Filename, "..") {
		utils.Error(c, utils.ErrCodeValidationFailed, "Invalid backup filename")
		return
	}

	path, err := h.backupService.ResolveArtifact(req.Filename)
	if err != nil {
		if errors.Is(err, service.ErrBackupNotFound) {
			utils.Error(c, utils.ErrCodeNotFound, "Backup not found")
		} else {
			utils.Error(c, utils.ErrCodeInternalError, "Failed to locate backup: %v", err)
		}
		return
	}

	err = h.backupService.Restore(c.Request.Context(), t, path, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBackupNotFound):
			utils.Error(c, utils.ErrCodeNotFound, "Backup not found")
		case errors.Is(err, service.ErrBackupTenantMismatch):
			utils.Error(c, utils.ErrCodeConflict, "Backup belongs to a different tenant")
		case errors.Is(err, service.ErrBackupVersionUnsupported):
			utils.Error(c, utils.ErrCodeValidationFailed, "Backup format version not supported")
		default:
			utils.Error(c, utils.ErrCodeInternalError, "Restore failed: %v", err)
		}
		return
	}

	utils.Success(c, http.StatusOK, gin.H{"tenant_id": t.ID, "filename": req.Filename})
}

func (h *TenantHandler) lookupTenant(c *gin.Context) (*model.Tenant, bool) {
	t, err := h.tenantService.GetBySelector(c.Param("id"))
	if err != nil {
		if err == service.ErrTenantNotFound {
			utils.Error(c, utils.ErrCodeNotFound, "Tenant not found")
		} else {
			utils.Error(c, utils.ErrCodeInternalError, "Failed to load tenant: %v", err)
		}
		return nil, false
	}
	return t, true
}

func toTenantSummary(t *model.Tenant) TenantSummary {
	return TenantSummary{
		ID:         t.ID,
		Name:       t.Name,
		Subdomain:  t.Subdomain,
		SchemaName: t.SchemaName,
		IsActive:   t.IsActive,
		PlanType:   t.PlanType,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}
}
