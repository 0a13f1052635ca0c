package service

import (
	"github.com/google/uuid"

	"github.com/petshop-system/petshop-management/internal/constants"
	"github.com/petshop-system/petshop-management/internal/model"
	"github.com/petshop-system/petshop-management/internal/repository"
)

// AuditService 核心操作审计 - 记录到共享库, 按租户标注
type AuditService struct {
	auditRepo *repository.AuditRepository
}

func NewAuditService(auditRepo *repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

func (s *AuditService) Log(tenantID uuid.UUID, eventType, action, resource, resourceID, user string, details map[string]interface{}) error {
	event := &model.AuditEvent{
		TenantID:   tenantID,
		EventType:  eventType,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		User:       user,
		Details:    details,
		Result:     constants.AuditResultSuccess,
	}
	return s.auditRepo.Create(event)
}

func (s *AuditService) LogFailure(tenantID uuid.UUID, action, resource, user string, opErr error) error {
	event := &model.AuditEvent{
		TenantID:  tenantID,
		EventType: constants.EventTypeError,
		Action:    action,
		Resource:  resource,
		User:      user,
		Result:    constants.AuditResultFailed,
		ErrorMsg:  opErr.Error(),
	}
	return s.auditRepo.Create(event)
}

func (s *AuditService) LogProvisioning(tenantID uuid.UUID, subdomain, user string, success bool, failedStep string) error {
	details := map[string]interface{}{"subdomain": subdomain}
	result := constants.AuditResultSuccess
	if !success {
		result = constants.AuditResultFailed
		details["failed_step"] = failedStep
	}

	event := &model.AuditEvent{
		TenantID:  tenantID,
		EventType: constants.EventTypeCreate,
		Action:    "provision",
		Resource:  constants.ResourceTypeTenant,
		User:      user,
		Details:   details,
		Result:    result,
	}
	return s.auditRepo.Create(event)
}

func (s *AuditService) LogBackup(tenantID uuid.UUID, backupFile, user string, details map[string]interface{}) error {
	return s.Log(tenantID, constants.EventTypeCreate, "backup", constants.ResourceTypeBackup, backupFile, user, details)
}

func (s *AuditService) LogRestore(tenantID uuid.UUID, backupFile, user string, details map[string]interface{}) error {
	return s.Log(tenantID, constants.EventTypeUpdate, "restore", constants.ResourceTypeRestore, backupFile, user, details)
}
