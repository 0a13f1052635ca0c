package service

import "errors"

// 服务层哨兵错误, 调用方用errors.Is匹配
var (
	ErrTenantAlreadyExists      = errors.New("tenant already exists")
	ErrTenantNotFound           = errors.New("tenant not found")
	ErrTenantInactive           = errors.New("tenant is not active")
	ErrSchemaNameTaken          = errors.New("schema name already taken")
	ErrBackupNotFound           = errors.New("backup artifact not found")
	ErrBackupTenantMismatch     = errors.New("backup artifact belongs to a different tenant")
	ErrBackupVersionUnsupported = errors.New("backup artifact format version is not supported")
	ErrInvalidCredentials       = errors.New("invalid email or password")
)
