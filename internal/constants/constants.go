package constants

const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

const (
	EventTypeCreate = "create"
	EventTypeUpdate = "update"
	EventTypeDelete = "delete"
	EventTypeError  = "error"
)

const (
	ResourceTypeTenant  = "tenant"
	ResourceTypeSchema  = "schema"
	ResourceTypeBackup  = "backup"
	ResourceTypeRestore = "restore"
	ResourceTypeUser    = "user"
)

const (
	BackupTypeFull = "full"
)

// BackupEngine 备份产物的engine元数据, restore据此判断兼容性
const (
	BackupEnginePostgres = "postgresql"
)

// BackupFormatVersion 备份产物格式版本, restore拒绝未知版本
const BackupFormatVersion = 1

const (
	AuditResultSuccess = "success"
	AuditResultFailed  = "failed"
)

const (
	AuthHeaderRequired          = "Authorization header is required"
	AuthHeaderInvalidFormat     = "Authorization header format must be Bearer {token}"
	AuthTokenInvalidOrExpired   = "Invalid or expired token"
	AuthTokenInvalid            = "Invalid token"
	AuthInsufficientPermissions = "Insufficient permissions"
)

// TenantIDHeader 显式指定租户的请求头
const TenantIDHeader = "X-Tenant-ID"
