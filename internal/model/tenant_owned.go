package model

import "github.com/google/uuid"

// TenantOwned 租户所属实体接口, 路由和网关据此识别归属
type TenantOwned interface {
	GetTenantID() uuid.UUID
	SetTenantID(id uuid.UUID)
}

// Reference 实体之间的跨表引用, 用于跨租户校验
type Reference struct {
	Field string    // 引用字段名(用于错误信息)
	Table string    // 被引用表
	ID    uuid.UUID // 被引用行ID, uuid.Nil表示未设置
}

// ReferenceHolder 声明了自身引用关系的实体
type ReferenceHolder interface {
	References() []Reference
}
