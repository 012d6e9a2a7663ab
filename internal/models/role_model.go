package models

import (
	"time"

	"gorm.io/gorm"
)

// ScopeLevel controls how far a role's authority reaches: a "global" role
// covers every tenant, a "tenant" role only the holder's own tenant.
const (
	ScopeGlobal = "global"
	ScopeTenant = "tenant"
)

type Role struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;uniqueIndex" json:"name"`
	Description string         `json:"description"`
	ScopeLevel  string         `gorm:"size:20;default:'tenant'" json:"scope_level"`
	Permissions []Permission   `gorm:"foreignKey:RoleID" json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type Permission struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoleID    uint           `gorm:"index:idx_role_module_action" json:"role_id"`
	Module    string         `gorm:"size:50;index:idx_role_module_action" json:"module"`
	Action    string         `gorm:"size:50;index:idx_role_module_action" json:"action"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
