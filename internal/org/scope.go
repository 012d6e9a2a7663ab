package org

import (
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

// ScopeService answers membership questions against the live user table.
// Workflow authorization checks go through here rather than through data
// stamped onto progress rows, so a revoked role or a department transfer
// takes effect immediately.
type ScopeService struct {
	db *gorm.DB
}

func NewScopeService(db *gorm.DB) *ScopeService {
	return &ScopeService{db: db}
}

// UsersInRole returns the active holders of a role who can act for the
// given tenant. Holders of a global-scope role qualify regardless of
// their own tenant.
func (s *ScopeService) UsersInRole(roleID uint, tenantID uint) ([]uint, error) {
	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		return nil, err
	}

	query := s.db.Model(&models.User{}).
		Where("role_id = ? AND status = ?", roleID, "active")
	if role.ScopeLevel != models.ScopeGlobal {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UsersInDepartment returns the active members of a department.
func (s *ScopeService) UsersInDepartment(departmentID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.User{}).
		Where("department_id = ? AND status = ?", departmentID, "active").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UserHasRole reports whether the user currently holds the role with
// authority over the given tenant.
func (s *ScopeService) UserHasRole(userID uint, roleID uint, tenantID uint) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	if !user.IsActive() || user.RoleID != roleID {
		return false, nil
	}

	var role models.Role
	if err := s.db.First(&role, roleID).Error; err != nil {
		return false, err
	}

	if role.ScopeLevel == models.ScopeGlobal {
		return true, nil
	}
	return user.TenantID == tenantID, nil
}

// UserInDepartment reports whether the user is currently an active member
// of the department.
func (s *ScopeService) UserInDepartment(userID uint, departmentID uint) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}

	return user.IsActive() && user.DepartmentID != nil && *user.DepartmentID == departmentID, nil
}

// IsActive reports whether the user exists and is active.
func (s *ScopeService) IsActive(userID uint) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return user.IsActive(), nil
}
