package role

import (
	"github.com/formflow/platform/internal/database"
	"github.com/formflow/platform/internal/models"
	"gorm.io/gorm"
)

func CreateRole(db *gorm.DB, name string, description string, scopeLevel string, perms []models.Permission) (*models.Role, error) {
	role := models.Role{Name: name, Description: description, ScopeLevel: scopeLevel, Permissions: perms}
	if err := db.Create(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func AssignPermissions(db *gorm.DB, roleID uint, perms []models.Permission) error {
	for _, p := range perms {
		p.RoleID = roleID
		if err := db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

func ListRoles() ([]models.Role, error) {
	var roles []models.Role
	if err := database.DB.Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}
