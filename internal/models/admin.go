package models

import "github.com/google/uuid"

type AdminRole string

const (
	AdminRoleSuper  AdminRole = "super"
	AdminRoleBranch AdminRole = "branch"
)

type Admin struct {
	BaseModel
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Name         string     `json:"name" gorm:"type:varchar(150);not null"`
	Role         AdminRole  `json:"role" gorm:"type:varchar(20);not null;default:'branch'"`
	BranchID     *uuid.UUID `json:"branchId,omitempty" gorm:"type:uuid;index"`
	Branch       *Branch    `json:"-" gorm:"foreignKey:BranchID"`
}

// CanManage reports whether the admin may act on the given branch.
func (a *Admin) CanManage(branchID uuid.UUID) bool {
	if a.Role == AdminRoleSuper {
		return true
	}
	return a.BranchID != nil && *a.BranchID == branchID
}
