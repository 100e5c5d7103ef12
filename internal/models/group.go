package models

import "github.com/google/uuid"

type Group struct {
	BaseModel
	BranchID    uuid.UUID         `json:"branchId" gorm:"type:uuid;not null;index"`
	Name        string            `json:"name" gorm:"type:varchar(150);not null"`
	Description string            `json:"description" gorm:"type:text;not null;default:''"`
	Branch      Branch            `json:"-" gorm:"foreignKey:BranchID"`
	Memberships []GroupMembership `json:"-" gorm:"foreignKey:GroupID"`
}
