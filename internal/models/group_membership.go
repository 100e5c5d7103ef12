package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupMembership attaches a member to a group. The unique index turns
// repeated adds into no-ops.
type GroupMembership struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID `json:"groupId" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_member"`
	MemberID  uuid.UUID `json:"memberId" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_member"`
	CreatedAt time.Time `json:"createdAt"`
	Group     Group     `json:"-" gorm:"foreignKey:GroupID"`
	Member    Member    `json:"member,omitempty" gorm:"foreignKey:MemberID"`
}

func (m *GroupMembership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
