package models

import "github.com/google/uuid"

type Member struct {
	BaseModel
	BranchID           uuid.UUID         `json:"branchId" gorm:"type:uuid;not null;index;uniqueIndex:idx_branch_email"`
	FirstName          string            `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName           string            `json:"lastName" gorm:"type:varchar(100);not null"`
	Email              string            `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_branch_email"`
	PrimaryPhoneNumber *string           `json:"primaryPhoneNumber,omitempty" gorm:"type:varchar(50)"`
	AdditionalInfo     *string           `json:"additionalInfo,omitempty" gorm:"type:text"`
	Branch             Branch            `json:"-" gorm:"foreignKey:BranchID"`
	Memberships        []GroupMembership `json:"-" gorm:"foreignKey:MemberID"`
}

// MemberSummary is the shape returned by member listings.
type MemberSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (m Member) Summary() MemberSummary {
	return MemberSummary{
		ID:        m.ID.String(),
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
	}
}

func SummarizeMembers(members []Member) []MemberSummary {
	out := make([]MemberSummary, 0, len(members))
	for _, m := range members {
		out = append(out, m.Summary())
	}
	return out
}
