package models

// Branch is an organisational unit owning groups and members. Branches are
// created out-of-band by memberctl and are read-only over HTTP.
type Branch struct {
	BaseModel
	Name    string   `json:"name" gorm:"type:varchar(150);uniqueIndex;not null"`
	Contact *string  `json:"contact,omitempty" gorm:"type:varchar(255)"`
	Groups  []Group  `json:"-" gorm:"foreignKey:BranchID"`
	Members []Member `json:"-" gorm:"foreignKey:BranchID"`
}

type BranchSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (b Branch) Summary() BranchSummary {
	return BranchSummary{ID: b.ID.String(), Name: b.Name}
}
