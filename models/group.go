package models

// Group is a themed community posts can be filed under. Created by an
// administrator and not edited afterwards.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text;not null" json:"description"`
}

func (g Group) String() string { return g.Title }
