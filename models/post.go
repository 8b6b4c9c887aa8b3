package models

import (
	"fmt"
	"time"
)

// Post is a publication authored by a user. PubDate is set once on insert.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index;not null" json:"pub_date"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id"`
	Group    *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image    string    `gorm:"size:255" json:"image,omitempty"`
	Comments []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// FeedOrder is the default ordering of every post listing. The id tie-break
// keeps pages stable when several posts share a timestamp.
const FeedOrder = "pub_date DESC, id DESC"

func (p Post) String() string {
	text := []rune(p.Text)
	if len(text) > 15 {
		text = text[:15]
	}
	group := "<nil>"
	if p.Group != nil {
		group = p.Group.Title
	}
	return fmt.Sprintf("%s, %s, %s, %s", string(text), p.PubDate.Format("2006-01-02"), p.Author.Username, group)
}
