package models

// Tag is a lower-case label shared by any number of articles.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:30;not null;uniqueIndex" json:"name"`
}
