package models

import "time"

// Model is the performer a content record belongs to. The catalog only reads
// it: listings join against it for display fields and the ethnicity filter.
type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ModelID   string `json:"model_id" gorm:"uniqueIndex;size:64;not null"`
	Name      string `json:"name" gorm:"not null"`
	Slug      string `json:"slug" gorm:"uniqueIndex;size:160"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	Ethnicity string `json:"ethnicity,omitempty" gorm:"index"`
}

// TableName sets the explicit table name.
func (Model) TableName() string {
	return "models"
}
