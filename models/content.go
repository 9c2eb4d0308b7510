package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ContentType enumerates the media kinds a record can carry.
type ContentType string

const (
	TypeVideo   ContentType = "video"
	TypeImage   ContentType = "image"
	TypeGallery ContentType = "gallery"
)

// ContentStatus enumerates the lifecycle states of a record. Only
// StatusActive records are visible on any catalog read path.
type ContentStatus string

const (
	StatusActive   ContentStatus = "active"
	StatusBroken   ContentStatus = "broken"
	StatusReported ContentStatus = "reported"
	StatusRemoved  ContentStatus = "removed"
)

// ContentInfo carries the optional structured metadata of a record. Each
// field is kept only when its value is positive; Normalize enforces that.
type ContentInfo struct {
	Images *int   `json:"images,omitempty"`
	Videos *int   `json:"videos,omitempty"`
	Size   *int64 `json:"size,omitempty"`
}

// Normalize drops non-positive fields and returns nil when nothing survives,
// so an empty info object is stored as SQL NULL rather than '{}'.
func (i *ContentInfo) Normalize() *ContentInfo {
	if i == nil {
		return nil
	}
	out := ContentInfo{}
	if i.Images != nil && *i.Images > 0 {
		out.Images = i.Images
	}
	if i.Videos != nil && *i.Videos > 0 {
		out.Videos = i.Videos
	}
	if i.Size != nil && *i.Size > 0 {
		out.Size = i.Size
	}
	if out.Images == nil && out.Videos == nil && out.Size == nil {
		return nil
	}
	return &out
}

// Value serializes the info object for the jsonb column.
func (i ContentInfo) Value() (driver.Value, error) {
	return json.Marshal(i)
}

// Scan deserializes the jsonb column.
func (i *ContentInfo) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return fmt.Errorf("unsupported type %T for ContentInfo", value)
	}
}

// Content represents one postable catalog item.
type Content struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ModelID string `json:"model_id" gorm:"size:64;not null;index"`
	Model   Model  `json:"model" gorm:"foreignKey:ModelID;references:ModelID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Slug         string         `json:"slug" gorm:"uniqueIndex;not null"`
	Title        string         `json:"title" gorm:"not null"`
	URL          string         `json:"url" gorm:"not null"`
	ThumbnailURL string         `json:"thumbnailUrl,omitempty"`
	Type         ContentType    `json:"type" gorm:"size:16;not null;default:'image'"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	Views        int            `json:"views" gorm:"not null;default:0"`
	Status       ContentStatus  `json:"status" gorm:"size:16;not null;default:'active';index"`
	Language     string         `json:"language,omitempty" gorm:"size:8;default:'en'"`
	IsActive     bool           `json:"isActive" gorm:"not null;default:true;index"`
	Info         *ContentInfo   `json:"info,omitempty" gorm:"type:jsonb"`

	// Logical publish date used for chronological grouping. When unset, the
	// record falls back to its creation timestamp.
	Postdate *time.Time `json:"postdate,omitempty" gorm:"index"`
}

// TableName sets the explicit table name.
func (Content) TableName() string {
	return "contents"
}

// EffectiveDate is the timestamp a record is bucketed by: postdate when
// present, otherwise the creation time.
func (c *Content) EffectiveDate() time.Time {
	if c.Postdate != nil {
		return *c.Postdate
	}
	return c.CreatedAt
}

// DateKey truncates the effective date to a calendar day at UTC midnight.
// The SQL side derives its day keys with the same UTC boundary; the two must
// never diverge or rows silently fall out of their buckets.
func (c *Content) DateKey() string {
	return c.EffectiveDate().UTC().Format("2006-01-02")
}

// HasTag reports set membership, the semantics the category filter uses.
func (c *Content) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
