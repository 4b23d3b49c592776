// Package domain defines the listing entity and its input schema. Listing is
// mapped with GORM for the embedded SQLite store; the Mongo store converts it
// to its own BSON document shape.
package domain

import (
	"strings"
	"time"
)

// PlaceholderImageURL is stored whenever a listing has no usable image URL.
const PlaceholderImageURL = "https://images.unsplash.com/photo-1571896349842-33c89424de2d?ixlib=rb-4.0.3&ixid=M3wxMjA3fDB8MHxzZWFyY2h8N3x8aG90ZWxzfGVufDB8fDB8fHww&auto=format&fit=crop&w=800&q=60"

// Image is the picture attached to a listing. URL is never empty once the
// image has been set through SetURL.
type Image struct {
	Filename string `json:"filename,omitempty" gorm:"type:varchar(255)"`
	URL      string `json:"url"                gorm:"type:text;not null"`
}

// SetURL assigns u, substituting PlaceholderImageURL for a blank value.
func (i *Image) SetURL(u string) {
	if strings.TrimSpace(u) == "" {
		u = PlaceholderImageURL
	}
	i.URL = u
}

// Listing is a single directory entry.
//
// Fields:
//   - ID: assigned by the store on insert; immutable afterwards.
//   - Title: required, never blank.
//   - Image: embedded as image_filename / image_url columns.
//   - Price: nil when the listing has no price.
//   - Reviews: ordered review ids (reviews themselves are managed elsewhere).
type Listing struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title"       gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Image       Image     `json:"image"       gorm:"embedded;embeddedPrefix:image_"`
	Price       *float64  `json:"price"`
	Location    string    `json:"location"    gorm:"type:varchar(255)"`
	Country     string    `json:"country"     gorm:"type:varchar(255)"`
	Reviews     []string  `json:"reviews"     gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// HasPrice reports whether a price was recorded.
func (l *Listing) HasPrice() bool { return l != nil && l.Price != nil }
