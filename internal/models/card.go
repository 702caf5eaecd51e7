package models

import (
	"time"
)

// Edition is a named release (set) that catalog cards belong to
type Edition struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name" gorm:"not null;index"`
	Series      string     `json:"series"`
	ReleaseDate *time.Time `json:"release_date"` // nil when the release date is unknown
	Total       int        `json:"total"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Card struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"not null;index"`
	EditionID     string    `json:"edition_id" gorm:"not null;index"`
	Number        string    `json:"number"`
	Rarity        string    `json:"rarity"`
	ImageURL      string    `json:"image_url"`
	ImageURLLarge string    `json:"image_url_large"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DateOf truncates t to its calendar day, expressed as midnight UTC.
// Snapshot dates and cutoffs are always compared through DateOf.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
