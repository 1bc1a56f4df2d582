package db

import "time"

// CatalogImage is static reference data used to build real/fake pairs.
type CatalogImage struct {
	ID        uint      `gorm:"primaryKey"`
	FilePath  string    `gorm:"size:255;uniqueIndex;not null"`
	Title     string    `gorm:"size:128;not null"`
	Category  string    `gorm:"size:64;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
