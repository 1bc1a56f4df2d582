package db

import "time"

type Round struct {
	ID           uint       `gorm:"primaryKey"`
	RoomID       uint       `gorm:"index;not null;uniqueIndex:idx_rounds_room_number"`
	Number       int        `gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	RealImageID  uint       `gorm:"index;not null"`
	FakeImageID  uint       `gorm:"index;not null"`
	Category     string     `gorm:"size:64;not null"`
	RealImageURL string     `gorm:"size:255;not null;default:''"`
	FakeImageURL string     `gorm:"size:255;not null;default:''"`
	StartedAt    *time.Time
	DeadlineAt   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
	Captions     []Caption
	Votes        []Vote
}
