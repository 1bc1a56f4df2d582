package db

import "time"

type Player struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     uint      `gorm:"index;not null;uniqueIndex:idx_players_room_user;uniqueIndex:idx_players_room_alias"`
	UserID     string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_user"`
	Alias      string    `gorm:"size:64;not null;uniqueIndex:idx_players_room_alias"`
	IsHost     bool      `gorm:"not null;default:false"`
	IsOnline   bool      `gorm:"not null;default:true"`
	JoinedAt   time.Time `gorm:"not null"`
	LastSeenAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
	Captions   []Caption
	Votes      []Vote `gorm:"foreignKey:VoterID"`
}
