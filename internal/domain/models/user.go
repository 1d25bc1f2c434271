package models

import "time"

type User struct {
	ID                   int64 // Telegram chat id
	NotificationsEnabled bool
	CreatedAt            time.Time
}

type SentNotification struct {
	ID        int
	SearchID  int
	ListingID int64 // listing external id
	CreatedAt time.Time
}

type CityWatermark struct {
	City          string `gorm:"primaryKey"`
	LastFetchedAt time.Time
}
