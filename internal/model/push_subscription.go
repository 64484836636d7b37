package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Exactly one row exists per distinct endpoint; re-registration refreshes
// metadata instead of inserting a duplicate.
type PushSubscription struct {
	Endpoint     string    `gorm:"primaryKey"`
	Auth         string    `gorm:"not null"`
	P256DH       string    `gorm:"column:p256dh;not null"`
	Platform     string    `gorm:"size:32;not null"`
	Browser      string    `gorm:"size:32;not null"`
	UserAgent    string    `gorm:"size:512"`
	IsActive     bool      `gorm:"not null"`
	LastVerified time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
