package models

import (
	"database/sql"
	"strings"
	"time"
)

type TenantConfig struct {
	TenantID      string `gorm:"primaryKey"`
	DestinationID string `gorm:"not null"`
	PingGroupID   sql.NullString
}

type TenantConfigs []TenantConfig

type Subscription struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"uniqueIndex:idx_user_tenant_location;not null"` // Composite unique on user, tenant & location
	TenantID  string `gorm:"uniqueIndex:idx_user_tenant_location;index;not null"`
	Location  string `gorm:"uniqueIndex:idx_user_tenant_location;not null"`
	CreatedAt time.Time
}

type Subscriptions []Subscription

type SeenItem struct {
	ItemID      string `gorm:"primaryKey"`
	Title       string
	Price       float64
	FirstSeenAt time.Time
}

// NormalizeLocation is applied to every stored subscription location.
func NormalizeLocation(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}
