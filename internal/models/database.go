package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Project represents a registered client app allowed to use the billing
// bridge. Identity and webhook configuration only; purchase history is never
// stored.
type Project struct {
	BaseModel
	ProjectID   string `json:"project_id" gorm:"uniqueIndex;not null"`
	ProjectName string `json:"project_name" gorm:"not null"`
	APIKey      string `json:"api_key" gorm:"uniqueIndex;not null"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
	Description string `json:"description"`

	// App identity, used in the restore projection
	BundleID    string `json:"bundle_id" gorm:"uniqueIndex"`    // iOS bundle ID
	PackageName string `json:"package_name" gorm:"uniqueIndex"` // Android package name

	// Request budget
	RateLimit   int `json:"rate_limit" gorm:"default:60"`     // requests per minute
	MaxRequests int `json:"max_requests" gorm:"default:1000"` // max requests per day

	// Webhook configuration for notifying the app backend of completed purchases
	WebhookCallbackURL string `json:"webhook_callback_url" gorm:"type:varchar(500)"`
	WebhookSecret      string `json:"webhook_secret" gorm:"type:varchar(255)"`
}
