package models

import "time"

// AppSetting is one persisted key/value slot. The settings bridge keeps the
// whole watchface record, JSON-encoded, under a single key.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name used by existing settings databases.
func (AppSetting) TableName() string {
	return "app_settings"
}
