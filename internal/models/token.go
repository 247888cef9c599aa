package models

import "time"

// Token is a personal access token. The secret is returned to the client once
// at creation time as "<id>|<secret>"; only its SHA-256 digest is stored.
type Token struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100)"` // client-supplied device label, e.g. "IOS"
	TokenHash string    `json:"-" gorm:"uniqueIndex;type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
}
