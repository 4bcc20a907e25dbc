package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// State tracks a purchase through the gateway confirmation lifecycle.
type State string

const (
	StateCreating  State = "creating"
	StateWaiting   State = "waiting"
	StateClaiming  State = "claiming"
	StateSucceeded State = "succeeded"
	StateCanceled  State = "canceled"
	StateFailed    State = "failed"
	StateExpired   State = "expired"
)

// Terminal reports whether the purchase needs no further polling.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateCanceled, StateFailed, StateExpired:
		return true
	}
	return false
}

// Purchase is a server-tracked payment awaiting gateway confirmation. Once
// the gateway reports success the purchase claims a code and stores it on
// the row so clients can fetch it even after reconnecting.
type Purchase struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	PaymentID       string            `gorm:"uniqueIndex" json:"payment_id,omitempty"`
	PackageID       string            `gorm:"not null" json:"package_id"`
	State           State             `gorm:"not null;index" json:"state"`
	Reason          string            `json:"reason,omitempty"`
	Code            string            `json:"code,omitempty"`
	ConfirmationURL string            `json:"confirmation_url,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (Purchase) TableName() string {
	return "pending_purchases"
}
