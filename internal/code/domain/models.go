package domain

import "time"

// ExpiryWindow is how long a code stays usable after it is minted.
const ExpiryWindow = 30 * 24 * time.Hour

// Code is a prepaid credential entitling its holder to a bounded number of
// generations. Rows are never deleted; a code becomes unusable once its
// remaining count reaches zero or the expiry window passes.
type Code struct {
	Code      string    `gorm:"primaryKey" json:"code"`
	Total     int       `gorm:"not null" json:"total"`
	Remaining int       `gorm:"not null" json:"remaining"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Code) TableName() string { return "codes" }

// Expired reports whether the code is past its expiry window at the given
// instant.
func (c Code) Expired(now time.Time) bool {
	return now.Sub(c.CreatedAt) > ExpiryWindow
}
