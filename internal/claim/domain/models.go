package domain

import "time"

// ClaimedPayment marks a payment identifier as already converted into a
// code. Rows are append-only and never removed; the unique payment id is the
// only defense against crediting the same payment twice.
type ClaimedPayment struct {
	PaymentID string    `gorm:"primaryKey" json:"payment_id"`
	Code      string    `gorm:"not null" json:"code"`
	PackageID string    `gorm:"not null" json:"package_id"`
	ClaimedAt time.Time `gorm:"not null" json:"claimed_at"`
}

func (ClaimedPayment) TableName() string { return "claimed_payments" }
