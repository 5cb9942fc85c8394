package notification

import (
	"database/sql"
	"time"
)

// DeliveryStatus is the outcome recorded for one delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusBounced   DeliveryStatus = "bounced"
)

// DeliveryLog is the append-only audit record of one delivery attempt for
// one notification on one channel. Corresponds to the 'delivery_logs' table.
// Rows are never mutated once a terminal status is written.
type DeliveryLog struct {
	ID             int64
	NotificationID int64
	ChannelID      int64
	Status         DeliveryStatus
	ErrorMessage   sql.NullString
	AttemptCount   int
	DeliveredAt    sql.NullTime
	CreatedAt      time.Time
}
