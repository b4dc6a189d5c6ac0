package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentEvent records a gateway webhook event that has been applied to a booking.
type PaymentEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	EventID   string         `gorm:"column:event_id;size:255;uniqueIndex;not null" json:"eventId"`
	Type      string         `gorm:"size:100" json:"type"`
	SessionID string         `gorm:"column:session_id;size:255;index" json:"sessionId"`
	BookingID *uint          `gorm:"column:booking_id;index" json:"bookingId,omitempty"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
