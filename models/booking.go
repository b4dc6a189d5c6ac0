package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingCheckedIn  BookingStatus = "checked-in"
	BookingCheckedOut BookingStatus = "checked-out"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCheckedIn, BookingCheckedOut:
		return true
	}
	return false
}

// Occupying reports whether a booking in this status still holds its room for the stay.
func (s BookingStatus) Occupying() bool {
	return s != BookingCancelled && s != BookingCheckedOut
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentCash
}

// Booking is a single-room stay over the half-open range [CheckInDate, CheckOutDate).
type Booking struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ReferenceCode string `gorm:"column:reference_code;size:32;uniqueIndex" json:"referenceCode"`

	UserID uint `gorm:"column:user_id;index;not null" json:"userId"`
	RoomID uint `gorm:"column:room_id;index:idx_bookings_room_range;not null" json:"roomId"`

	CheckInDate  time.Time `gorm:"column:check_in_date;index:idx_bookings_room_range;not null" json:"checkInDate"`
	CheckOutDate time.Time `gorm:"column:check_out_date;index:idx_bookings_room_range;not null" json:"checkOutDate"`

	TotalPrice decimal.Decimal `gorm:"column:total_price;type:decimal(10,2);not null" json:"totalPrice"`

	PaymentMethod PaymentMethod `gorm:"column:payment_method;size:16;not null;default:'card'" json:"paymentMethod"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;size:16;not null;default:'pending'" json:"paymentStatus"`
	Status        BookingStatus `gorm:"column:status;size:16;index;not null;default:'pending'" json:"status"`

	// card bookings only
	PaymentSessionID *string `gorm:"column:payment_session_id;size:255;index" json:"paymentSessionId,omitempty"`

	Room *Room `gorm:"foreignKey:RoomID;references:ID" json:"room,omitempty"`
	User *User `gorm:"foreignKey:UserID;references:ID" json:"-"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(b.ReferenceCode) == "" {
		b.ReferenceCode = NewReferenceCode()
	}
	return nil
}

// NewReferenceCode returns a short code like "BK-3F9A1C2E".
func NewReferenceCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("BK-%s", strings.ToUpper(id[:8]))
}

// Nights is the number of nights between check-in and check-out, rounded up.
func (b *Booking) Nights() int {
	d := b.CheckOutDate.Sub(b.CheckInDate)
	if d <= 0 {
		return 0
	}
	n := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		n++
	}
	return n
}

func (b *Booking) SessionID() string {
	if b.PaymentSessionID == nil {
		return ""
	}
	return *b.PaymentSessionID
}
