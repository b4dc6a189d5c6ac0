package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Room struct {
	gorm.Model

	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"type:text"`
	RoomType    string `json:"roomType" gorm:"column:room_type;size:16"`

	PricePerNight decimal.Decimal `json:"pricePerNight" gorm:"column:price_per_night;type:decimal(10,2);not null"`

	// Availability is a coarse flag; overlap queries on bookings are authoritative.
	Availability bool `json:"availability" gorm:"column:availability;not null"`
	Capacity     int  `json:"capacity" gorm:"not null"`

	HotelID uint   `json:"hotelId" gorm:"column:hotel_id;index;not null"`
	Hotel   *Hotel `json:"hotel,omitempty" gorm:"foreignKey:HotelID"`
}
