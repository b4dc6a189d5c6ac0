package services

import (
	"time"

	"github.com/shopspring/decimal"

	"hotel-booking/models"
	"hotel-booking/utils"
)

// Nights counts the nights between checkIn and checkOut, rounding a partial day up.
func Nights(checkIn, checkOut time.Time) int {
	b := models.Booking{CheckInDate: checkIn, CheckOutDate: checkOut}
	return b.Nights()
}

// Price is room.PricePerNight × nights, rounded to 2 decimal places.
func Price(room *models.Room, checkIn, checkOut time.Time) (decimal.Decimal, error) {
	nights := Nights(checkIn, checkOut)
	if nights <= 0 {
		return decimal.Zero, utils.InvalidInput("Check-out date must be after check-in date")
	}
	if room.PricePerNight.IsNegative() {
		return decimal.Zero, utils.Internal(nil, "room %d has a negative nightly price", room.ID)
	}
	return room.PricePerNight.Mul(decimal.NewFromInt(int64(nights))).Round(2), nil
}
