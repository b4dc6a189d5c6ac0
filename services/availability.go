package services

import (
	"context"
	"time"

	"hotel-booking/models"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

// AvailabilityService answers "is this room free for these dates" from booking
// overlap, never from the room's availability flag alone.
type AvailabilityService struct {
	Store repository.Store
}

func NewAvailabilityService(store repository.Store) *AvailabilityService {
	return &AvailabilityService{Store: store}
}

func validateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return utils.InvalidInput("Please provide check-in and check-out dates")
	}
	if !(models.DateRange{Start: checkIn, End: checkOut}).Valid() {
		return utils.InvalidInput("Check-out date must be after check-in date")
	}
	return nil
}

func (s *AvailabilityService) IsAvailable(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	if err := validateRange(checkIn, checkOut); err != nil {
		return false, err
	}
	return isAvailable(ctx, s.Store, roomID, checkIn, checkOut)
}

// isAvailable runs against whichever Store it is given, so the booking flow can
// re-check inside its transaction.
func isAvailable(ctx context.Context, store repository.Store, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	overlap, err := store.HasOverlappingBooking(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return !overlap, nil
}

type AvailableRoomsQuery struct {
	CheckIn  time.Time
	CheckOut time.Time
	HotelID  *uint
	Query    utils.ListQuery
}

func (s *AvailabilityService) ListAvailableRooms(ctx context.Context, q AvailableRoomsQuery) ([]models.Room, error) {
	if err := validateRange(q.CheckIn, q.CheckOut); err != nil {
		return nil, err
	}
	rooms, err := s.Store.ListAvailableRooms(ctx, repository.AvailableRoomsFilter{
		CheckIn:  q.CheckIn,
		CheckOut: q.CheckOut,
		HotelID:  q.HotelID,
		Query:    q.Query,
	})
	if err != nil {
		return nil, utils.Internal(err, "list available rooms")
	}
	return rooms, nil
}
