package repository

import (
	"context"
	"errors"
	"time"

	"hotel-booking/models"
	"hotel-booking/utils"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the database aborts a unit of work because of
	// a lock conflict (deadlock, lock wait timeout).
	ErrConflict = errors.New("concurrent update conflict")
)

// BookingScope restricts booking listings. Zero value means no restriction.
type BookingScope struct {
	UserID  *uint
	HotelID *uint
}

// BookingExpect lists the values a booking must currently hold for a
// conditional write to apply. Empty slices match anything.
type BookingExpect struct {
	Statuses        []models.BookingStatus
	PaymentStatuses []models.PaymentStatus
	PaymentMethod   models.PaymentMethod
}

type BookingUpdate struct {
	Status        *models.BookingStatus
	PaymentStatus *models.PaymentStatus
}

func (u BookingUpdate) Empty() bool {
	return u.Status == nil && u.PaymentStatus == nil
}

type AvailableRoomsFilter struct {
	CheckIn  time.Time
	CheckOut time.Time
	HotelID  *uint
	Query    utils.ListQuery
}

// Store is the persistence contract used by the booking services.
type Store interface {
	// Transaction runs fn in one unit of work. Any error returned by fn rolls back
	// every write made through the tx Store.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CreateHotel(ctx context.Context, hotel *models.Hotel) error
	FindHotel(ctx context.Context, id uint) (*models.Hotel, error)

	CreateRoom(ctx context.Context, room *models.Room) error
	FindRoom(ctx context.Context, id uint) (*models.Room, error)
	// LockRoom loads the room and holds an exclusive row lock on it until the
	// surrounding transaction ends.
	LockRoom(ctx context.Context, id uint) (*models.Room, error)
	// SetRoomAvailability reports false when the room no longer exists.
	SetRoomAvailability(ctx context.Context, id uint, available bool) (bool, error)
	ListAvailableRooms(ctx context.Context, filter AvailableRoomsFilter) ([]models.Room, error)
	ListRooms(ctx context.Context, q utils.ListQuery) ([]models.Room, error)

	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// HasOverlappingBooking reports whether an occupying booking on roomID
	// overlaps [checkIn, checkOut).
	HasOverlappingBooking(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error)
	CreateBooking(ctx context.Context, booking *models.Booking) error
	SetPaymentSession(ctx context.Context, bookingID uint, sessionID string) error
	// FindBooking loads the booking together with its room.
	FindBooking(ctx context.Context, id uint) (*models.Booking, error)
	FindBookingBySession(ctx context.Context, sessionID string) (*models.Booking, error)
	ListBookings(ctx context.Context, scope BookingScope, q utils.ListQuery) ([]models.Booking, error)
	// UpdateBookingIf applies update only if the row still matches expect and
	// reports whether it did.
	UpdateBookingIf(ctx context.Context, id uint, expect BookingExpect, update BookingUpdate) (bool, error)
	ListStaleCardBookings(ctx context.Context, createdBefore time.Time, limit int) ([]models.Booking, error)
	// PurgeBookingIf permanently removes the booking if it still matches expect.
	PurgeBookingIf(ctx context.Context, id uint, expect BookingExpect) (bool, error)

	// RecordPaymentEvent stores a processed gateway event; false means the
	// event id was already recorded.
	RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) (bool, error)
}
