// services/booking_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

type BookingOptions struct {
	// PaymentTimeout bounds the checkout-session call made while the room is locked.
	PaymentTimeout time.Duration
	// GraceWindow is how long a guest has to pay; only used in notifications here.
	GraceWindow time.Duration
}

// BookingService owns booking creation and manual status changes.
type BookingService struct {
	Store    repository.Store
	Gateway  payment.Gateway
	Notifier Notifier
	Locks    *RoomLocks
	Log      logrus.FieldLogger
	Opts     BookingOptions
	Now      func() time.Time
}

func NewBookingService(store repository.Store, gateway payment.Gateway, notifier Notifier, log logrus.FieldLogger, opts BookingOptions) *BookingService {
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 10 * time.Second
	}
	if opts.GraceWindow <= 0 {
		opts.GraceWindow = 15 * time.Minute
	}
	return &BookingService{
		Store:    store,
		Gateway:  gateway,
		Notifier: notifier,
		Locks:    NewRoomLocks(),
		Log:      log.WithField("component", "bookings"),
		Opts:     opts,
		Now:      time.Now,
	}
}

type CreateBookingInput struct {
	RoomID        uint
	CheckIn       time.Time
	CheckOut      time.Time
	PaymentMethod models.PaymentMethod
}

// CreateBooking locks the room, re-checks availability, prices and inserts the
// booking and, for card payments, opens a checkout session, all in one unit of
// work. Any failure leaves nothing behind. It keeps running if the caller's
// context is cancelled.
func (s *BookingService) CreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (*models.Booking, string, error) {
	ctx = context.WithoutCancel(ctx)

	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCard
	}
	if !in.PaymentMethod.Valid() {
		return nil, "", utils.InvalidInput("Invalid payment method %q", in.PaymentMethod)
	}
	if err := validateRange(in.CheckIn, in.CheckOut); err != nil {
		return nil, "", err
	}
	if !in.CheckIn.After(s.Now()) {
		return nil, "", utils.InvalidInput("Check-in date must be in the future")
	}

	unlock := s.Locks.Lock(in.RoomID)
	defer unlock()

	var (
		booking    *models.Booking
		paymentURL string
	)
	err := s.Store.Transaction(ctx, func(tx repository.Store) error {
		room, err := tx.LockRoom(ctx, in.RoomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return utils.NotFound("No room found with that ID")
			}
			return err
		}

		free, err := isAvailable(ctx, tx, room.ID, in.CheckIn, in.CheckOut)
		if err != nil {
			return err
		}
		if !free {
			return utils.Conflict("Room is not available for the selected dates")
		}

		total, err := Price(room, in.CheckIn, in.CheckOut)
		if err != nil {
			return err
		}

		booking = &models.Booking{
			UserID:        actor.ID,
			RoomID:        room.ID,
			CheckInDate:   in.CheckIn,
			CheckOutDate:  in.CheckOut,
			TotalPrice:    total,
			PaymentMethod: in.PaymentMethod,
			PaymentStatus: models.PaymentPending,
			Status:        models.BookingPending,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		booking.Room = room

		if in.PaymentMethod != models.PaymentCard {
			return nil
		}
		sess, err := s.openCheckout(ctx, tx, actor, booking, room)
		if err != nil {
			return err
		}
		if err := tx.SetPaymentSession(ctx, booking.ID, sess.ID); err != nil {
			return fmt.Errorf("store payment session: %w", err)
		}
		booking.PaymentSessionID = &sess.ID
		paymentURL = sess.URL
		return nil
	})
	if err != nil {
		return nil, "", storeError(err, "room")
	}

	s.Log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"room_id":    booking.RoomID,
		"user_id":    booking.UserID,
		"method":     booking.PaymentMethod,
	}).Info("booking created")

	window := fmt.Sprintf("%d minutes", int(s.Opts.GraceWindow.Minutes()))
	notify(ctx, s.Store, s.Notifier, s.Log, booking, utils.BookingCreatedEmail, func(d *utils.BookingEmailData) {
		d.PaymentURL = paymentURL
		d.PayWithin = window
	})
	return booking, paymentURL, nil
}

func (s *BookingService) openCheckout(ctx context.Context, tx repository.Store, actor Actor, booking *models.Booking, room *models.Room) (*payment.CheckoutSession, error) {
	if s.Gateway == nil {
		return nil, utils.Internal(nil, "card payments are not configured")
	}
	gctx, cancel := context.WithTimeout(ctx, s.Opts.PaymentTimeout)
	defer cancel()

	req := payment.CheckoutRequest{
		BookingID:     booking.ID,
		ReferenceCode: booking.ReferenceCode,
		RoomName:      room.Name,
		Amount:        booking.TotalPrice,
	}
	if user, err := tx.FindUser(gctx, actor.ID); err == nil {
		req.CustomerEmail = user.Email
	}

	sess, err := s.Gateway.CreateCheckoutSession(gctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			return nil, utils.Internal(err, "payment gateway timed out after %s", s.Opts.PaymentTimeout)
		}
		return nil, utils.Internal(err, "create checkout session")
	}
	return sess, nil
}

// UpdateBooking applies a manual status/paymentStatus change after the access
// policy and the transition table allow it. The write only lands if the booking
// still holds the values it was authorized against.
func (s *BookingService) UpdateBooking(ctx context.Context, actor Actor, id uint, changes BookingChanges) (*models.Booking, error) {
	if changes.Empty() {
		return nil, utils.InvalidInput("Please provide status or paymentStatus")
	}
	if changes.Status != nil && !changes.Status.Valid() {
		return nil, utils.InvalidInput("Invalid booking status %q", *changes.Status)
	}
	if changes.PaymentStatus != nil && !changes.PaymentStatus.Valid() {
		return nil, utils.InvalidInput("Invalid payment status %q", *changes.PaymentStatus)
	}

	booking, err := s.Store.FindBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, "booking")
	}
	var roomHotelID *uint
	if booking.Room != nil {
		roomHotelID = &booking.Room.HotelID
	}

	if err := Authorize(actor, booking, roomHotelID, changes); err != nil {
		return nil, err
	}

	var update repository.BookingUpdate
	if changes.Status != nil {
		if err := CheckTransition(actor.Role, booking.Status, *changes.Status); err != nil {
			return nil, err
		}
		if *changes.Status != booking.Status {
			update.Status = changes.Status
		}
	}
	if changes.PaymentStatus != nil {
		if err := CheckPaymentTransition(booking.PaymentStatus, *changes.PaymentStatus); err != nil {
			return nil, err
		}
		if *changes.PaymentStatus != booking.PaymentStatus {
			update.PaymentStatus = changes.PaymentStatus
		}
	}
	if update.Empty() {
		return booking, nil
	}

	// reactivating a cancelled booking takes its dates back, so it competes with creates
	reactivate := booking.Status == models.BookingCancelled && update.Status != nil
	if reactivate {
		unlock := s.Locks.Lock(booking.RoomID)
		defer unlock()
	}

	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		if reactivate {
			if _, err := tx.LockRoom(ctx, booking.RoomID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return utils.Conflict("The room of this booking no longer exists")
				}
				return err
			}
			free, err := isAvailable(ctx, tx, booking.RoomID, booking.CheckInDate, booking.CheckOutDate)
			if err != nil {
				return err
			}
			if !free {
				return utils.Conflict("Room is no longer available for the booked dates")
			}
		}

		ok, err := tx.UpdateBookingIf(ctx, booking.ID, repository.BookingExpect{
			Statuses:        []models.BookingStatus{booking.Status},
			PaymentStatuses: []models.PaymentStatus{booking.PaymentStatus},
		}, update)
		if err != nil {
			return err
		}
		if !ok {
			return utils.Conflict("Booking was modified by another request, please try again")
		}

		if update.Status != nil && *update.Status == models.BookingCancelled {
			if _, err := tx.SetRoomAvailability(ctx, booking.RoomID, true); err != nil {
				return fmt.Errorf("release room: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "booking")
	}

	s.Log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"actor_id":   actor.ID,
		"role":       actor.Role,
		"from":       booking.Status,
	}).Info("booking updated")

	if update.Status != nil && *update.Status == models.BookingCancelled &&
		booking.PaymentMethod == models.PaymentCard && booking.PaymentStatus == models.PaymentPending {
		if paid := expireSession(context.WithoutCancel(ctx), s.Gateway, s.Opts.PaymentTimeout, s.Log, booking); paid {
			s.Log.WithField("booking_id", booking.ID).Warn("cancelled booking was paid before its checkout session closed, refund needed")
		}
	}

	updated, err := s.Store.FindBooking(ctx, booking.ID)
	if err != nil {
		return nil, storeError(err, "booking")
	}
	return updated, nil
}

// scopeFor limits listings to what the actor may see.
func scopeFor(actor Actor) (repository.BookingScope, error) {
	switch actor.Role {
	case models.RoleGuest:
		id := actor.ID
		return repository.BookingScope{UserID: &id}, nil
	case models.RoleReceptionist:
		if actor.HotelID == nil {
			return repository.BookingScope{}, utils.Forbidden("You are not assigned to a hotel")
		}
		hotel := *actor.HotelID
		return repository.BookingScope{HotelID: &hotel}, nil
	case models.RoleAdmin:
		return repository.BookingScope{}, nil
	}
	return repository.BookingScope{}, utils.Forbidden("You do not have permission to perform this action")
}

func (s *BookingService) ListBookings(ctx context.Context, actor Actor, q utils.ListQuery) ([]models.Booking, error) {
	scope, err := scopeFor(actor)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Store.ListBookings(ctx, scope, q)
	if err != nil {
		return nil, utils.Internal(err, "list bookings")
	}
	return bookings, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor Actor, id uint) (*models.Booking, error) {
	booking, err := s.Store.FindBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, "booking")
	}
	switch actor.Role {
	case models.RoleGuest:
		if booking.UserID != actor.ID {
			return nil, utils.Forbidden("You can only view your own bookings")
		}
	case models.RoleReceptionist:
		if actor.HotelID == nil || booking.Room == nil || booking.Room.HotelID != *actor.HotelID {
			return nil, utils.Forbidden("This booking does not belong to your hotel")
		}
	case models.RoleAdmin:
	default:
		return nil, utils.Forbidden("You do not have permission to perform this action")
	}
	return booking, nil
}
