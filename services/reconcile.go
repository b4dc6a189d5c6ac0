package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

func statusPtr(s models.BookingStatus) *models.BookingStatus { return &s }
func paymentPtr(s models.PaymentStatus) *models.PaymentStatus { return &s }

// unpaidCard matches a card booking nobody has paid, confirmed or cancelled yet.
var unpaidCard = repository.BookingExpect{
	Statuses:        []models.BookingStatus{models.BookingPending},
	PaymentStatuses: []models.PaymentStatus{models.PaymentPending},
	PaymentMethod:   models.PaymentCard,
}

// markPaid moves a card booking to confirmed/paid. It reports false without an
// error when the booking had already left the payable states.
func markPaid(ctx context.Context, tx repository.Store, bookingID uint) (bool, error) {
	return tx.UpdateBookingIf(ctx, bookingID,
		repository.BookingExpect{
			Statuses:        []models.BookingStatus{models.BookingPending, models.BookingConfirmed},
			PaymentStatuses: []models.PaymentStatus{models.PaymentPending},
			PaymentMethod:   models.PaymentCard,
		},
		repository.BookingUpdate{
			Status:        statusPtr(models.BookingConfirmed),
			PaymentStatus: paymentPtr(models.PaymentPaid),
		})
}

// cancelUnpaid moves an unpaid card booking to cancelled/failed and releases its room.
func cancelUnpaid(ctx context.Context, tx repository.Store, booking *models.Booking) (bool, error) {
	ok, err := tx.UpdateBookingIf(ctx, booking.ID, unpaidCard, repository.BookingUpdate{
		Status:        statusPtr(models.BookingCancelled),
		PaymentStatus: paymentPtr(models.PaymentFailed),
	})
	if err != nil || !ok {
		return false, err
	}
	if _, err := tx.SetRoomAvailability(ctx, booking.RoomID, true); err != nil {
		return false, err
	}
	return true, nil
}

// expireSession closes the booking's checkout session best-effort. It reports
// true when the session could not be expired because it was already paid.
func expireSession(ctx context.Context, gateway payment.Gateway, timeout time.Duration, log logrus.FieldLogger, b *models.Booking) bool {
	if gateway == nil || b.SessionID() == "" {
		return false
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := gateway.ExpireSession(gctx, b.SessionID())
	if err == nil {
		return false
	}
	paid, perr := gateway.SessionPaid(gctx, b.SessionID())
	if perr != nil {
		log.WithError(err).WithField("booking_id", b.ID).Warn("could not expire checkout session")
		return false
	}
	return paid
}

// storeError turns repository sentinels into client-facing errors.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.NotFound("No %s found with that ID", what)
	case errors.Is(err, repository.ErrConflict):
		return utils.Conflict("The %s is being modified by another request, please try again", what)
	}
	return utils.Internal(err, "%s store operation failed", what)
}
