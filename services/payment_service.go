package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

// PaymentService reconciles gateway outcomes (webhook, success and cancel
// redirects) with booking state. Every path uses conditional updates, so
// whichever reaches a booking first wins and a paid booking is never downgraded.
type PaymentService struct {
	Store    repository.Store
	Gateway  payment.Gateway
	Notifier Notifier
	Log      logrus.FieldLogger
	Timeout  time.Duration
}

func NewPaymentService(store repository.Store, gateway payment.Gateway, notifier Notifier, log logrus.FieldLogger, timeout time.Duration) *PaymentService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaymentService{
		Store:    store,
		Gateway:  gateway,
		Notifier: notifier,
		Log:      log.WithField("component", "payments"),
		Timeout:  timeout,
	}
}

// HandleWebhook verifies and applies a gateway event. Redelivered events are
// recognised by id and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.Gateway == nil {
		return utils.Internal(nil, "payment gateway is not configured")
	}
	ev, err := s.Gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return utils.InvalidSignature(err)
		}
		return utils.InvalidInput("Malformed webhook payload")
	}
	log := s.Log.WithFields(logrus.Fields{"event_id": ev.ID, "event_type": ev.Type, "session_id": ev.SessionID})

	var apply func(tx repository.Store, b *models.Booking) (bool, error)
	var render func(to string, d utils.BookingEmailData) utils.Email
	switch ev.Type {
	case payment.EventCheckoutCompleted, payment.EventAsyncPaymentSucceeded:
		if ev.Type == payment.EventCheckoutCompleted && !ev.Paid {
			// delayed payment methods complete later with async_payment_succeeded
			log.Info("checkout completed without payment yet")
			return nil
		}
		apply = func(tx repository.Store, b *models.Booking) (bool, error) {
			return markPaid(ctx, tx, b.ID)
		}
		render = utils.PaymentSucceededEmail
	case payment.EventCheckoutExpired, payment.EventAsyncPaymentFailed:
		apply = func(tx repository.Store, b *models.Booking) (bool, error) {
			return cancelUnpaid(ctx, tx, b)
		}
		render = utils.PaymentCancelledEmail
	default:
		log.Debug("ignoring webhook event")
		return nil
	}

	var (
		booking *models.Booking
		changed bool
	)
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		b, err := tx.FindBookingBySession(ctx, ev.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				if ev.Type == payment.EventCheckoutCompleted || ev.Type == payment.EventAsyncPaymentSucceeded {
					return utils.NotFound("Booking not found for this payment session")
				}
				// abandoned bookings may already have been purged by the sweeper
				return nil
			}
			return err
		}
		booking = b

		evt := &models.PaymentEvent{
			EventID:   ev.ID,
			Type:      ev.Type,
			SessionID: ev.SessionID,
			BookingID: &b.ID,
			Payload:   datatypes.JSON(ev.Payload),
		}
		inserted, err := tx.RecordPaymentEvent(ctx, evt)
		if err != nil {
			return err
		}
		if !inserted {
			log.Info("duplicate webhook event")
			return nil
		}
		changed, err = apply(tx, b)
		return err
	})
	if err != nil {
		return storeError(err, "booking")
	}

	if booking == nil {
		log.Info("no booking for failed or expired session")
		return nil
	}
	log = log.WithField("booking_id", booking.ID)
	if !changed {
		log.WithField("status", booking.Status).Info("webhook event changed nothing")
		return nil
	}
	log.Info("booking reconciled from webhook")
	if fresh, err := s.Store.FindBooking(ctx, booking.ID); err == nil {
		booking = fresh
	}
	notify(ctx, s.Store, s.Notifier, s.Log, booking, render, nil)
	return nil
}

// HandleSuccess confirms a booking after asking the gateway whether the session
// is really paid.
func (s *PaymentService) HandleSuccess(ctx context.Context, sessionID string) (*models.Booking, error) {
	if sessionID == "" {
		return nil, utils.InvalidInput("Missing session_id")
	}
	booking, err := s.Store.FindBookingBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFound("Booking not found for this payment session")
		}
		return nil, utils.Internal(err, "find booking by session")
	}
	if booking.PaymentStatus == models.PaymentPaid {
		return booking, nil
	}
	if s.Gateway == nil {
		return nil, utils.Internal(nil, "payment gateway is not configured")
	}

	gctx, cancel := context.WithTimeout(ctx, s.Timeout)
	paid, err := s.Gateway.SessionPaid(gctx, sessionID)
	cancel()
	if err != nil {
		return nil, utils.Internal(err, "verify checkout session %s", sessionID)
	}
	if !paid {
		return nil, utils.PaymentIncomplete("Payment has not been completed yet")
	}

	var changed bool
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		changed, err = markPaid(ctx, tx, booking.ID)
		return err
	})
	if err != nil {
		return nil, storeError(err, "booking")
	}

	fresh, err := s.Store.FindBooking(ctx, booking.ID)
	if err != nil {
		return nil, storeError(err, "booking")
	}
	if changed {
		s.Log.WithFields(logrus.Fields{"booking_id": fresh.ID, "session_id": sessionID}).Info("booking paid via success redirect")
		notify(ctx, s.Store, s.Notifier, s.Log, fresh, utils.PaymentSucceededEmail, nil)
	} else if fresh.PaymentStatus != models.PaymentPaid {
		s.Log.WithFields(logrus.Fields{"booking_id": fresh.ID, "status": fresh.Status}).
			Warn("paid session for a booking that is no longer payable")
		return nil, utils.AlreadyFinalized("Booking is already %s and can no longer be paid", fresh.Status)
	}
	return fresh, nil
}

// HandleCancel cancels an unpaid booking when the guest abandons checkout.
// A booking that is already paid or confirmed is rejected with AlreadyFinalized.
func (s *PaymentService) HandleCancel(ctx context.Context, sessionID string) (*models.Booking, error) {
	if sessionID == "" {
		return nil, utils.InvalidInput("Missing session_id")
	}
	booking, err := s.Store.FindBookingBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFound("Booking not found for this payment session")
		}
		return nil, utils.Internal(err, "find booking by session")
	}

	var changed bool
	err = s.Store.Transaction(ctx, func(tx repository.Store) error {
		changed, err = cancelUnpaid(ctx, tx, booking)
		return err
	})
	if err != nil {
		return nil, storeError(err, "booking")
	}

	fresh, err := s.Store.FindBooking(ctx, booking.ID)
	if err != nil {
		return nil, storeError(err, "booking")
	}
	if !changed {
		if fresh.PaymentStatus == models.PaymentPaid || (fresh.Status != models.BookingPending && fresh.Status != models.BookingCancelled) {
			return nil, utils.AlreadyFinalized("Booking is already %s and cannot be cancelled", fresh.Status)
		}
		return fresh, nil
	}

	s.Log.WithFields(logrus.Fields{"booking_id": fresh.ID, "session_id": sessionID}).Info("booking cancelled via cancel redirect")
	notify(ctx, s.Store, s.Notifier, s.Log, fresh, utils.PaymentCancelledEmail, nil)
	return fresh, nil
}
