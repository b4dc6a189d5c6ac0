package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Gateway event types the booking flow reacts to.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventCheckoutExpired       = "checkout.session.expired"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnavailable      = errors.New("payment gateway unavailable")
)

type CheckoutRequest struct {
	BookingID     uint
	ReferenceCode string
	RoomName      string
	Amount        decimal.Decimal
	CustomerEmail string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified gateway webhook event.
type Event struct {
	ID        string
	Type      string
	SessionID string
	// BookingID comes from session metadata; zero when absent.
	BookingID uint
	Paid      bool
	Payload   []byte
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// SessionPaid asks the gateway directly whether the session has been paid.
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
	// ExpireSession closes an open session so it can no longer be paid.
	ExpireSession(ctx context.Context, sessionID string) error
	// ParseWebhook verifies the signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
