package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerGateway fails fast with ErrUnavailable while the gateway keeps erroring.
// Webhook parsing is local and bypasses the breaker.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGateway(next Gateway, log logrus.FieldLogger) *BreakerGateway {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) exec(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	return res, err
}

func (b *BreakerGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	res, err := b.exec(func() (interface{}, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*CheckoutSession), nil
}

func (b *BreakerGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	res, err := b.exec(func() (interface{}, error) {
		return b.next.SessionPaid(ctx, sessionID)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (b *BreakerGateway) ExpireSession(ctx context.Context, sessionID string) error {
	_, err := b.exec(func() (interface{}, error) {
		return nil, b.next.ExpireSession(ctx, sessionID)
	})
	return err
}

func (b *BreakerGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return b.next.ParseWebhook(payload, signature)
}
