package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	BaseURL       string
}

// StripeGateway creates Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	currency      string
	successURL    string
	cancelURL     string
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	base := strings.TrimRight(cfg.BaseURL, "/")
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "egp"
	}
	return &StripeGateway{
		api:           client.New(cfg.SecretKey, nil),
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		successURL:    base + "/api/v1/bookings/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:     base + "/api/v1/bookings/cancel?session_id={CHECKOUT_SESSION_ID}",
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	// minor currency unit (piastres)
	unitAmount := req.Amount.Shift(2).Round(0).IntPart()
	if unitAmount < 0 {
		return nil, fmt.Errorf("negative checkout amount for booking %d", req.BookingID)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.RoomName),
					},
					UnitAmount: stripe.Int64(unitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.ReferenceCode),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata("bookingId", strconv.FormatUint(uint64(req.BookingID), 10))

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, fmt.Errorf("get checkout session: %w", err)
	}
	return sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, nil
}

func (g *StripeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	if _, err := g.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("expire checkout session: %w", err)
	}
	return nil
}

type sessionObject struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type), Payload: payload}
	if !strings.HasPrefix(out.Type, "checkout.session.") || event.Data == nil {
		return out, nil
	}

	var obj sessionObject
	if err := json.Unmarshal(event.Data.Raw, &obj); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = obj.ID
	out.Paid = obj.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
	if raw, ok := obj.Metadata["bookingId"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			out.BookingID = uint(id)
		}
	}
	return out, nil
}
