package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

type fakeGateway struct {
	mu        sync.Mutex
	next      int
	paid      map[string]bool
	expired   map[string]bool
	createErr error
	expireErr error
	delay     time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{paid: map[string]bool{}, expired: map[string]bool{}}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.next++
	id := fmt.Sprintf("cs_test_%d", g.next)
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *fakeGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paid[sessionID], nil
}

func (g *fakeGateway) ExpireSession(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.expireErr != nil {
		return g.expireErr
	}
	g.expired[sessionID] = true
	return nil
}

func (g *fakeGateway) markPaid(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paid[sessionID] = true
}

type fakeEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Paid      bool   `json:"paid"`
}

// ParseWebhook accepts the signature "valid" only.
func (g *fakeGateway) ParseWebhook(raw []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var ev fakeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &payment.Event{ID: ev.ID, Type: ev.Type, SessionID: ev.SessionID, Paid: ev.Paid, Payload: raw}, nil
}

func webhookPayload(t *testing.T, id, typ, sessionID string, paid bool) []byte {
	t.Helper()
	raw, err := json.Marshal(fakeEvent{ID: id, Type: typ, SessionID: sessionID, Paid: paid})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []utils.Email
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, email utils.Email) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fixture struct {
	store    *repository.MemoryStore
	gateway  *fakeGateway
	notifier *recordingNotifier
	bookings *BookingService
	payments *PaymentService

	hotel, otherHotel *models.Hotel
	room, otherRoom   *models.Room

	guest, otherGuest, receptionist, otherReceptionist, admin Actor
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		gateway:  newFakeGateway(),
		notifier: &recordingNotifier{},
	}
	log := quietLogger()
	f.bookings = NewBookingService(f.store, f.gateway, f.notifier, log, BookingOptions{PaymentTimeout: time.Second})
	f.payments = NewPaymentService(f.store, f.gateway, f.notifier, log, time.Second)

	f.hotel = &models.Hotel{Name: "Nile View", Location: "Cairo"}
	f.otherHotel = &models.Hotel{Name: "Red Sea Resort", Location: "Hurghada"}
	for _, h := range []*models.Hotel{f.hotel, f.otherHotel} {
		if err := f.store.CreateHotel(ctx, h); err != nil {
			t.Fatal(err)
		}
	}

	f.room = &models.Room{Name: "Deluxe 101", PricePerNight: decimal.NewFromInt(100), Availability: true, Capacity: 2, HotelID: f.hotel.ID}
	f.otherRoom = &models.Room{Name: "Suite 201", PricePerNight: decimal.NewFromInt(250), Availability: true, Capacity: 4, HotelID: f.otherHotel.ID}
	for _, r := range []*models.Room{f.room, f.otherRoom} {
		if err := f.store.CreateRoom(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	mk := func(name string, role models.Role, hotelID *uint) Actor {
		u := &models.User{Name: name, Email: name + "@example.com", Role: role, HotelID: hotelID, IsActive: true}
		if err := f.store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
		return ActorFromUser(u)
	}
	f.guest = mk("guest", models.RoleGuest, nil)
	f.otherGuest = mk("other", models.RoleGuest, nil)
	f.receptionist = mk("frontdesk", models.RoleReceptionist, &f.hotel.ID)
	f.otherReceptionist = mk("frontdesk2", models.RoleReceptionist, &f.otherHotel.ID)
	f.admin = mk("admin", models.RoleAdmin, nil)
	return f
}

// stay returns a date range starting `fromDays` days ahead of today.
func stay(fromDays, nights int) (time.Time, time.Time) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	in := today.AddDate(0, 0, fromDays)
	return in, in.AddDate(0, 0, nights)
}

func (f *fixture) book(t *testing.T, actor Actor, room *models.Room, method models.PaymentMethod, fromDays, nights int) *models.Booking {
	t.Helper()
	in, out := stay(fromDays, nights)
	b, _, err := f.bookings.CreateBooking(context.Background(), actor, CreateBookingInput{
		RoomID: room.ID, CheckIn: in, CheckOut: out, PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) reload(t *testing.T, id uint) *models.Booking {
	t.Helper()
	b, err := f.store.FindBooking(context.Background(), id)
	if err != nil {
		t.Fatalf("reload booking %d: %v", id, err)
	}
	return b
}

func (f *fixture) roomAvailable(t *testing.T, id uint) bool {
	t.Helper()
	r, err := f.store.FindRoom(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return r.Availability
}

func (f *fixture) setRoomAvailability(t *testing.T, id uint, v bool) {
	t.Helper()
	if _, err := f.store.SetRoomAvailability(context.Background(), id, v); err != nil {
		t.Fatal(err)
	}
}

func expectKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := utils.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

var errGatewayDown = errors.New("gateway down")
