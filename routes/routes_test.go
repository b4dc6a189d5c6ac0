package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/controllers"
	"hotel-booking/models"
	"hotel-booking/payment"
	"hotel-booking/repository"
	"hotel-booking/services"
	"hotel-booking/utils"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	mu   sync.Mutex
	next int
	paid map[string]bool
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	id := fmt.Sprintf("cs_test_%d", g.next)
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *stubGateway) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paid[sessionID], nil
}

func (g *stubGateway) ExpireSession(ctx context.Context, sessionID string) error { return nil }

func (g *stubGateway) ParseWebhook(raw []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var ev struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &payment.Event{ID: ev.ID, Type: ev.Type, SessionID: ev.SessionID, Paid: true, Payload: raw}, nil
}

type testServer struct {
	router  *gin.Engine
	store   *repository.MemoryStore
	gateway *stubGateway
	hotel   *models.Hotel
	room    *models.Room

	guest, otherGuest, receptionist, admin, inactive *models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	s := &testServer{store: repository.NewMemoryStore(), gateway: &stubGateway{paid: map[string]bool{}}}

	hotel := &models.Hotel{Name: "Nile View", Location: "Cairo"}
	s.hotel = hotel
	if err := s.store.CreateHotel(ctx, hotel); err != nil {
		t.Fatal(err)
	}
	s.room = &models.Room{Name: "Deluxe 101", PricePerNight: decimal.NewFromInt(100), Availability: true, Capacity: 2, HotelID: hotel.ID}
	if err := s.store.CreateRoom(ctx, s.room); err != nil {
		t.Fatal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	mk := func(email string, role models.Role, hotelID *uint, active bool) *models.User {
		u := &models.User{Name: email, Email: email, Password: string(hash), Role: role, HotelID: hotelID, IsActive: active}
		if err := s.store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
		return u
	}
	s.guest = mk("guest@example.com", models.RoleGuest, nil, true)
	s.otherGuest = mk("other@example.com", models.RoleGuest, nil, true)
	s.receptionist = mk("desk@example.com", models.RoleReceptionist, &hotel.ID, true)
	s.admin = mk("admin@example.com", models.RoleAdmin, nil, true)
	s.inactive = mk("gone@example.com", models.RoleGuest, nil, false)

	notifier := &services.LogNotifier{Log: log}
	bookings := services.NewBookingService(s.store, s.gateway, notifier, log, services.BookingOptions{PaymentTimeout: time.Second})
	payments := services.NewPaymentService(s.store, s.gateway, notifier, log, time.Second)

	s.router, err = SetupRouter(Deps{
		Store:     s.store,
		JWTSecret: testSecret,
		Log:       log,
		Bookings:  controllers.NewBookingController(bookings, services.NewAvailabilityService(s.store), log),
		Payments:  controllers.NewPaymentController(payments, log),
		Auth:      controllers.NewAuthController(s.store, testSecret, time.Hour, log),
		Rooms:     controllers.NewRoomController(services.NewRoomService(s.store), log),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := utils.CreateAccessToken(testSecret, u.ID, string(u.Role), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, user *models.User, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func dates(fromDays, nights int) (string, string) {
	in := time.Now().UTC().AddDate(0, 0, fromDays)
	return in.Format("2006-01-02"), in.AddDate(0, 0, nights).Format("2006-01-02")
}

func (s *testServer) createBooking(t *testing.T, user *models.User, method string, fromDays, nights int) map[string]any {
	t.Helper()
	in, out := dates(fromDays, nights)
	w, body := s.do(t, http.MethodPost, "/api/v1/bookings", user, gin.H{
		"roomId": s.room.ID, "checkInDate": in, "checkOutDate": out, "paymentMethod": method,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return body
}

func bookingOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data in %v", body)
	}
	b, ok := data["booking"].(map[string]any)
	if !ok {
		t.Fatalf("missing booking in %v", data)
	}
	return b
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", w.Code, body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "guest@example.com", "password": "pass1234"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	token, _ := body["token"].(string)
	claims, err := utils.ParseAccessToken(testSecret, token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != s.guest.ID || claims.Role != string(models.RoleGuest) {
		t.Fatalf("unexpected claims %+v", claims)
	}

	w, body = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "guest@example.com", "password": "wrong"})
	if w.Code != http.StatusUnauthorized || body["status"] != "fail" {
		t.Fatalf("wrong password: expected 401 fail, got %d %v", w.Code, body)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "gone@example.com", "password": "pass1234"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: expected 401, got %d", w.Code)
	}

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad payload: expected 400, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/api/v1/bookings", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/bookings", s.inactive, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: expected 401, got %d", w.Code)
	}
}

func TestOnlyGuestsCreateBookings(t *testing.T) {
	s := newTestServer(t)
	in, out := dates(5, 2)
	w, body := s.do(t, http.MethodPost, "/api/v1/bookings", s.receptionist, gin.H{
		"roomId": s.room.ID, "checkInDate": in, "checkOutDate": out,
	})
	if w.Code != http.StatusForbidden || body["status"] != "fail" {
		t.Fatalf("expected 403 fail, got %d %v", w.Code, body)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	s := newTestServer(t)
	in, out := dates(5, 2)

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing room", gin.H{"checkInDate": in, "checkOutDate": out}},
		{"bad date", gin.H{"roomId": s.room.ID, "checkInDate": "07/01/2030", "checkOutDate": out}},
		{"checkout before checkin", gin.H{"roomId": s.room.ID, "checkInDate": out, "checkOutDate": in}},
		{"same day", gin.H{"roomId": s.room.ID, "checkInDate": in, "checkOutDate": in}},
		{"bad method", gin.H{"roomId": s.room.ID, "checkInDate": in, "checkOutDate": out, "paymentMethod": "bitcoin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, "/api/v1/bookings", s.guest, tc.body)
			if w.Code != http.StatusBadRequest || body["status"] != "fail" {
				t.Fatalf("expected 400 fail, got %d %v", w.Code, body)
			}
		})
	}
}

func TestCreateCardBookingAndPaySuccess(t *testing.T) {
	s := newTestServer(t)
	body := s.createBooking(t, s.guest, "card", 5, 2)

	url, _ := body["paymentUrl"].(string)
	if url == "" {
		t.Fatalf("expected a payment url, got %v", body["paymentUrl"])
	}
	b := bookingOf(t, body)
	if b["status"] != "pending" || b["paymentStatus"] != "pending" {
		t.Fatalf("expected pending/pending, got %v/%v", b["status"], b["paymentStatus"])
	}
	sessionID, _ := b["paymentSessionId"].(string)

	w, _ := s.do(t, http.MethodGet, "/api/v1/bookings/success?session_id="+sessionID, nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unpaid session: expected 400, got %d", w.Code)
	}

	s.gateway.mu.Lock()
	s.gateway.paid[sessionID] = true
	s.gateway.mu.Unlock()

	w, body = s.do(t, http.MethodGet, "/api/v1/bookings/success?session_id="+sessionID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	b = bookingOf(t, body)
	if b["status"] != "confirmed" || b["paymentStatus"] != "paid" {
		t.Fatalf("expected confirmed/paid, got %v/%v", b["status"], b["paymentStatus"])
	}
}

func TestSuccessRedirectAfterCancelIsRejected(t *testing.T) {
	s := newTestServer(t)
	b := bookingOf(t, s.createBooking(t, s.guest, "card", 5, 2))
	sessionID, _ := b["paymentSessionId"].(string)
	id := fmt.Sprintf("%v", b["id"])

	w, _ := s.do(t, http.MethodPatch, "/api/v1/bookings/"+id, s.guest, gin.H{"status": "cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s.gateway.mu.Lock()
	s.gateway.paid[sessionID] = true
	s.gateway.mu.Unlock()

	w, body := s.do(t, http.MethodGet, "/api/v1/bookings/success?session_id="+sessionID, nil, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if body["status"] != "fail" {
		t.Fatalf("expected fail envelope, got %v", body)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	s := newTestServer(t)
	s.createBooking(t, s.guest, "cash", 5, 3)

	in, out := dates(6, 1)
	w, body := s.do(t, http.MethodPost, "/api/v1/bookings", s.otherGuest, gin.H{
		"roomId": s.room.ID, "checkInDate": in, "checkOutDate": out, "paymentMethod": "cash",
	})
	if w.Code != http.StatusBadRequest || body["status"] != "fail" {
		t.Fatalf("expected 400 fail, got %d %v", w.Code, body)
	}
}

func TestAvailableRooms(t *testing.T) {
	s := newTestServer(t)
	in, out := dates(5, 2)
	path := fmt.Sprintf("/api/v1/bookings/available-rooms?checkInDate=%s&checkOutDate=%s", in, out)

	w, body := s.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusOK || body["results"] != float64(1) {
		t.Fatalf("expected one room, got %d %v", w.Code, body)
	}

	s.createBooking(t, s.guest, "cash", 5, 2)
	w, body = s.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusOK || body["results"] != float64(0) {
		t.Fatalf("expected no rooms after booking, got %d %v", w.Code, body)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/bookings/available-rooms", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing dates: expected 400, got %d", w.Code)
	}
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/available-rooms?checkInDate=%s&checkOutDate=%s", out, in), nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reversed dates: expected 400, got %d", w.Code)
	}
}

func TestPatchBookingPolicy(t *testing.T) {
	s := newTestServer(t)
	b := bookingOf(t, s.createBooking(t, s.guest, "card", 5, 2))
	path := fmt.Sprintf("/api/v1/bookings/%v", b["id"])

	w, _ := s.do(t, http.MethodPatch, path, s.guest, gin.H{"status": "confirmed"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("guest confirm: expected 403, got %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPatch, path, s.receptionist, gin.H{"paymentStatus": "paid"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("receptionist card payment: expected 403, got %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPatch, path, s.guest, gin.H{"status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status: expected 400, got %d", w.Code)
	}
	w, _ = s.do(t, http.MethodPatch, path, s.otherGuest, gin.H{"status": "cancelled"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("other guest cancel: expected 403, got %d", w.Code)
	}

	w, body := s.do(t, http.MethodPatch, path, s.guest, gin.H{"status": "cancelled"})
	if w.Code != http.StatusOK {
		t.Fatalf("guest cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := bookingOf(t, body)["status"]; got != "cancelled" {
		t.Fatalf("expected cancelled, got %v", got)
	}
}

func TestListAndGetBookingsAreScoped(t *testing.T) {
	s := newTestServer(t)
	b := bookingOf(t, s.createBooking(t, s.guest, "cash", 5, 2))
	s.createBooking(t, s.otherGuest, "cash", 10, 2)

	w, body := s.do(t, http.MethodGet, "/api/v1/bookings", s.guest, nil)
	if w.Code != http.StatusOK || body["results"] != float64(1) {
		t.Fatalf("guest list: expected 1 result, got %d %v", w.Code, body)
	}
	w, body = s.do(t, http.MethodGet, "/api/v1/bookings?limit=1", s.receptionist, nil)
	if w.Code != http.StatusOK || body["results"] != float64(1) {
		t.Fatalf("receptionist list with limit: expected 1 result, got %d %v", w.Code, body)
	}

	path := fmt.Sprintf("/api/v1/bookings/%v", b["id"])
	if w, _ := s.do(t, http.MethodGet, path, s.guest, nil); w.Code != http.StatusOK {
		t.Fatalf("own booking: expected 200, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, path, s.otherGuest, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign booking: expected 403, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/bookings/abc", s.guest, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/bookings/9999", s.guest, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing booking: expected 404, got %d", w.Code)
	}
}

func postWebhook(s *testServer, payload []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	s := newTestServer(t)
	b := bookingOf(t, s.createBooking(t, s.guest, "card", 5, 2))
	sessionID, _ := b["paymentSessionId"].(string)
	payload := []byte(fmt.Sprintf(`{"id":"evt_1","type":%q,"sessionId":%q}`, payment.EventCheckoutCompleted, sessionID))

	if w := postWebhook(s, payload, "forged"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature: expected 400, got %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		w := postWebhook(s, payload, "valid")
		if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"received":true`)) {
			t.Fatalf("delivery %d: expected 200 received, got %d %s", i+1, w.Code, w.Body.String())
		}
	}

	id := uint(b["id"].(float64))
	stored, err := s.store.FindBooking(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.BookingConfirmed || stored.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", stored.Status, stored.PaymentStatus)
	}
}

func TestCancelRedirect(t *testing.T) {
	s := newTestServer(t)
	b := bookingOf(t, s.createBooking(t, s.guest, "card", 5, 2))
	sessionID, _ := b["paymentSessionId"].(string)

	w, body := s.do(t, http.MethodGet, "/api/v1/bookings/cancel?session_id="+sessionID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := bookingOf(t, body)
	if got["status"] != "cancelled" || got["paymentStatus"] != "failed" {
		t.Fatalf("expected cancelled/failed, got %v/%v", got["status"], got["paymentStatus"])
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/bookings/cancel", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing session: expected 400, got %d", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	w, body := s.do(t, http.MethodGet, "/api/v1/nowhere", nil, nil)
	if w.Code != http.StatusNotFound || body["status"] != "fail" {
		t.Fatalf("expected 404 fail, got %d %v", w.Code, body)
	}
}

func TestParseCorsOrigins(t *testing.T) {
	if got := parseCorsOrigins(""); len(got) != 1 || got[0] != "*" {
		t.Fatalf("empty: got %v", got)
	}
	got := parseCorsOrigins(" https://a.test , ,https://b.test")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Fatalf("list: got %v", got)
	}
}

func TestRooms(t *testing.T) {
	s := newTestServer(t)
	payload := gin.H{
		"name": "Suite 501", "roomType": "suite", "pricePerNight": "320.50",
		"capacity": 4, "hotelId": s.hotel.ID,
	}

	if w, _ := s.do(t, http.MethodPost, "/api/v1/rooms", s.guest, payload); w.Code != http.StatusForbidden {
		t.Fatalf("guest create: expected 403, got %d", w.Code)
	}

	w, body := s.do(t, http.MethodPost, "/api/v1/rooms", s.admin, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	room := body["data"].(map[string]any)["room"].(map[string]any)
	if room["availability"] != true || room["pricePerNight"] != "320.5" {
		t.Fatalf("unexpected room %v", room)
	}

	bad := gin.H{"name": "Attic", "roomType": "penthouse", "pricePerNight": "10", "capacity": 1, "hotelId": s.hotel.ID}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/rooms", s.admin, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("bad room type: expected 400, got %d", w.Code)
	}
	missingHotel := gin.H{"name": "Attic", "roomType": "single", "pricePerNight": "10", "capacity": 1, "hotelId": 999}
	if w, _ := s.do(t, http.MethodPost, "/api/v1/rooms", s.admin, missingHotel); w.Code != http.StatusNotFound {
		t.Fatalf("missing hotel: expected 404, got %d", w.Code)
	}

	w, body = s.do(t, http.MethodGet, "/api/v1/rooms?roomType=suite", nil, nil)
	if w.Code != http.StatusOK || body["results"] != float64(1) {
		t.Fatalf("filtered list: expected 1 suite, got %d %v", w.Code, body)
	}
	w, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/rooms/%v", room["ID"]), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get room: expected 200, got %d", w.Code)
	}
	if w, _ := s.do(t, http.MethodGet, "/api/v1/rooms/999", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing room: expected 404, got %d", w.Code)
	}
}
