package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hotel-booking/models"
	"hotel-booking/utils"
)

type memState struct {
	mu sync.Mutex

	hotels   map[uint]models.Hotel
	rooms    map[uint]models.Room
	users    map[uint]models.User
	bookings map[uint]models.Booking
	events   map[string]models.PaymentEvent

	nextID uint
}

// MemoryStore is an in-process Store used by tests and DB_DRIVER=memory.
// A transaction holds the store mutex for its whole duration and keeps an undo
// log so a failed unit of work leaves no trace.
type MemoryStore struct {
	state *memState
	undo  *[]func() // non-nil inside a transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		hotels:   map[uint]models.Hotel{},
		rooms:    map[uint]models.Room{},
		users:    map[uint]models.User{},
		bookings: map[uint]models.Booking{},
		events:   map[string]models.PaymentEvent{},
	}}
}

func (s *MemoryStore) inTx() bool { return s.undo != nil }

// with runs fn under the state mutex unless the caller already owns it.
func (s *MemoryStore) with(fn func(st *memState) error) error {
	if !s.inTx() {
		s.state.mu.Lock()
		defer s.state.mu.Unlock()
	}
	return fn(s.state)
}

func (s *MemoryStore) record(undo func()) {
	if s.inTx() {
		*s.undo = append(*s.undo, undo)
	}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx() {
		// nested: roll back to the mark on failure
		mark := len(*s.undo)
		if err := fn(s); err != nil {
			rollback(*s.undo, mark)
			*s.undo = (*s.undo)[:mark]
			return err
		}
		return nil
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	log := make([]func(), 0, 8)
	tx := &MemoryStore{state: s.state, undo: &log}
	defer func() {
		if r := recover(); r != nil {
			rollback(log, 0)
			panic(r)
		}
	}()
	if err = fn(tx); err != nil {
		rollback(log, 0)
		return err
	}
	return nil
}

func rollback(log []func(), mark int) {
	for i := len(log) - 1; i >= mark; i-- {
		log[i]()
	}
}

func (st *memState) id() uint {
	st.nextID++
	return st.nextID
}

func stamp(createdAt, updatedAt *time.Time) {
	now := time.Now()
	if createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt.IsZero() {
		*updatedAt = now
	}
}

func (s *MemoryStore) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	return s.with(func(st *memState) error {
		if hotel.ID == 0 {
			hotel.ID = st.id()
		}
		stamp(&hotel.CreatedAt, &hotel.UpdatedAt)
		st.hotels[hotel.ID] = *hotel
		id := hotel.ID
		s.record(func() { delete(st.hotels, id) })
		return nil
	})
}

func (s *MemoryStore) FindHotel(ctx context.Context, id uint) (*models.Hotel, error) {
	var out *models.Hotel
	err := s.with(func(st *memState) error {
		h, ok := st.hotels[id]
		if !ok {
			return ErrNotFound
		}
		out = &h
		return nil
	})
	return out, err
}

func (s *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	return s.with(func(st *memState) error {
		if room.ID == 0 {
			room.ID = st.id()
		}
		stamp(&room.CreatedAt, &room.UpdatedAt)
		r := *room
		r.Hotel = nil
		st.rooms[r.ID] = r
		id := r.ID
		s.record(func() { delete(st.rooms, id) })
		return nil
	})
}

func (s *MemoryStore) FindRoom(ctx context.Context, id uint) (*models.Room, error) {
	var out *models.Room
	err := s.with(func(st *memState) error {
		r, ok := st.rooms[id]
		if !ok {
			return ErrNotFound
		}
		out = &r
		return nil
	})
	return out, err
}

// LockRoom only loads the room: inside a transaction the store mutex is
// already held exclusively.
func (s *MemoryStore) LockRoom(ctx context.Context, id uint) (*models.Room, error) {
	return s.FindRoom(ctx, id)
}

func (s *MemoryStore) SetRoomAvailability(ctx context.Context, id uint, available bool) (bool, error) {
	found := false
	err := s.with(func(st *memState) error {
		r, ok := st.rooms[id]
		if !ok {
			return nil
		}
		found = true
		prev := r
		r.Availability = available
		r.UpdatedAt = time.Now()
		st.rooms[id] = r
		s.record(func() { st.rooms[id] = prev })
		return nil
	})
	return found, err
}

func (st *memState) overlapping(roomID uint, want models.DateRange) bool {
	for _, b := range st.bookings {
		if b.RoomID != roomID || !b.Status.Occupying() {
			continue
		}
		if b.Range().Overlaps(want) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) HasOverlappingBooking(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	found := false
	err := s.with(func(st *memState) error {
		found = st.overlapping(roomID, models.DateRange{Start: checkIn, End: checkOut})
		return nil
	})
	return found, err
}

func (s *MemoryStore) ListAvailableRooms(ctx context.Context, filter AvailableRoomsFilter) ([]models.Room, error) {
	want := models.DateRange{Start: filter.CheckIn, End: filter.CheckOut}
	var rooms []models.Room
	err := s.with(func(st *memState) error {
		for _, r := range st.rooms {
			if !r.Availability {
				continue
			}
			if filter.HotelID != nil && r.HotelID != *filter.HotelID {
				continue
			}
			if st.overlapping(r.ID, want) {
				continue
			}
			rooms = append(rooms, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listQuery(rooms, roomFields, filter.Query), nil
}

func (s *MemoryStore) ListRooms(ctx context.Context, q utils.ListQuery) ([]models.Room, error) {
	var rooms []models.Room
	err := s.with(func(st *memState) error {
		for _, r := range st.rooms {
			rooms = append(rooms, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listQuery(rooms, roomFields, q), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.with(func(st *memState) error {
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		for _, u := range st.users {
			if u.Email == user.Email {
				return fmt.Errorf("duplicate email %q", user.Email)
			}
		}
		if user.ID == 0 {
			user.ID = st.id()
		}
		if user.Role == "" {
			user.Role = models.RoleGuest
		}
		stamp(&user.CreatedAt, &user.UpdatedAt)
		st.users[user.ID] = *user
		id := user.ID
		s.record(func() { delete(st.users, id) })
		return nil
	})
}

func (s *MemoryStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := s.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *models.User
	err := s.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.with(func(st *memState) error {
		n = int64(len(st.users))
		return nil
	})
	return n, err
}

func (s *MemoryStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return s.with(func(st *memState) error {
		if booking.ID == 0 {
			booking.ID = st.id()
		}
		if err := booking.BeforeCreate(nil); err != nil {
			return err
		}
		if booking.PaymentMethod == "" {
			booking.PaymentMethod = models.PaymentCard
		}
		if booking.PaymentStatus == "" {
			booking.PaymentStatus = models.PaymentPending
		}
		if booking.Status == "" {
			booking.Status = models.BookingPending
		}
		stamp(&booking.CreatedAt, &booking.UpdatedAt)
		b := *booking
		b.Room, b.User = nil, nil
		st.bookings[b.ID] = b
		id := b.ID
		s.record(func() { delete(st.bookings, id) })
		return nil
	})
}

func (s *MemoryStore) SetPaymentSession(ctx context.Context, bookingID uint, sessionID string) error {
	return s.with(func(st *memState) error {
		b, ok := st.bookings[bookingID]
		if !ok || b.PaymentMethod != models.PaymentCard {
			return ErrNotFound
		}
		prev := b
		b.PaymentSessionID = &sessionID
		b.UpdatedAt = time.Now()
		st.bookings[bookingID] = b
		s.record(func() { st.bookings[bookingID] = prev })
		return nil
	})
}

func (st *memState) withRoom(b models.Booking) models.Booking {
	if r, ok := st.rooms[b.RoomID]; ok {
		b.Room = &r
	}
	return b
}

func (s *MemoryStore) FindBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var out *models.Booking
	err := s.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return ErrNotFound
		}
		b = st.withRoom(b)
		out = &b
		return nil
	})
	return out, err
}

func (s *MemoryStore) FindBookingBySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	var out *models.Booking
	err := s.with(func(st *memState) error {
		for _, b := range st.bookings {
			if b.SessionID() == sessionID && sessionID != "" {
				b = st.withRoom(b)
				out = &b
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (s *MemoryStore) ListBookings(ctx context.Context, scope BookingScope, q utils.ListQuery) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.with(func(st *memState) error {
		for _, b := range st.bookings {
			if scope.UserID != nil && b.UserID != *scope.UserID {
				continue
			}
			if scope.HotelID != nil {
				r, ok := st.rooms[b.RoomID]
				if !ok || r.HotelID != *scope.HotelID {
					continue
				}
			}
			bookings = append(bookings, st.withRoom(b))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return listQuery(bookings, bookingFields, q), nil
}

func (e BookingExpect) matches(b models.Booking) bool {
	if len(e.Statuses) > 0 && !containsStatus(e.Statuses, b.Status) {
		return false
	}
	if len(e.PaymentStatuses) > 0 && !containsPaymentStatus(e.PaymentStatuses, b.PaymentStatus) {
		return false
	}
	if e.PaymentMethod != "" && e.PaymentMethod != b.PaymentMethod {
		return false
	}
	return true
}

func containsStatus(list []models.BookingStatus, s models.BookingStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPaymentStatus(list []models.PaymentStatus, s models.PaymentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *MemoryStore) UpdateBookingIf(ctx context.Context, id uint, expect BookingExpect, update BookingUpdate) (bool, error) {
	if update.Empty() {
		return false, fmt.Errorf("empty booking update")
	}
	applied := false
	err := s.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok || !expect.matches(b) {
			return nil
		}
		prev := b
		if update.Status != nil {
			b.Status = *update.Status
		}
		if update.PaymentStatus != nil {
			b.PaymentStatus = *update.PaymentStatus
		}
		b.UpdatedAt = time.Now()
		st.bookings[id] = b
		s.record(func() { st.bookings[id] = prev })
		applied = true
		return nil
	})
	return applied, err
}

func (s *MemoryStore) ListStaleCardBookings(ctx context.Context, createdBefore time.Time, limit int) ([]models.Booking, error) {
	var out []models.Booking
	err := s.with(func(st *memState) error {
		for _, b := range st.bookings {
			if b.Status == models.BookingPending && b.PaymentMethod == models.PaymentCard && b.CreatedAt.Before(createdBefore) {
				out = append(out, b)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (s *MemoryStore) PurgeBookingIf(ctx context.Context, id uint, expect BookingExpect) (bool, error) {
	purged := false
	err := s.with(func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok || !expect.matches(b) {
			return nil
		}
		delete(st.bookings, id)
		s.record(func() { st.bookings[id] = b })
		purged = true
		return nil
	})
	return purged, err
}

func (s *MemoryStore) RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	inserted := false
	err := s.with(func(st *memState) error {
		if _, dup := st.events[event.EventID]; dup {
			return nil
		}
		event.ID = st.id()
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now()
		}
		st.events[event.EventID] = *event
		key := event.EventID
		s.record(func() { delete(st.events, key) })
		inserted = true
		return nil
	})
	return inserted, err
}

// PaymentEvents returns the recorded gateway events.
func (s *MemoryStore) PaymentEvents() []models.PaymentEvent {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	out := make([]models.PaymentEvent, 0, len(s.state.events))
	for _, e := range s.state.events {
		out = append(out, e)
	}
	return out
}

// column getters for in-memory filtering and sorting

var roomFields = map[string]func(models.Room) interface{}{
	"name":            func(r models.Room) interface{} { return r.Name },
	"description":     func(r models.Room) interface{} { return r.Description },
	"room_type":       func(r models.Room) interface{} { return r.RoomType },
	"availability":    func(r models.Room) interface{} { return r.Availability },
	"price_per_night": func(r models.Room) interface{} { return r.PricePerNight },
	"capacity":        func(r models.Room) interface{} { return r.Capacity },
	"hotel_id":        func(r models.Room) interface{} { return r.HotelID },
	"created_at":      func(r models.Room) interface{} { return r.CreatedAt },
	"id":              func(r models.Room) interface{} { return r.ID },
}

var bookingFields = map[string]func(models.Booking) interface{}{
	"user_id":        func(b models.Booking) interface{} { return b.UserID },
	"room_id":        func(b models.Booking) interface{} { return b.RoomID },
	"status":         func(b models.Booking) interface{} { return string(b.Status) },
	"payment_status": func(b models.Booking) interface{} { return string(b.PaymentStatus) },
	"payment_method": func(b models.Booking) interface{} { return string(b.PaymentMethod) },
	"check_in_date":  func(b models.Booking) interface{} { return b.CheckInDate },
	"check_out_date": func(b models.Booking) interface{} { return b.CheckOutDate },
	"total_price":    func(b models.Booking) interface{} { return b.TotalPrice },
	"created_at":     func(b models.Booking) interface{} { return b.CreatedAt },
	"id":             func(b models.Booking) interface{} { return b.ID },
}

func listQuery[T any](items []T, fields map[string]func(T) interface{}, q utils.ListQuery) []T {
	out := items[:0:0]
	for _, item := range items {
		if matchesQuery(item, fields, q) {
			out = append(out, item)
		}
	}

	sorts := append([]utils.SortField{}, q.Sort...)
	sorts = append(sorts, utils.SortField{Column: "id"})
	sort.SliceStable(out, func(i, j int) bool {
		for _, sf := range sorts {
			get, ok := fields[sf.Column]
			if !ok {
				continue
			}
			c := compareValues(get(out[i]), get(out[j]))
			if c == 0 {
				continue
			}
			if sf.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	if q.Limit > 0 {
		start := q.Offset()
		if start >= len(out) {
			return []T{}
		}
		end := start + q.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out
}

func matchesQuery[T any](item T, fields map[string]func(T) interface{}, q utils.ListQuery) bool {
	for _, cond := range q.Conditions {
		get, ok := fields[cond.Column]
		if !ok {
			continue
		}
		c, ok := compareRaw(get(item), cond.Value)
		if !ok {
			return false
		}
		var pass bool
		switch cond.Op {
		case "=":
			pass = c == 0
		case ">=":
			pass = c >= 0
		case ">":
			pass = c > 0
		case "<=":
			pass = c <= 0
		case "<":
			pass = c < 0
		}
		if !pass {
			return false
		}
	}
	if q.Keyword != "" && len(q.Searchable) > 0 {
		kw := strings.ToLower(q.Keyword)
		hit := false
		for _, col := range q.Searchable {
			if get, ok := fields[col]; ok {
				if s, ok := get(item).(string); ok && strings.Contains(strings.ToLower(s), kw) {
					hit = true
					break
				}
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// compareRaw compares a typed column value with a query-string value; ok is
// false when raw cannot be read as the column's type.
func compareRaw(v interface{}, raw string) (int, bool) {
	switch x := v.(type) {
	case string:
		return strings.Compare(x, raw), true
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return 0, false
		}
		return compareValues(x, b), true
	case int:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return compareValues(float64(x), n), true
	case uint:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return compareValues(float64(x), n), true
	case decimal.Decimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return 0, false
		}
		return x.Cmp(d), true
	case time.Time:
		t, err := parseTime(raw)
		if err != nil {
			return 0, false
		}
		return x.Compare(t), true
	}
	return 0, false
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func compareValues(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int:
		return cmpOrdered(x, b.(int))
	case uint:
		return cmpOrdered(x, b.(uint))
	case float64:
		return cmpOrdered(x, b.(float64))
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

func cmpOrdered[T int | uint | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
