package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotel-booking/models"
	"hotel-booking/utils"
)

var nonOccupyingStatuses = []models.BookingStatus{models.BookingCancelled, models.BookingCheckedOut}

// GormStore implements Store on top of *gorm.DB (MySQL in production).
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
	return classify(err)
}

// classify turns MySQL lock errors into ErrConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		switch merr.Number {
		case 1213, 1205: // deadlock, lock wait timeout
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *GormStore) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	return s.DB.WithContext(ctx).Create(hotel).Error
}

func (s *GormStore) FindHotel(ctx context.Context, id uint) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := s.DB.WithContext(ctx).First(&hotel, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &hotel, nil
}

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	// Select("*") so availability=false is written instead of being skipped as a zero value
	return s.DB.WithContext(ctx).Select("*").Omit("Hotel").Create(room).Error
}

func (s *GormStore) FindRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (s *GormStore) LockRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, id).Error; err != nil {
		return nil, classify(notFound(err))
	}
	return &room, nil
}

func (s *GormStore) SetRoomAvailability(ctx context.Context, id uint, available bool) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", id).
		Update("availability", available)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// MySQL reports 0 affected rows when the value is unchanged
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Room{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// overlapGroup is the three-case overlap predicate against [checkIn, checkOut).
func (s *GormStore) overlapGroup(checkIn, checkOut time.Time) *gorm.DB {
	return s.DB.Session(&gorm.Session{NewDB: true}).
		Where("bookings.check_in_date >= ? AND bookings.check_in_date < ?", checkIn, checkOut).
		Or("bookings.check_out_date > ? AND bookings.check_out_date <= ?", checkIn, checkOut).
		Or("bookings.check_in_date <= ? AND bookings.check_out_date >= ?", checkIn, checkOut)
}

func (s *GormStore) HasOverlappingBooking(ctx context.Context, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("bookings.room_id = ?", roomID).
		Where("bookings.status NOT IN ?", nonOccupyingStatuses).
		Where(s.overlapGroup(checkIn, checkOut)).
		Limit(1).
		Pluck("bookings.id", &ids).Error
	if err != nil {
		return false, classify(err)
	}
	return len(ids) > 0, nil
}

func (s *GormStore) ListAvailableRooms(ctx context.Context, filter AvailableRoomsFilter) ([]models.Room, error) {
	booked := s.DB.Session(&gorm.Session{NewDB: true}).Model(&models.Booking{}).
		Select("bookings.room_id").
		Where("bookings.status NOT IN ?", nonOccupyingStatuses).
		Where(s.overlapGroup(filter.CheckIn, filter.CheckOut))

	q := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("rooms.availability = ?", true).
		Where("rooms.id NOT IN (?)", booked)
	if filter.HotelID != nil {
		q = q.Where("rooms.hotel_id = ?", *filter.HotelID)
	}

	var rooms []models.Room
	if err := applyListQuery(q, "rooms", filter.Query).Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list available rooms: %w", err)
	}
	return rooms, nil
}

func (s *GormStore) ListRooms(ctx context.Context, q utils.ListQuery) ([]models.Room, error) {
	var rooms []models.Room
	db := s.DB.WithContext(ctx).Model(&models.Room{})
	if err := applyListQuery(db, "rooms", q).Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Select("*").Create(user).Error
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}

func (s *GormStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if err := s.DB.WithContext(ctx).Omit("Room", "User").Create(booking).Error; err != nil {
		return classify(err)
	}
	return nil
}

func (s *GormStore) SetPaymentSession(ctx context.Context, bookingID uint, sessionID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND payment_method = ?", bookingID, models.PaymentCard).
		Update("payment_session_id", sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FindBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.WithContext(ctx).Preload("Room").First(&booking, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (s *GormStore) FindBookingBySession(ctx context.Context, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.DB.WithContext(ctx).Preload("Room").
		Where("payment_session_id = ?", sessionID).
		First(&booking).Error; err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (s *GormStore) ListBookings(ctx context.Context, scope BookingScope, q utils.ListQuery) ([]models.Booking, error) {
	db := s.DB.WithContext(ctx).Model(&models.Booking{}).Preload("Room")
	if scope.UserID != nil {
		db = db.Where("bookings.user_id = ?", *scope.UserID)
	}
	if scope.HotelID != nil {
		db = db.Joins("JOIN rooms ON rooms.id = bookings.room_id").
			Where("rooms.hotel_id = ?", *scope.HotelID)
	}

	var bookings []models.Booking
	if err := applyListQuery(db, "bookings", q).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func expectScope(db *gorm.DB, expect BookingExpect) *gorm.DB {
	if len(expect.Statuses) > 0 {
		db = db.Where("status IN ?", expect.Statuses)
	}
	if len(expect.PaymentStatuses) > 0 {
		db = db.Where("payment_status IN ?", expect.PaymentStatuses)
	}
	if expect.PaymentMethod != "" {
		db = db.Where("payment_method = ?", expect.PaymentMethod)
	}
	return db
}

func (s *GormStore) UpdateBookingIf(ctx context.Context, id uint, expect BookingExpect, update BookingUpdate) (bool, error) {
	if update.Empty() {
		return false, errors.New("empty booking update")
	}
	changes := map[string]interface{}{}
	if update.Status != nil {
		changes["status"] = *update.Status
	}
	if update.PaymentStatus != nil {
		changes["payment_status"] = *update.PaymentStatus
	}

	db := s.DB.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id)
	res := expectScope(db, expect).Updates(changes)
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ListStaleCardBookings(ctx context.Context, createdBefore time.Time, limit int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.DB.WithContext(ctx).
		Where("status = ? AND payment_method = ? AND created_at < ?", models.BookingPending, models.PaymentCard, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("list stale card bookings: %w", err)
	}
	return bookings, nil
}

func (s *GormStore) PurgeBookingIf(ctx context.Context, id uint, expect BookingExpect) (bool, error) {
	db := s.DB.WithContext(ctx).Unscoped().Where("id = ?", id)
	res := expectScope(db, expect).Delete(&models.Booking{})
	if res.Error != nil {
		return false, classify(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// applyListQuery adds filter, keyword, order and pagination clauses. Columns come
// from the resource allow-list, never from raw user input.
func applyListQuery(db *gorm.DB, table string, q utils.ListQuery) *gorm.DB {
	for _, cond := range q.Conditions {
		db = db.Where(fmt.Sprintf("%s.%s %s ?", table, cond.Column, cond.Op), conditionValue(cond.Value))
	}
	if q.Keyword != "" && len(q.Searchable) > 0 {
		like := "%" + q.Keyword + "%"
		parts := make([]string, 0, len(q.Searchable))
		args := make([]interface{}, 0, len(q.Searchable))
		for _, col := range q.Searchable {
			parts = append(parts, fmt.Sprintf("%s.%s LIKE ?", table, col))
			args = append(args, like)
		}
		db = db.Where("("+strings.Join(parts, " OR ")+")", args...)
	}
	for _, sf := range q.Sort {
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Table: table, Name: sf.Column},
			Desc:   sf.Desc,
		})
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit).Offset(q.Offset())
	}
	return db
}

func conditionValue(raw string) interface{} {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}
