package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"hotel-booking/models"
	"hotel-booking/repository"
	"hotel-booking/utils"
)

var roomTypes = map[string]bool{"single": true, "double": true, "suite": true}

type RoomService struct {
	Store repository.Store
}

func NewRoomService(store repository.Store) *RoomService {
	return &RoomService{Store: store}
}

type CreateRoomInput struct {
	Name          string
	Description   string
	RoomType      string
	PricePerNight decimal.Decimal
	Capacity      int
	HotelID       uint
	// nil means available
	Availability *bool
}

func (s *RoomService) Create(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	if n := len(in.Name); n < 3 || n > 100 {
		return nil, utils.InvalidInput("Room name must be between 3 and 100 characters")
	}
	if len(in.Description) > 500 {
		return nil, utils.InvalidInput("Description cannot exceed 500 characters")
	}
	if !roomTypes[in.RoomType] {
		return nil, utils.InvalidInput("Room type must be one of: single, double, suite")
	}
	if in.PricePerNight.IsNegative() {
		return nil, utils.InvalidInput("Price must be 0 or more")
	}
	if in.Capacity < 1 {
		return nil, utils.InvalidInput("Capacity must be a positive integer")
	}
	if _, err := s.Store.FindHotel(ctx, in.HotelID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFound("Hotel not found by ID: %d", in.HotelID)
		}
		return nil, utils.Internal(err, "find hotel %d", in.HotelID)
	}

	room := &models.Room{
		Name:          in.Name,
		Description:   in.Description,
		RoomType:      in.RoomType,
		PricePerNight: in.PricePerNight.Round(2),
		Capacity:      in.Capacity,
		HotelID:       in.HotelID,
		Availability:  in.Availability == nil || *in.Availability,
	}
	if err := s.Store.CreateRoom(ctx, room); err != nil {
		return nil, utils.Internal(err, "create room")
	}
	return room, nil
}

func (s *RoomService) GetAll(ctx context.Context, q utils.ListQuery) ([]models.Room, error) {
	rooms, err := s.Store.ListRooms(ctx, q)
	if err != nil {
		return nil, utils.Internal(err, "list rooms")
	}
	return rooms, nil
}

func (s *RoomService) GetByID(ctx context.Context, id uint) (*models.Room, error) {
	room, err := s.Store.FindRoom(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFound("No room found with that ID")
		}
		return nil, utils.Internal(err, "find room %d", id)
	}
	return room, nil
}
