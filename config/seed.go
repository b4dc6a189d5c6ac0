package config

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"hotel-booking/models"
	"hotel-booking/repository"
)

const defaultSeedPassword = "password123"

// SeedDatabase fills an empty store with one hotel, a few rooms and one user per role.
func SeedDatabase(ctx context.Context, store repository.Store, log logrus.FieldLogger) error {
	count, err := store.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info("users already seeded")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultSeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	return store.Transaction(ctx, func(tx repository.Store) error {
		hotel := &models.Hotel{Name: "Nile View Hotel", Location: "Cairo", StarRating: 4}
		if err := tx.CreateHotel(ctx, hotel); err != nil {
			return fmt.Errorf("seed hotel: %w", err)
		}

		rooms := []models.Room{
			{Name: "Standard 101", Description: "Standard room with city view", RoomType: "single", PricePerNight: decimal.NewFromInt(100), Capacity: 1},
			{Name: "Superior 201", Description: "Superior room with Nile view", RoomType: "double", PricePerNight: decimal.NewFromInt(180), Capacity: 2},
			{Name: "Family 301", Description: "Family suite with balcony", RoomType: "suite", PricePerNight: decimal.RequireFromString("320.50"), Capacity: 4},
		}
		for i := range rooms {
			rooms[i].HotelID = hotel.ID
			rooms[i].Availability = true
			if err := tx.CreateRoom(ctx, &rooms[i]); err != nil {
				return fmt.Errorf("seed room %s: %w", rooms[i].Name, err)
			}
		}

		users := []models.User{
			{Name: "Admin User", Email: "admin@hotel.local", Role: models.RoleAdmin},
			{Name: "Front Desk", Email: "reception@hotel.local", Role: models.RoleReceptionist, HotelID: &hotel.ID},
			{Name: "Guest User", Email: "guest@hotel.local", Role: models.RoleGuest},
		}
		for i := range users {
			users[i].Password = string(hash)
			users[i].IsActive = true
			if err := tx.CreateUser(ctx, &users[i]); err != nil {
				return fmt.Errorf("seed user %s: %w", users[i].Email, err)
			}
		}

		log.WithFields(logrus.Fields{"hotel_id": hotel.ID, "rooms": len(rooms), "users": len(users)}).Info("database seeded")
		return nil
	})
}
