package models

import (
	"gorm.io/gorm"
)

type Role string

const (
	RoleGuest        Role = "guest"
	RoleReceptionist Role = "receptionist"
	RoleAdmin        Role = "admin"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:255" json:"name"`
	Email    string `gorm:"uniqueIndex;size:150" json:"email"`
	Password string `gorm:"size:255" json:"-"` // bcrypt hash, never returned
	Role     Role   `gorm:"size:16;not null;default:'guest'" json:"role"`

	// set for receptionists only
	HotelID  *uint `gorm:"column:hotel_id;index" json:"hotelId,omitempty"`
	IsActive bool  `gorm:"column:is_active;not null" json:"isActive"`
}
