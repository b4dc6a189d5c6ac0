package models

import "gorm.io/gorm"

type Hotel struct {
	gorm.Model
	Name       string `gorm:"size:255;not null" json:"name"`
	Location   string `gorm:"size:255" json:"location"`
	StarRating int    `gorm:"column:star_rating" json:"starRating"`
}
