package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

const (
	MinRating       = 1
	MaxRating       = 5
	MinReviewLength = 10
)

// ValidateRating checks the score range and the optional review length.
func ValidateRating(rating int, review string) error {
	errs := apperr.FieldErrors{}
	if rating < MinRating || rating > MaxRating {
		errs.Add("rating", "Rating must be between 1 and 5")
	}
	if r := strings.TrimSpace(review); r != "" && len([]rune(r)) < MinReviewLength {
		errs.Add("review", "Review must be at least 10 characters long")
	}
	return errs.Err()
}

type OrderRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_ratings_order_buyer" json:"order_id"`
	BuyerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_order_ratings_order_buyer" json:"buyer_id"`
	SellerID  uuid.UUID `gorm:"type:uuid;index;not null" json:"seller_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Review    string    `gorm:"type:text" json:"review"`
	CreatedAt time.Time `json:"created_at"`

	Order *Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	Buyer *User  `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
}

type GigRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GigID     uint      `gorm:"not null;uniqueIndex:idx_gig_ratings_gig_buyer" json:"gig_id"`
	BuyerID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_gig_ratings_gig_buyer" json:"buyer_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Review    string    `gorm:"type:text" json:"review"`
	CreatedAt time.Time `json:"created_at"`

	Gig   *Gig  `gorm:"foreignKey:GigID;constraint:OnDelete:CASCADE" json:"-"`
	Buyer *User `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
}
