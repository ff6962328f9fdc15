package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EarningType string

const (
	EarningCredit EarningType = "credit" // order completed
	EarningDebit  EarningType = "debit"  // withdrawal
)

// EarningEntry is one ledger row against a seller's balance.
type EarningEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Type        EarningType     `gorm:"type:varchar(20);not null" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	ReferenceID *uuid.UUID      `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (e *EarningEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&SellerProfile{},
		&Education{},
		&Skill{},
		&Language{},
		&PortfolioItem{},
		&Category{},
		&SubCategory{},
		&Gig{},
		&GigPackage{},
		&GigFAQ{},
		&GigGallery{},
		&SavedGig{},
		&Order{},
		&OrderMilestone{},
		&OrderAttachment{},
		&OrderCancellation{},
		&OrderRating{},
		&GigRating{},
		&Conversation{},
		&Message{},
		&MessageAttachment{},
		&EarningEntry{},
	}
}
