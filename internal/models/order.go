// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderPlaced     OrderStatus = "placed"
	OrderAccepted   OrderStatus = "accepted"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPlaced, OrderAccepted, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// OrderActor is the side of the order a request comes from.
type OrderActor string

const (
	ActorBuyer  OrderActor = "buyer"
	ActorSeller OrderActor = "seller"
	ActorNone   OrderActor = ""
)

type orderEdge struct {
	from, to OrderStatus
}

// orderTransitions lists who may move an order along each edge.
var orderTransitions = map[orderEdge][]OrderActor{
	{OrderPlaced, OrderAccepted}:      {ActorSeller},
	{OrderAccepted, OrderInProgress}:  {ActorSeller},
	{OrderInProgress, OrderCompleted}: {ActorBuyer},
	{OrderPlaced, OrderCancelled}:     {ActorBuyer, ActorSeller},
	{OrderAccepted, OrderCancelled}:   {ActorBuyer, ActorSeller},
	{OrderInProgress, OrderCancelled}: {ActorBuyer, ActorSeller},
}

// CanTransition reports whether the edge exists at all.
func CanTransition(from, to OrderStatus) bool {
	_, ok := orderTransitions[orderEdge{from, to}]
	return ok
}

// ActorAllowed reports whether actor may take the edge.
func ActorAllowed(from, to OrderStatus, actor OrderActor) bool {
	for _, a := range orderTransitions[orderEdge{from, to}] {
		if a == actor {
			return true
		}
	}
	return false
}

// Order keeps the gig title, package name and price it was placed with, so
// it outlives the gig and package it points at.
type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID       *uint           `gorm:"index" json:"gig_id"`
	PackageID   *uint           `gorm:"index" json:"package_id"`
	GigTitle    string          `gorm:"type:varchar(255);not null;default:''" json:"gig_title"`
	PackageName PackageName     `gorm:"type:varchar(20);not null;default:''" json:"package_name"`
	BuyerID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"buyer_id"`
	SellerID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"seller_id"`
	Description string          `gorm:"type:text" json:"description"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'placed';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Gig           *Gig                `gorm:"foreignKey:GigID;constraint:OnDelete:SET NULL" json:"gig,omitempty"`
	Package       *GigPackage         `gorm:"foreignKey:PackageID;constraint:OnDelete:SET NULL" json:"package,omitempty"`
	Buyer         *User               `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Seller        *User               `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Milestones    []OrderMilestone    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
	Attachments   []OrderAttachment   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
	Cancellations []OrderCancellation `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"cancellations,omitempty"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderPlaced
	}
	return nil
}

// ActorFor maps a user to their side of the order.
func (o *Order) ActorFor(userID uuid.UUID) OrderActor {
	switch userID {
	case o.BuyerID:
		return ActorBuyer
	case o.SellerID:
		return ActorSeller
	}
	return ActorNone
}

type OrderMilestone struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"order_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type OrderAttachment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	UploadedBy uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	File       string    `gorm:"not null" json:"file"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderCancellation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	RequestedBy uuid.UUID `gorm:"type:uuid;not null" json:"requested_by"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	IsDispute   bool      `gorm:"not null;default:false" json:"is_dispute"`
	CreatedAt   time.Time `json:"created_at"`
}
