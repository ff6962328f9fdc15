// Package orders runs the order lifecycle: placement against a gig package,
// seller acceptance, delivery, cancellation and buyer ratings.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/pagination"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
)

const MinCancelReason = 20

type Service struct {
	DB       *gorm.DB
	Earnings *earnings.Service
	Notifier *realtime.Notifier
	Storage  storage.Storage
}

func NewService(db *gorm.DB, ledger *earnings.Service, notifier *realtime.Notifier, store storage.Storage) *Service {
	return &Service{DB: db, Earnings: ledger, Notifier: notifier, Storage: store}
}

type CreateInput struct {
	GigID       uint
	PackageID   uint
	Description string
}

// Create places an order for buyerID. Seller and total are always derived
// from the gig and package, never taken from the request.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, in CreateInput) (*models.Order, error) {
	var order *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gig models.Gig
		if err := tx.Preload("Seller").First(&gig, in.GigID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("gig")
			}
			return err
		}
		if gig.Status != models.GigActive {
			return apperr.Field("gig_id", "Gig is not accepting orders")
		}
		if gig.Seller == nil {
			return apperr.NotFound("seller profile")
		}

		var pkg models.GigPackage
		err := tx.Where("id = ? AND gig_id = ?", in.PackageID, gig.ID).First(&pkg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Field("package_id", "Selected package does not belong to this gig")
		}
		if err != nil {
			return err
		}

		if gig.Seller.UserID == buyerID {
			return apperr.Permission(apperr.CodeNotOwner, "You cannot order your own gig")
		}

		order = &models.Order{
			GigID:       &gig.ID,
			PackageID:   &pkg.ID,
			GigTitle:    gig.Title,
			PackageName: pkg.PackageName,
			BuyerID:     buyerID,
			SellerID:    gig.Seller.UserID,
			Description: strings.TrimSpace(in.Description),
			TotalAmount: pkg.Price,
			Status:      models.OrderPlaced,
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "order", nil)
	}

	log.Infof("order %s placed on gig %d by %s", order.ID, in.GigID, buyerID)
	s.Notifier.Notify(ctx, realtime.Event{Type: realtime.EventOrderCreated, Data: order}, order.SellerID)
	return order, nil
}

type ListFilter struct {
	As     string
	Status string
	pagination.Params
}

type Page struct {
	Items []models.Order  `json:"items"`
	Meta  pagination.Meta `json:"meta"`
}

// List returns only orders userID is a party to.
func (s *Service) List(ctx context.Context, userID uuid.UUID, f ListFilter) (*Page, error) {
	pg := f.Params.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.Order{})
	switch strings.ToLower(f.As) {
	case "":
		q = q.Where("buyer_id = ? OR seller_id = ?", userID, userID)
	case string(models.ActorBuyer):
		q = q.Where("buyer_id = ?", userID)
	case string(models.ActorSeller):
		q = q.Where("seller_id = ?", userID)
	default:
		return nil, apperr.Field("as", "Must be 'buyer' or 'seller'")
	}
	if f.Status != "" {
		st := models.OrderStatus(f.Status)
		if !st.Valid() {
			return nil, apperr.Field("status", "Unknown order status")
		}
		q = q.Where("status = ?", st)
	}

	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	out := &Page{Items: []models.Order{}, Meta: pagination.NewMeta(pg, total)}

	err := q.Preload("Gig").Preload("Package").
		Order("created_at DESC").
		Offset(pg.Offset()).Limit(pg.Limit).
		Find(&out.Items).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Get hides orders from non-parties behind a not-found.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := s.DB.WithContext(ctx).
		Preload("Gig").Preload("Package").Preload("Buyer").Preload("Seller").
		Preload("Milestones", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Cancellations").
		Where("id = ? AND (buyer_id = ? OR seller_id = ?)", orderID, userID, userID).
		First(&o).Error
	if err != nil {
		return nil, apperr.FromDB(err, "order", nil)
	}
	return &o, nil
}

// Transition moves an order along a non-cancel edge. Completion credits the
// seller's earnings in the same transaction.
func (s *Service) Transition(ctx context.Context, userID, orderID uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, apperr.Field("status", "Unknown order status")
	}
	if to == models.OrderCancelled {
		return nil, apperr.Field("status", "Use the cancel action to cancel an order")
	}

	var o *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = lockParty(tx, userID, orderID); err != nil {
			return err
		}
		if err := checkTransition(o, userID, to); err != nil {
			return err
		}
		if err := tx.Model(o).Update("status", to).Error; err != nil {
			return err
		}
		o.Status = to

		if to == models.OrderCompleted {
			desc := fmt.Sprintf("Order %s completed", o.ID)
			return s.Earnings.Credit(tx, o.SellerID, o.TotalAmount, o.ID, desc)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "order", nil)
	}

	log.Infof("order %s moved to %s by %s", o.ID, to, userID)
	s.notifyStatus(ctx, o)
	return o, nil
}

type CancelInput struct {
	Reason    string
	IsDispute bool
}

// Cancel records why the order stopped and marks it cancelled atomically.
func (s *Service) Cancel(ctx context.Context, userID, orderID uuid.UUID, in CancelInput) (*models.OrderCancellation, error) {
	reason := strings.TrimSpace(in.Reason)
	if len([]rune(reason)) < MinCancelReason {
		return nil, apperr.Field("reason", fmt.Sprintf("Reason must be at least %d characters long", MinCancelReason))
	}

	var (
		o   *models.Order
		rec *models.OrderCancellation
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if o, err = lockParty(tx, userID, orderID); err != nil {
			return err
		}
		if err := checkTransition(o, userID, models.OrderCancelled); err != nil {
			return err
		}
		rec = &models.OrderCancellation{
			OrderID:     o.ID,
			RequestedBy: userID,
			Reason:      reason,
			IsDispute:   in.IsDispute,
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		o.Status = models.OrderCancelled
		return tx.Model(o).Update("status", o.Status).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "order", nil)
	}

	if in.IsDispute {
		log.Warnf("order %s cancelled with dispute by %s", o.ID, userID)
	} else {
		log.Infof("order %s cancelled by %s", o.ID, userID)
	}
	s.notifyStatus(ctx, o)
	return rec, nil
}

func checkTransition(o *models.Order, userID uuid.UUID, to models.OrderStatus) error {
	if !models.CanTransition(o.Status, to) {
		return apperr.Field("status", fmt.Sprintf("Cannot move order from %s to %s", o.Status, to))
	}
	if !models.ActorAllowed(o.Status, to, o.ActorFor(userID)) {
		return apperr.Permission(apperr.CodeNotParty, fmt.Sprintf("You are not allowed to move this order to %s", to))
	}
	return nil
}

// lockParty loads the order FOR UPDATE, scoped to its parties.
func lockParty(tx *gorm.DB, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND (buyer_id = ? OR seller_id = ?)", orderID, userID, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) notifyStatus(ctx context.Context, o *models.Order) {
	s.Notifier.Notify(ctx, realtime.Event{
		Type: realtime.EventOrderUpdated,
		Data: map[string]interface{}{"order_id": o.ID, "status": o.Status},
	}, o.BuyerID, o.SellerID)
}
