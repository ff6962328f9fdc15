// Package earnings keeps the seller balance and its ledger in step.
package earnings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/pagination"
)

var (
	ErrNonPositiveAmount   = errors.New("amount must be greater than zero")
	ErrInsufficientBalance = &apperr.Error{Kind: apperr.KindConflict, Code: "insufficient_balance", Message: "Insufficient balance"}
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Credit adds amount to the seller's balance and records a ledger entry.
// It must run inside the caller's transaction.
func (s *Service) Credit(tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID, description string) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	res := tx.Model(&models.SellerProfile{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("seller profile")
	}

	return tx.Create(&models.EarningEntry{
		UserID:      userID,
		Amount:      amount,
		Type:        models.EarningCredit,
		Description: description,
		ReferenceID: &referenceID,
	}).Error
}

// Withdraw debits the balance; it never goes negative.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (*models.EarningEntry, error) {
	if !amount.IsPositive() {
		return nil, apperr.Field("amount", "Amount must be greater than zero")
	}

	var entry *models.EarningEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.SellerProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&p).Error; err != nil {
			return err
		}
		if p.Balance.LessThan(amount) {
			return ErrInsufficientBalance
		}
		if err := tx.Model(&p).Update("balance", p.Balance.Sub(amount)).Error; err != nil {
			return err
		}
		entry = &models.EarningEntry{
			UserID:      userID,
			Amount:      amount,
			Type:        models.EarningDebit,
			Description: description,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "seller profile", nil)
	}
	return entry, nil
}

type Page struct {
	Items []models.EarningEntry `json:"items"`
	Meta  pagination.Meta       `json:"meta"`
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, p pagination.Params) (*Page, error) {
	p = p.Normalize()
	q := s.DB.WithContext(ctx).Model(&models.EarningEntry{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	out := &Page{Items: []models.EarningEntry{}, Meta: pagination.NewMeta(p, total)}
	if err := q.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&out.Items).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Dashboard is the seller's summary card.
type Dashboard struct {
	OrdersByStatus     map[models.OrderStatus]int64 `json:"orders_by_status"`
	ActiveOrders       int64                        `json:"active_orders"`
	CompletedThisMonth int64                        `json:"completed_this_month"`
	ActiveGigs         int64                        `json:"active_gigs"`
	UnreadMessages     int64                        `json:"unread_messages"`
	TotalEarnings      decimal.Decimal              `json:"total_earnings"`
	Balance            decimal.Decimal              `json:"balance"`
	AverageRating      float64                      `json:"average_rating"`
	RatingCount        int64                        `json:"rating_count"`
}

func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	db := s.DB.WithContext(ctx)

	var p models.SellerProfile
	if err := db.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, apperr.FromDB(err, "seller profile", nil)
	}
	d := &Dashboard{Balance: p.Balance, OrdersByStatus: map[models.OrderStatus]int64{}}

	var byStatus []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("seller_id = ?", userID).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range byStatus {
		d.OrdersByStatus[row.Status] = row.Count
		if !row.Status.Terminal() {
			d.ActiveOrders += row.Count
		}
	}

	monthStart := now.BeginningOfMonth()
	if err := db.Model(&models.Order{}).
		Where("seller_id = ? AND status = ? AND updated_at >= ?", userID, models.OrderCompleted, monthStart).
		Count(&d.CompletedThisMonth).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := db.Model(&models.Gig{}).
		Where("seller_id = ? AND status = ?", p.ID, models.GigActive).
		Count(&d.ActiveGigs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := db.Table("messages").
		Joins("JOIN conversations ON messages.conversation_id = conversations.id").
		Where("conversations.user1_id = ? OR conversations.user2_id = ?", userID, userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&d.UnreadMessages).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := db.Model(&models.EarningEntry{}).
		Where("user_id = ? AND type = ?", userID, models.EarningCredit).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&d.TotalEarnings); err != nil {
		return nil, apperr.Internal(err)
	}

	var stats struct {
		Avg   float64
		Count int64
	}
	if err := db.Model(&models.OrderRating{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("seller_id = ?", userID).
		Scan(&stats).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	d.AverageRating, d.RatingCount = stats.Avg, stats.Count
	return d, nil
}
