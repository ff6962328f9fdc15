package orders

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
)

type MilestoneInput struct {
	Title       string
	Description string
	DueDate     *time.Time
}

func (s *Service) AddMilestone(ctx context.Context, userID, orderID uuid.UUID, in MilestoneInput) (*models.OrderMilestone, error) {
	title := strings.TrimSpace(in.Title)
	if n := len([]rune(title)); n < 5 || n > 255 {
		return nil, apperr.Field("title", "Title must be between 5 and 255 characters")
	}

	o, err := s.party(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, apperr.Field("status", "Order is already "+string(o.Status))
	}

	m := &models.OrderMilestone{
		OrderID:     o.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

func (s *Service) Milestones(ctx context.Context, userID, orderID uuid.UUID) ([]models.OrderMilestone, error) {
	if _, err := s.party(ctx, userID, orderID); err != nil {
		return nil, err
	}
	out := []models.OrderMilestone{}
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// SetMilestoneCompleted is reserved for the seller delivering the work.
func (s *Service) SetMilestoneCompleted(ctx context.Context, userID, orderID uuid.UUID, milestoneID uint, done bool) (*models.OrderMilestone, error) {
	o, err := s.party(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.ActorFor(userID) != models.ActorSeller {
		return nil, apperr.Permission(apperr.CodeNotOwner, "Only the seller can update milestones")
	}

	var m models.OrderMilestone
	db := s.DB.WithContext(ctx)
	if err := db.Where("id = ? AND order_id = ?", milestoneID, o.ID).First(&m).Error; err != nil {
		return nil, apperr.FromDB(err, "milestone", nil)
	}
	if err := db.Model(&m).Update("is_completed", done).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	m.IsCompleted = done
	return &m, nil
}

// AddAttachment stores fh and links it to the order.
func (s *Service) AddAttachment(ctx context.Context, userID, orderID uuid.UUID, fh *multipart.FileHeader) (*models.OrderAttachment, error) {
	if err := storage.OrderAttachmentRule.Check("file", fh); err != nil {
		return nil, err
	}
	o, err := s.party(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	url, err := s.Storage.Save(ctx, "orders/attachments", fh)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	a := &models.OrderAttachment{
		OrderID:    o.ID,
		UploadedBy: userID,
		FileName:   filepath.Base(fh.Filename),
		File:       url,
		Size:       fh.Size,
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Attachments(ctx context.Context, userID, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	if _, err := s.party(ctx, userID, orderID); err != nil {
		return nil, err
	}
	out := []models.OrderAttachment{}
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) Cancellations(ctx context.Context, userID, orderID uuid.UUID) ([]models.OrderCancellation, error) {
	if _, err := s.party(ctx, userID, orderID); err != nil {
		return nil, err
	}
	out := []models.OrderCancellation{}
	if err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *Service) party(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := s.DB.WithContext(ctx).
		Where("id = ? AND (buyer_id = ? OR seller_id = ?)", orderID, userID, userID).
		First(&o).Error
	if err != nil {
		return nil, apperr.FromDB(err, "order", nil)
	}
	return &o, nil
}
