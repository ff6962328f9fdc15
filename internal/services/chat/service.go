// Package chat holds one-to-one conversations between users and pushes new
// messages to both members through the realtime notifier.
package chat

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
)

const MaxMessageLength = 5000

type Service struct {
	DB       *gorm.DB
	Notifier *realtime.Notifier
	Storage  storage.Storage
}

func NewService(db *gorm.DB, notifier *realtime.Notifier, store storage.Storage) *Service {
	return &Service{DB: db, Notifier: notifier, Storage: store}
}

// Open returns the conversation between userID and otherID, creating it on
// first contact. created reports whether a row was inserted.
func (s *Service) Open(ctx context.Context, userID, otherID uuid.UUID) (conv *models.Conversation, created bool, err error) {
	if otherID == uuid.Nil {
		return nil, false, apperr.Field("user_id", "user_id is required")
	}
	if otherID == userID {
		return nil, false, apperr.Field("user_id", "You cannot start a conversation with yourself")
	}

	db := s.DB.WithContext(ctx)
	if err := db.Select("id").First(&models.User{}, "id = ? AND is_active = ?", otherID, true).Error; err != nil {
		return nil, false, apperr.FromDB(err, "user", nil)
	}

	a, b := models.OrderedPair(userID, otherID)
	c := models.Conversation{User1ID: a, User2ID: b, LastMessageAt: time.Now()}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c)
	if res.Error != nil {
		return nil, false, apperr.Internal(res.Error)
	}

	var out models.Conversation
	if err := db.Where("user1_id = ? AND user2_id = ?", a, b).First(&out).Error; err != nil {
		return nil, false, apperr.Internal(err)
	}
	return &out, res.RowsAffected > 0, nil
}

type UserMini struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	Online         bool      `json:"online"`
}

type Preview struct {
	ID            uuid.UUID       `json:"id"`
	Other         *UserMini       `json:"other_user"`
	LastMessage   *models.Message `json:"last_message"`
	LastMessageAt time.Time       `json:"last_message_at"`
	UnreadCount   int64           `json:"unread_count"`
}

// Conversations lists userID's threads, most recent activity first.
func (s *Service) Conversations(ctx context.Context, userID uuid.UUID) ([]Preview, error) {
	db := s.DB.WithContext(ctx)
	var convs []models.Conversation
	err := db.
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]Preview, 0, len(convs))
	if len(convs) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}

	var last []models.Message
	err = db.Raw(`SELECT DISTINCT ON (conversation_id) * FROM messages
		WHERE conversation_id IN ? ORDER BY conversation_id, created_at DESC`, ids).
		Scan(&last).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	lastBy := make(map[uuid.UUID]models.Message, len(last))
	for _, m := range last {
		lastBy[m.ConversationID] = m
	}

	var unread []struct {
		ConversationID uuid.UUID
		N              int64
	}
	err = db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS n").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = false", ids, userID).
		Group("conversation_id").
		Scan(&unread).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	unreadBy := make(map[uuid.UUID]int64, len(unread))
	for _, u := range unread {
		unreadBy[u.ConversationID] = u.N
	}

	for _, c := range convs {
		p := Preview{ID: c.ID, LastMessageAt: c.LastMessageAt, UnreadCount: unreadBy[c.ID]}
		other := c.User2
		if c.User2ID == userID {
			other = c.User1
		}
		if other != nil {
			p.Other = &UserMini{
				ID:             other.ID,
				Username:       other.Username,
				FirstName:      other.FirstName,
				LastName:       other.LastName,
				ProfilePicture: other.ProfilePicture,
			}
		}
		if m, ok := lastBy[c.ID]; ok {
			p.LastMessage = &m
		}
		out = append(out, p)
	}
	return out, nil
}

// Messages returns the whole thread oldest first and marks the other
// member's messages as read.
func (s *Service) Messages(ctx context.Context, userID, convID uuid.UUID) ([]models.Message, error) {
	if _, err := s.member(ctx, userID, convID); err != nil {
		return nil, err
	}
	out := []models.Message{}
	err := s.DB.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if _, err := s.markRead(ctx, userID, convID); err != nil {
		log.Warnf("chat: mark read %s for %s: %v", convID, userID, err)
	}
	return out, nil
}

// Send stores a message, with an optional file, and pushes it to both members.
func (s *Service) Send(ctx context.Context, userID, convID uuid.UUID, content string, file *multipart.FileHeader) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "" && file == nil:
		return nil, apperr.Field("content", "Message text or a file is required")
	case len([]rune(content)) > MaxMessageLength:
		return nil, apperr.Field("content", "Message must be at most 5000 characters")
	}
	if file != nil {
		if err := storage.ChatAttachmentRule.Check("file", file); err != nil {
			return nil, err
		}
	}

	conv, err := s.member(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ConversationID: conv.ID, SenderID: userID, Content: content}
	if file != nil {
		url, err := s.Storage.Save(ctx, "chat/attachments", file)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		msg.Attachments = []models.MessageAttachment{{FileName: filepath.Base(file.Filename), File: url}}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(conv).Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.Notifier.Notify(ctx, realtime.Event{Type: realtime.EventNewMessage, Data: msg}, conv.User1ID, conv.User2ID)
	return msg, nil
}

// MarkRead flags every unread message from the other member and returns how
// many changed.
func (s *Service) MarkRead(ctx context.Context, userID, convID uuid.UUID) (int64, error) {
	if _, err := s.member(ctx, userID, convID); err != nil {
		return 0, err
	}
	n, err := s.markRead(ctx, userID, convID)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

// UnreadTotal counts unread messages addressed to userID across all threads.
func (s *Service) UnreadTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.user1_id = ? OR conversations.user2_id = ?) AND messages.sender_id <> ? AND messages.is_read = false",
			userID, userID, userID).
		Count(&n).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}

func (s *Service) markRead(ctx context.Context, userID, convID uuid.UUID) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = false", convID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (s *Service) member(ctx context.Context, userID, convID uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	if err := s.DB.WithContext(ctx).First(&c, "id = ?", convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("conversation")
		}
		return nil, apperr.Internal(err)
	}
	if !c.HasMember(userID) {
		return nil, apperr.Permission(apperr.CodeNotMember, "You are not part of this conversation")
	}
	return &c, nil
}
