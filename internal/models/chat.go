// internal/models/chat.go
package models

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a one-to-one thread; User1ID always sorts before User2ID
// so each pair maps to a single row.
type Conversation struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	User1ID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair" json:"user1_id"`
	User2ID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_pair;index" json:"user2_id"`

	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User1    *User     `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2    *User     `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// OrderedPair returns a and b sorted by byte value.
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func (c *Conversation) HasMember(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message represents a message in a conversation
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index" json:"sender_id"`
	Type           string     `gorm:"default:'text'" json:"type"` // text, system
	Content        string     `gorm:"type:text" json:"content"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Sender      *User               `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Attachments []MessageAttachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Type == "" {
		m.Type = "text"
	}
	return nil
}

type MessageAttachment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uuid.UUID `gorm:"type:uuid;index;not null" json:"message_id"`
	FileName  string    `gorm:"type:varchar(255)" json:"file_name"`
	File      string    `gorm:"not null" json:"file"`
	CreatedAt time.Time `json:"created_at"`
}
