package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	}
	return "", false
}

// internal/models/user.go
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`

	FirstName      string `gorm:"type:varchar(150)" json:"first_name"`
	LastName       string `gorm:"type:varchar(150)" json:"last_name"`
	ProfilePicture string `json:"profile_picture"`

	IsSeller        bool `gorm:"not null;default:false" json:"is_seller"`
	CurrentRole     Role `gorm:"type:varchar(10);not null;default:'buyer'" json:"current_role"`
	IsEmailVerified bool `gorm:"not null;default:false" json:"is_email_verified"`
	IsProfileSet    bool `gorm:"not null;default:false" json:"is_profile_set"`
	IsActive        bool `gorm:"default:true" json:"is_active"`
	IsStaff         bool `gorm:"default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SellerProfile *SellerProfile `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"seller_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CurrentRole == "" {
		u.CurrentRole = RoleBuyer
	}
	u.RecomputeProfileSet()
	return nil
}

// RecomputeProfileSet keeps IsProfileSet true iff names, picture and email are all present.
func (u *User) RecomputeProfileSet() {
	u.IsProfileSet = strings.TrimSpace(u.FirstName) != "" &&
		strings.TrimSpace(u.LastName) != "" &&
		strings.TrimSpace(u.ProfilePicture) != "" &&
		strings.TrimSpace(u.Email) != ""
}

// ChangeEmail resets verification when the address actually changes.
func (u *User) ChangeEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == u.Email {
		return false
	}
	u.Email = email
	u.IsEmailVerified = false
	u.RecomputeProfileSet()
	return true
}

// BecomeSeller flips the capability flag and active role together.
func (u *User) BecomeSeller() error {
	if !u.IsEmailVerified {
		return apperr.ErrUnverified
	}
	if u.IsSeller {
		return apperr.ErrAlreadySeller
	}
	u.IsSeller = true
	u.CurrentRole = RoleSeller
	return nil
}

// SwitchRole reports changed=false when the user already acts in role.
func (u *User) SwitchRole(role Role) (changed bool, err error) {
	if role == RoleSeller && !u.IsSeller {
		return false, apperr.ErrNotASeller
	}
	if u.CurrentRole == role {
		return false, nil
	}
	u.CurrentRole = role
	return true, nil
}

// RevokeSeller drops seller capability and never leaves the user acting as seller.
func (u *User) RevokeSeller() {
	u.IsSeller = false
	if u.CurrentRole == RoleSeller {
		u.CurrentRole = RoleBuyer
	}
}

// FullName is the greeting name in mails, the username when no name is set.
func (u *User) FullName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}
