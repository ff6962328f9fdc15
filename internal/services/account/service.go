// Package account implements identity and the role/profile controller:
// registration, email verification, becoming a seller, role switching and
// the seller profile aggregate.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

type Service struct {
	DB      *gorm.DB
	Rules   models.CompletenessRules
	Storage storage.Storage
}

func NewService(db *gorm.DB, rules models.CompletenessRules, store storage.Storage) *Service {
	return &Service{DB: db, Rules: rules, Storage: store}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	errs := apperr.FieldErrors{}
	if err := s.checkUnique(ctx, uuid.Nil, "username", username, errs); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, uuid.Nil, "email", email, errs); err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeDuplicate, Message: "account already exists", Fields: errs}
	}

	pw, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u := &models.User{
		Username:    username,
		Email:       email,
		Password:    pw,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		CurrentRole: models.RoleBuyer,
		IsActive:    true,
	}
	if err := s.DB.WithContext(ctx).Create(u).Error; err != nil {
		return nil, apperr.FromDB(err, "user", apperr.Conflict(apperr.CodeDuplicate, "username", "Username or email already registered"))
	}
	return u, nil
}

func (s *Service) checkUnique(ctx context.Context, self uuid.UUID, column, value string, errs apperr.FieldErrors) error {
	var n int64
	q := s.DB.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value)
	if self != uuid.Nil {
		q = q.Where("id <> ?", self)
	}
	if err := q.Count(&n).Error; err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		errs.Add(column, "A user with that "+column+" already exists")
	}
	return nil
}

var errBadCredentials = &apperr.Error{Kind: apperr.KindUnauthorized, Code: "invalid_credentials", Message: "Invalid username/email or password"}

// Authenticate accepts either the username or the email as login.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	var u models.User
	err := s.DB.WithContext(ctx).
		Where("email = ? OR username = ?", strings.ToLower(login), login).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !utils.CheckPassword(u.Password, password) {
		return nil, errBadCredentials
	}
	if !u.IsActive {
		return nil, apperr.Permission("inactive_account", "Account is disabled")
	}
	return &u, nil
}

func (s *Service) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, apperr.FromDB(err, "user", nil)
	}
	return &u, nil
}

func (s *Service) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, apperr.FromDB(err, "user", nil)
	}
	return &u, nil
}

// VerifyEmail flips the flag only while the address still matches the one
// the token was issued for.
func (s *Service) VerifyEmail(ctx context.Context, userID uuid.UUID, email string) (*models.User, error) {
	var out *models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if u.Email != strings.ToLower(email) {
			return apperr.Field("token", "Verification link is no longer valid for this account")
		}
		if !u.IsEmailVerified {
			if err := tx.Model(u).Update("is_email_verified", true).Error; err != nil {
				return err
			}
			u.IsEmailVerified = true
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, apperr.FromDB(err, "user", nil)
	}
	return out, nil
}

// ResetPassword accepts a reset link only while the account still has the
// email and password hash the link was issued against, so each link works once.
func (s *Service) ResetPassword(ctx context.Context, userID uuid.UUID, email, stamp, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if u.Email != strings.ToLower(email) || utils.PasswordStamp(u.Password) != stamp {
			return apperr.Field("token", "Reset link is invalid or has expired")
		}
		return tx.Model(u).Update("password", hash).Error
	})
	return apperr.FromDB(err, "user", nil)
}

type UserPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	ProfilePicture *string
}

// UpdateUser applies the patch and recomputes IsProfileSet. emailChanged
// tells the caller to send a fresh verification link.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, p UserPatch) (u *models.User, emailChanged bool, err error) {
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err = lockUser(tx, userID)
		if err != nil {
			return err
		}
		if p.FirstName != nil {
			u.FirstName = strings.TrimSpace(*p.FirstName)
		}
		if p.LastName != nil {
			u.LastName = strings.TrimSpace(*p.LastName)
		}
		if p.ProfilePicture != nil {
			u.ProfilePicture = strings.TrimSpace(*p.ProfilePicture)
		}
		if p.Email != nil && u.ChangeEmail(*p.Email) {
			errs := apperr.FieldErrors{}
			if err := s.checkUniqueTx(tx, u.ID, u.Email, errs); err != nil {
				return err
			}
			if !errs.Empty() {
				return &apperr.Error{Kind: apperr.KindConflict, Code: apperr.CodeDuplicate, Message: "email already registered", Fields: errs}
			}
			emailChanged = true
		}
		u.RecomputeProfileSet()
		return tx.Model(u).Select("first_name", "last_name", "profile_picture", "email", "is_email_verified", "is_profile_set").Updates(u).Error
	})
	if err != nil {
		return nil, false, apperr.FromDB(err, "user", apperr.Conflict(apperr.CodeDuplicate, "email", "A user with that email already exists"))
	}
	return u, emailChanged, nil
}

func (s *Service) checkUniqueTx(tx *gorm.DB, self uuid.UUID, email string, errs apperr.FieldErrors) error {
	var n int64
	if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, self).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		errs.Add("email", "A user with that email already exists")
	}
	return nil
}

func lockUser(tx *gorm.DB, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

type GoogleProfile struct {
	Email         string
	VerifiedEmail bool
	FirstName     string
	LastName      string
	Picture       string
}

// GoogleLogin finds the user by email or creates one with an unusable
// random password. A Google-verified address marks the email verified.
func (s *Service) GoogleLogin(ctx context.Context, gp GoogleProfile) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(gp.Email))
	if email == "" {
		return nil, apperr.Field("email", "Google did not return an email address")
	}

	var u models.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("email = ?", email).First(&u).Error
		if err == nil {
			if gp.VerifiedEmail && !u.IsEmailVerified {
				u.IsEmailVerified = true
				return tx.Model(&u).Update("is_email_verified", true).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		username, err := freeUsername(tx, email)
		if err != nil {
			return err
		}
		pw, err := utils.HashPassword(uuid.NewString())
		if err != nil {
			return err
		}
		u = models.User{
			Username:        username,
			Email:           email,
			Password:        pw,
			FirstName:       strings.TrimSpace(gp.FirstName),
			LastName:        strings.TrimSpace(gp.LastName),
			ProfilePicture:  strings.TrimSpace(gp.Picture),
			IsEmailVerified: gp.VerifiedEmail,
			IsActive:        true,
			CurrentRole:     models.RoleBuyer,
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return nil, apperr.FromDB(err, "user", nil)
	}
	if !u.IsActive {
		return nil, apperr.Permission("inactive_account", "Account is disabled")
	}
	return &u, nil
}

// freeUsername derives a username from the email's local part, adding a
// short suffix when it is taken.
func freeUsername(tx *gorm.DB, email string) (string, error) {
	base := strings.ReplaceAll(utils.Slugify(strings.SplitN(email, "@", 2)[0]), "-", "_")
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 0; i < 5; i++ {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = base + "_" + uuid.NewString()[:6]
	}
	return base + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""), nil
}
