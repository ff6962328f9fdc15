// Package apperr holds the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindPermission
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Codes for the domain failures callers match on.
const (
	CodeValidation        = "validation_error"
	CodeAlreadySeller     = "already_seller"
	CodeUnverified        = "email_unverified"
	CodeNotASeller        = "not_a_seller"
	CodeNotOwner          = "not_owner"
	CodeNotParty          = "not_order_party"
	CodeNotMember         = "not_conversation_member"
	CodeDuplicateRating   = "duplicate_rating"
	CodeDuplicate         = "duplicate"
	CodeInUse             = "in_use"
	CodeInvalidTransition = "invalid_transition"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeInternal          = "internal_error"
)

// FieldErrors maps a request field to its messages.
type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e FieldErrors) Merge(prefix string, other FieldErrors) {
	for k, msgs := range other {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		e[key] = append(e[key], msgs...)
	}
}

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// Err returns nil when no field failed, otherwise a validation error.
func (e FieldErrors) Err() error {
	if e.Empty() {
		return nil
	}
	return Validation(e)
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  FieldErrors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so callers can write errors.Is(err, apperr.ErrDuplicateRating).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrAlreadySeller   = &Error{Kind: KindConflict, Code: CodeAlreadySeller, Message: "user is already a seller"}
	ErrUnverified      = &Error{Kind: KindPermission, Code: CodeUnverified, Message: "email address is not verified"}
	ErrNotASeller      = &Error{Kind: KindPermission, Code: CodeNotASeller, Message: "user is not a seller"}
	ErrDuplicateRating = &Error{Kind: KindConflict, Code: CodeDuplicateRating, Message: "rating already submitted"}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
)

func Validation(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "validation error", Fields: fields}
}

// Field is a one-field validation error.
func Field(field, msg string) *Error {
	f := FieldErrors{}
	f.Add(field, msg)
	return Validation(f)
}

func Permission(code, msg string) *Error {
	return &Error{Kind: KindPermission, Code: code, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func Conflict(code, field, msg string) *Error {
	e := &Error{Kind: KindConflict, Code: code, Message: msg}
	if field != "" {
		e.Fields = FieldErrors{field: {msg}}
	}
	return e
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error, wrapping anything else as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// FromDB translates gorm sentinel errors. what names the missing record,
// dup is returned for unique-index violations.
func FromDB(err error, what string, dup *Error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if dup != nil {
			return dup
		}
		return Conflict(CodeDuplicate, "", what+" already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Conflict(CodeInUse, "", what+" is referenced by other records")
	}
	return Internal(err)
}
