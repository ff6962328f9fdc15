package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFieldErrorsErr(t *testing.T) {
	errs := FieldErrors{}
	assert.NoError(t, errs.Err())

	errs.Add("bio", "too short")
	errs.Add("bio", "required")
	err := errs.Err()

	var ae *Error
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, KindValidation, ae.Kind)
	assert.Equal(t, []string{"too short", "required"}, ae.Fields["bio"])
}

func TestMergePrefixesKeys(t *testing.T) {
	errs := FieldErrors{}
	errs.Merge("packages[0]", FieldErrors{"price": {"must be positive"}})
	assert.Equal(t, []string{"must be positive"}, errs["packages[0].price"])
}

func TestIsMatchesOnCode(t *testing.T) {
	wrapped := fmt.Errorf("rate order: %w", ErrDuplicateRating)
	assert.ErrorIs(t, wrapped, ErrDuplicateRating)
	assert.NotErrorIs(t, wrapped, ErrAlreadySeller)
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "order", nil))

	nf := As(FromDB(gorm.ErrRecordNotFound, "order", nil))
	assert.Equal(t, KindNotFound, nf.Kind)
	assert.Equal(t, "order not found", nf.Message)

	dup := FromDB(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "rating", ErrDuplicateRating)
	assert.ErrorIs(t, dup, ErrDuplicateRating)

	generic := As(FromDB(gorm.ErrDuplicatedKey, "skill", nil))
	assert.Equal(t, KindConflict, generic.Kind)

	internal := As(FromDB(errors.New("conn reset"), "order", nil))
	assert.Equal(t, KindInternal, internal.Kind)
}
