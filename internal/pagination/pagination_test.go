package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Params{Page: 0, Limit: 500}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = Params{Page: 3, Limit: 10}.Normalize()
	assert.Equal(t, 20, p.Offset())

	p = Params{Page: math.MaxInt, Limit: 20}.Normalize()
	assert.Equal(t, MaxPage, p.Page)
	assert.Positive(t, p.Offset())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(Params{Page: 1, Limit: 10}, 21)
	assert.Equal(t, 3, m.TotalPages)

	m = NewMeta(Params{Page: 1, Limit: 10}, 0)
	assert.Equal(t, 0, m.TotalPages)
}
