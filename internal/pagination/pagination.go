// Package pagination holds the page/limit handling shared by list endpoints.
package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
	MaxPage      = 100000
)

type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page to 1..MaxPage and limit to 1..MaxLimit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	return p
}

func (p Params) Offset() int { return (p.Page - 1) * p.Limit }

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewMeta(p Params, total int64) Meta {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}
