// Package listquery provides the one parameterized abstraction for
// server-driven filtered, paginated lists, instead of re-deriving the
// same query/page plumbing per entity.
package listquery

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Params describes a filtered, paginated list request.
type Params struct {
	Filters map[string]string
	Page    int
	Size    int
	Sort    string
}

// Normalize clamps the page cursor and size to sane bounds.
func (p Params) Normalize() Params {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Values encodes the params as query-string values for the remote API.
func (p Params) Values() url.Values {
	p = p.Normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(p.Page))
	v.Set("size", strconv.Itoa(p.Size))
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	for key, val := range p.Filters {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v
}

// FromQuery builds Params from incoming query values, treating every
// key except the paging/sort controls as an entity filter.
func FromQuery(v url.Values) Params {
	p := Params{Filters: map[string]string{}}
	for key := range v {
		switch key {
		case "page":
			p.Page, _ = strconv.Atoi(v.Get(key))
		case "size":
			p.Size, _ = strconv.Atoi(v.Get(key))
		case "sort":
			p.Sort = v.Get(key)
		default:
			p.Filters[key] = v.Get(key)
		}
	}
	return p.Normalize()
}

// Page is one page of a server-driven list, mirroring the remote
// `data.content` envelope.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
}
