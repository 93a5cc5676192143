package listquery

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Params{Page: -1, Size: 0}.Normalize()
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, DefaultPageSize, p.Size)

	p = Params{Size: 500}.Normalize()
	assert.Equal(t, MaxPageSize, p.Size)
}

func TestValues(t *testing.T) {
	v := Params{
		Filters: map[string]string{"city": "riga", "empty": ""},
		Page:    2,
		Size:    10,
		Sort:    "name,asc",
	}.Values()

	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "10", v.Get("size"))
	assert.Equal(t, "name,asc", v.Get("sort"))
	assert.Equal(t, "riga", v.Get("city"))
	assert.False(t, v.Has("empty"), "blank filters should be dropped")
}

func TestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("page", "3")
	q.Set("size", "15")
	q.Set("sort", "stars,desc")
	q.Set("name", "grand")

	p := FromQuery(q)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 15, p.Size)
	assert.Equal(t, "stars,desc", p.Sort)
	assert.Equal(t, map[string]string{"name": "grand"}, p.Filters)
}
