// Package pagination implements the page/size listing contract shared
// by the public point feeds and the admin grids.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Point listings drive the sizing: the map sidebar loads 20 points a
// page and the admin grids never fetch more than 50 rows at once.
const (
	DefaultSize = 20
	MaxSize     = 50
)

// Query holds normalized pagination parameters.
type Query struct {
	Page int
	Size int
}

// Offset is the row offset of the first item on the page.
func (q Query) Offset() int { return (q.Page - 1) * q.Size }

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = DefaultSize
	}
	if q.Size > MaxSize {
		q.Size = MaxSize
	}
	return q
}

// FromContext reads page and size from the query string. "per_page" is
// an accepted alias for "size"; the map frontend still sends it.
func FromContext(c *gin.Context) Query {
	q := Query{
		Page: atoiDefault(c.Query("page"), 1),
		Size: atoiDefault(c.Query("size"), 0),
	}
	if q.Size == 0 {
		q.Size = atoiDefault(c.Query("per_page"), DefaultSize)
	}
	return q.normalize()
}

// Paginate applies the query to tx and fills in the listing metadata.
func Paginate[T any](tx *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	q = q.normalize()

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}
	if err := tx.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	pages := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   pages,
		Size:        q.Size,
		HasNextPage: q.Page < pages,
	}, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
