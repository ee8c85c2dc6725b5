package utils

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int
	Limit int
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePagination reads page and limit query values. Empty values fall back
// to page 1 and DefaultPageLimit; anything else must be a positive integer.
func ParsePagination(page, limit string) (Pagination, error) {
	p := Pagination{Page: 1, Limit: DefaultPageLimit}
	var invalid []string

	if page = strings.TrimSpace(page); page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			invalid = append(invalid, "page must be a positive integer")
		} else {
			p.Page = n
		}
	}
	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			invalid = append(invalid, "limit must be a positive integer")
		} else {
			p.Limit = n
		}
	}
	if len(invalid) > 0 {
		return p, NewValidationError("Invalid page or limit value", invalid...)
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p, nil
}

// PageResult is one page of a filtered listing.
type PageResult[T any] struct {
	Data             []T   `json:"data"`
	CountOfDocuments int64 `json:"count_of_documents"`
	TotalPages       int   `json:"total_pages"`
	CurrentPage      int   `json:"current_page"`
}

func NewPageResult[T any](data []T, count int64, p Pagination) PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Data:             data,
		CountOfDocuments: count,
		TotalPages:       TotalPages(count, p.Limit),
		CurrentPage:      p.Page,
	}
}

// TotalPages is ceil(count/limit).
func TotalPages(count int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / float64(limit)))
}
