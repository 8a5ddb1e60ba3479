package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const maxLimit = 100

// Pagination holds pagination parameters.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit query params with sane defaults.
func ParsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	page := parseInt(c.Query("page", "1"), 1)
	limit := parseInt(c.Query("limit", strconv.Itoa(defaultLimit)), defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page <= 0 {
		page = 1
	}

	return Pagination{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Page is one page of an in-memory list.
type Page[T any] struct {
	Items []T
	Page  int
	Pages int
	Total int
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.Pages }

// Paginate slices items. A page past the end is clamped to the last one.
func Paginate[T any](items []T, p Pagination) Page[T] {
	if p.Limit <= 0 {
		p.Limit = len(items)
		if p.Limit == 0 {
			p.Limit = 1
		}
	}
	total := len(items)
	pages := (total + p.Limit - 1) / p.Limit
	if pages == 0 {
		pages = 1
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * p.Limit
	end := start + p.Limit
	if end > total {
		end = total
	}
	return Page[T]{Items: items[start:end], Page: page, Pages: pages, Total: total}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return fallback
}
