package utils

import (
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }
func (p *Page[T]) NextPageNumber() int { return p.Number + 1 }
func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }

// PageRange lists every page number, for navigation links.
func (p *Page[T]) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// ResolvePage turns the raw page parameter into a valid page number.
// Missing or non-numeric input yields the first page; out of range numbers yield the last one.
func ResolvePage(raw string, count int64, perPage int) (number, numPages int) {
	if perPage < 1 {
		perPage = 1
	}
	numPages = int((count + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		numPages = 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1, numPages
	}
	if n < 1 || n > numPages {
		return numPages, numPages
	}
	return n, numPages
}

// Paginate counts q and loads the requested page of it.
// q must carry the model, filters and ordering; preloads are applied only to the page load.
func Paginate[T any](q *gorm.DB, rawPage string, perPage int, preloads ...string) (*Page[T], error) {
	if perPage < 1 {
		perPage = 1
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count page items: %w", err)
	}
	number, numPages := ResolvePage(rawPage, total, perPage)

	page := &Page[T]{Number: number, NumPages: numPages, Count: total, PerPage: perPage, Items: []T{}}
	if total == 0 {
		return page, nil
	}
	find := q.Session(&gorm.Session{}).Offset((number - 1) * perPage).Limit(perPage)
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := find.Find(&page.Items).Error; err != nil {
		return nil, fmt.Errorf("load page %d: %w", number, err)
	}
	return page, nil
}
