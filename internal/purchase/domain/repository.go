package domain

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ListFilter struct {
	From *time.Time
	To   *time.Time
}

// ParseRange turns inclusive date bounds into a half-open repository filter.
func ParseRange(from, to string) (ListFilter, error) {
	var filter ListFilter
	if raw := strings.TrimSpace(from); raw != "" {
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		filter.From = &t
	}
	if raw := strings.TrimSpace(to); raw != "" {
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return filter, ErrInvalidDateRange
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, ErrInvalidDateRange
	}
	return filter, nil
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*Purchase, error)
	List(ctx context.Context, db *gorm.DB, orgID int64, filter ListFilter) ([]Purchase, error)
	ListItems(ctx context.Context, db *gorm.DB, purchaseIDs []int64) ([]Item, error)
}
