package repository

import (
	"context"

	"github.com/smallbiznis/recipecost/internal/purchase/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, purchase *domain.Purchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id int64) (*domain.Purchase, error) {
	var item domain.Purchase
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID int64, filter domain.ListFilter) ([]domain.Purchase, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Purchase{}).
		Where("org_id = ?", orgID)
	if filter.From != nil {
		stmt = stmt.Where("purchase_date >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("purchase_date < ?", *filter.To)
	}

	var items []domain.Purchase
	if err := stmt.Order("purchase_date DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, purchaseIDs []int64) ([]domain.Item, error) {
	if len(purchaseIDs) == 0 {
		return nil, nil
	}
	var items []domain.Item
	err := db.WithContext(ctx).
		Where("purchase_id IN ?", purchaseIDs).
		Order("purchase_id ASC").
		Order("position ASC").
		Find(&items).Error
	return items, err
}
