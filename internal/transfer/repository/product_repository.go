package repository

import (
	"context"
	"errors"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"gorm.io/gorm"
)

// ProductRepository 商品仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID 按公司范围查找
func (r *ProductRepository) FindByID(ctx context.Context, companyID, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
