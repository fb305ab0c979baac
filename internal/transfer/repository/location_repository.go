package repository

import (
	"context"
	"errors"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"gorm.io/gorm"
)

// LocationRepository 位置仓库（门店 + 仓库统一）
type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// FindByRef 按公司范围 + 类型 + ID 查找
func (r *LocationRepository) FindByRef(ctx context.Context, companyID string, ref entity.LocationRef) (*entity.Location, error) {
	var loc entity.Location
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ? AND type = ?", ref.ID, companyID, ref.Type).
		First(&loc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loc, nil
}

// ListByCompany 公司全部位置
func (r *LocationRepository) ListByCompany(ctx context.Context, companyID string) ([]entity.Location, error) {
	var items []entity.Location
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name").
		Find(&items).Error
	return items, err
}

// TransferLocationRepository 调拨路线仓库
type TransferLocationRepository struct {
	db *gorm.DB
}

func NewTransferLocationRepository(db *gorm.DB) *TransferLocationRepository {
	return &TransferLocationRepository{db: db}
}

// FindRoute 查路线配置，未配置返回 ErrNotFound（调用方按默认策略处理）
func (r *TransferLocationRepository) FindRoute(ctx context.Context, companyID string, from, to entity.LocationRef) (*entity.TransferLocation, error) {
	var route entity.TransferLocation
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND from_location_type = ? AND from_location_id = ? AND to_location_type = ? AND to_location_id = ?",
			companyID, from.Type, from.ID, to.Type, to.ID).
		First(&route).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &route, nil
}
