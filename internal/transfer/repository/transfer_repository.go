package repository

import (
	"context"
	"errors"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"gorm.io/gorm"
)

// TransferRequestRepository 调拨单仓库
type TransferRequestRepository struct {
	db *gorm.DB
}

func NewTransferRequestRepository(db *gorm.DB) *TransferRequestRepository {
	return &TransferRequestRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *TransferRequestRepository) WithTx(tx *gorm.DB) *TransferRequestRepository {
	return &TransferRequestRepository{db: tx}
}

func (r *TransferRequestRepository) Create(ctx context.Context, req *entity.TransferRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// FindByID 按公司范围查找，跨公司一律返回 ErrNotFound（租户隔离在查询边界生效）
func (r *TransferRequestRepository) FindByID(ctx context.Context, companyID, id string) (*entity.TransferRequest, error) {
	var req entity.TransferRequest
	err := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// UpdateWithVersion CAS 更新：版本号不匹配返回 ErrVersionConflict。
// 用 Select("*") 保证零值字段（如释放后的预留量）也会写入。
func (r *TransferRequestRepository) UpdateWithVersion(ctx context.Context, req *entity.TransferRequest) error {
	prev := req.Version
	req.Version = prev + 1
	req.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Model(&entity.TransferRequest{}).
		Where("id = ? AND version = ?", req.ID, prev).
		Select("*").Omit("id", "created_at").
		Updates(req)
	if res.Error != nil {
		req.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		req.Version = prev
		return ErrVersionConflict
	}
	return nil
}

// ListFilter 列表过滤条件
type ListFilter struct {
	Status      string
	StoreID     string
	WarehouseID string
}

// List 分页列表，createdAt 倒序
func (r *TransferRequestRepository) List(ctx context.Context, companyID string, filter ListFilter, page, pageSize int) ([]entity.TransferRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&entity.TransferRequest{}).
		Where("company_id = ?", companyID)

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StoreID != "" {
		q = q.Where(
			"(from_location_type = ? AND from_location_id = ?) OR (to_location_type = ? AND to_location_id = ?)",
			entity.LocationTypeStore, filter.StoreID, entity.LocationTypeStore, filter.StoreID,
		)
	}
	if filter.WarehouseID != "" {
		q = q.Where(
			"(from_location_type = ? AND from_location_id = ?) OR (to_location_type = ? AND to_location_id = ?)",
			entity.LocationTypeWarehouse, filter.WarehouseID, entity.LocationTypeWarehouse, filter.WarehouseID,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []entity.TransferRequest
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// PendingApproval 待审批列表，按优先级再按创建时间排序
func (r *TransferRequestRepository) PendingApproval(ctx context.Context, companyID string) ([]entity.TransferRequest, error) {
	var items []entity.TransferRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, entity.TransferStatusPending).
		Order("CASE priority WHEN 'URGENT' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END").
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

// SumOpenReservations 源位置上 APPROVED/READY 调拨单的 approved_quantity 合计。
// IN_TRANSIT 不计入：取货时库存已从 current_quantity 扣减。
func (r *TransferRequestRepository) SumOpenReservations(ctx context.Context, companyID string, from entity.LocationRef, productID string) (int, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&entity.TransferRequest{}).
		Select("COALESCE(SUM(approved_quantity), 0)").
		Where("company_id = ? AND from_location_type = ? AND from_location_id = ? AND product_id = ?",
			companyID, from.Type, from.ID, productID).
		Where("status IN ?", []string{entity.TransferStatusApproved, entity.TransferStatusReady}).
		Scan(&sum).Error
	return int(sum), err
}

// ListAll 导出用，全量按公司取（createdAt 倒序）
func (r *TransferRequestRepository) ListAll(ctx context.Context, companyID string, filter ListFilter) ([]entity.TransferRequest, error) {
	q := r.db.WithContext(ctx).
		Where("company_id = ?", companyID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var items []entity.TransferRequest
	err := q.Order("created_at DESC").Find(&items).Error
	return items, err
}
