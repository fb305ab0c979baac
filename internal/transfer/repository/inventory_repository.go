package repository

import (
	"context"
	"errors"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 库存台账仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *InventoryRepository) WithTx(tx *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: tx}
}

// Find 只读查找
func (r *InventoryRepository) Find(ctx context.Context, companyID string, loc entity.LocationRef, productID string) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND location_type = ? AND location_id = ? AND product_id = ?",
			companyID, loc.Type, loc.ID, productID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindForUpdate 行锁查找（SELECT ... FOR UPDATE），必须在事务内调用
func (r *InventoryRepository) FindForUpdate(ctx context.Context, companyID string, loc entity.LocationRef, productID string) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND location_type = ? AND location_id = ? AND product_id = ?",
			companyID, loc.Type, loc.ID, productID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetOrCreateForUpdate 行锁查找，不存在则惰性创建（零库存行，首次收货/预留时出现）
func (r *InventoryRepository) GetOrCreateForUpdate(ctx context.Context, companyID string, loc entity.LocationRef, productID string) (*entity.InventoryRecord, error) {
	rec, err := r.FindForUpdate(ctx, companyID, loc, productID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	rec = &entity.InventoryRecord{
		ID:           uuid.New().String(),
		CompanyID:    companyID,
		LocationType: loc.Type,
		LocationID:   loc.ID,
		ProductID:    productID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// 并发创建用 ON CONFLICT DO NOTHING 吸收唯一索引竞争，
	// 撞上时对方行已提交，重读加锁（裸 INSERT 失败会中止整个事务）
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return r.FindForUpdate(ctx, companyID, loc, productID)
	}
	return rec, nil
}

// UpdateWithVersion CAS 更新台账行
func (r *InventoryRepository) UpdateWithVersion(ctx context.Context, rec *entity.InventoryRecord) error {
	prev := rec.Version
	rec.Version = prev + 1
	rec.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).Model(&entity.InventoryRecord{}).
		Where("id = ? AND version = ?", rec.ID, prev).
		Select("current_quantity", "reserved_for_sales", "reserved_for_transfers", "version", "updated_at").
		Updates(rec)
	if res.Error != nil {
		rec.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		rec.Version = prev
		return ErrVersionConflict
	}
	return nil
}

// ListByLocation 某位置全部台账行
func (r *InventoryRepository) ListByLocation(ctx context.Context, companyID string, loc entity.LocationRef) ([]entity.InventoryRecord, error) {
	var items []entity.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND location_type = ? AND location_id = ?", companyID, loc.Type, loc.ID).
		Order("product_id").
		Find(&items).Error
	return items, err
}
