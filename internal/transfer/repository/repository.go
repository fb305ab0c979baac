package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict CAS 更新丢失竞争，上层转换为状态冲突
	ErrVersionConflict = errors.New("version conflict")
)

// Repositories 仓库集合
type Repositories struct {
	Transfer         *TransferRequestRepository
	Inventory        *InventoryRepository
	Location         *LocationRepository
	TransferLocation *TransferLocationRepository
	Product          *ProductRepository
	User             *UserRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Transfer:         NewTransferRequestRepository(db),
		Inventory:        NewInventoryRepository(db),
		Location:         NewLocationRepository(db),
		TransferLocation: NewTransferLocationRepository(db),
		Product:          NewProductRepository(db),
		User:             NewUserRepository(db),
	}
}

// WithTx 返回绑定到事务的仓库集合
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}
