package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services 服务聚合
type Services struct {
	Transfer     *TransferService
	Inventory    *InventoryService
	Availability *AvailabilityService
	Export       *ExportService
	Permissions  *PermissionEngine
}

// loadActor 组装调用者视图。用户不存在报 ErrNotFound，其余数据库错误原样上抛
func loadActor(ctx context.Context, repos *repository.Repositories, userID string) (*entity.Actor, error) {
	actor, err := repos.User.LoadActor(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, err
	}
	return actor, nil
}

// NewServices 初始化所有服务，rdb 可为 nil（缓存降级为直读）
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *Services {
	perm := NewPermissionEngine()
	availability := NewAvailabilityService(repos, rdb, logger)
	return &Services{
		Transfer:     NewTransferService(db, repos, perm, availability, logger),
		Inventory:    NewInventoryService(repos, availability),
		Availability: availability,
		Export:       NewExportService(repos),
		Permissions:  perm,
	}
}
