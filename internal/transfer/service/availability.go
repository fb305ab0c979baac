package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 查询接口的缓存 TTL，审批路径不走缓存
const availabilityCacheTTL = 30 * time.Second

// AvailabilityService 可调拨量计算。
// 可调拨 = current − reserved_for_sales − 未执行调拨预留（APPROVED/READY 实时合计），
// 下限截断为 0。IN_TRANSIT 单据在取货时已从 current 扣减，不再重复计入。
type AvailabilityService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	logger *zap.Logger
}

func NewAvailabilityService(repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{repos: repos, rdb: rdb, logger: logger}
}

// Available 权威计算，审批事务内与此处使用同一口径（AvailableWith）
func (s *AvailabilityService) Available(ctx context.Context, companyID string, loc entity.LocationRef, productID string) (int, error) {
	return AvailableWith(ctx, s.repos, companyID, loc, productID)
}

// AvailableWith 基于指定仓库集合（可为事务绑定副本）计算可调拨量
func AvailableWith(ctx context.Context, repos *repository.Repositories, companyID string, loc entity.LocationRef, productID string) (int, error) {
	rec, err := repos.Inventory.Find(ctx, companyID, loc, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// 台账行尚未出现，视为无库存
			return 0, nil
		}
		return 0, err
	}

	reserved, err := repos.Transfer.SumOpenReservations(ctx, companyID, loc, productID)
	if err != nil {
		return 0, err
	}

	available := rec.CurrentQuantity - rec.ReservedForSales - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

// CachedAvailable 查询/列表接口使用的只读口径，短 TTL 缓存。
// redis 不可用时直接回源。
func (s *AvailabilityService) CachedAvailable(ctx context.Context, companyID string, loc entity.LocationRef, productID string) (int, error) {
	key := availabilityKey(companyID, loc, productID)

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, key).Result(); err == nil {
			if n, perr := strconv.Atoi(val); perr == nil {
				return n, nil
			}
		}
	}

	available, err := s.Available(ctx, companyID, loc, productID)
	if err != nil {
		return 0, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, strconv.Itoa(available), availabilityCacheTTL).Err(); err != nil {
			s.logger.Warn("availability cache set failed", zap.Error(err))
		}
	}
	return available, nil
}

// Invalidate 预留/扣减写入后失效缓存
func (s *AvailabilityService) Invalidate(ctx context.Context, companyID string, loc entity.LocationRef, productID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, availabilityKey(companyID, loc, productID)).Err(); err != nil {
		s.logger.Warn("availability cache invalidate failed", zap.Error(err))
	}
}

func availabilityKey(companyID string, loc entity.LocationRef, productID string) string {
	return fmt.Sprintf("availability:%s:%s:%s:%s", companyID, loc.Type, loc.ID, productID)
}
