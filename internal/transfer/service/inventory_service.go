package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
)

// InventoryService 位置台账与可调拨量查询
type InventoryService struct {
	repos        *repository.Repositories
	availability *AvailabilityService
}

func NewInventoryService(repos *repository.Repositories, availability *AvailabilityService) *InventoryService {
	return &InventoryService{repos: repos, availability: availability}
}

// AvailabilityView 单个 (位置, 商品) 的可调拨量视图
type AvailabilityView struct {
	LocationType         string `json:"locationType"`
	LocationID           string `json:"locationId"`
	ProductID            string `json:"productId"`
	CurrentQuantity      int    `json:"currentQuantity"`
	ReservedForSales     int    `json:"reservedForSales"`
	ReservedForTransfers int    `json:"reservedForTransfers"`
	Available            int    `json:"available"`
}

// Availability 查询某位置某商品的可调拨量（查询口径，短 TTL 缓存）
func (s *InventoryService) Availability(ctx context.Context, userID string, loc entity.LocationRef, productID string) (*AvailabilityView, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.canReadLocation(actor, loc) {
		return nil, fmt.Errorf("%w: location %s", ErrPermissionDenied, loc.ID)
	}

	view := &AvailabilityView{
		LocationType: loc.Type,
		LocationID:   loc.ID,
		ProductID:    productID,
	}

	rec, err := s.repos.Inventory.Find(ctx, actor.CompanyID, loc, productID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if rec != nil {
		view.CurrentQuantity = rec.CurrentQuantity
		view.ReservedForSales = rec.ReservedForSales
		view.ReservedForTransfers = rec.ReservedForTransfers
	}

	available, err := s.availability.CachedAvailable(ctx, actor.CompanyID, loc, productID)
	if err != nil {
		return nil, err
	}
	view.Available = available
	return view, nil
}

// ListLocation 列出某位置的全部台账行
func (s *InventoryService) ListLocation(ctx context.Context, userID string, loc entity.LocationRef) ([]entity.InventoryRecord, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.canReadLocation(actor, loc) {
		return nil, fmt.Errorf("%w: location %s", ErrPermissionDenied, loc.ID)
	}
	return s.repos.Inventory.ListByLocation(ctx, actor.CompanyID, loc)
}

// canReadLocation GM+ 全公司可读；其余按位置归属或仓库授权
func (s *InventoryService) canReadLocation(actor *entity.Actor, loc entity.LocationRef) bool {
	if actor.IsGMPlus() {
		return true
	}
	if actor.MemberOf(loc) {
		return true
	}
	return loc.Type == entity.LocationTypeWarehouse && actor.CanReadWarehouse(loc.ID)
}

func (s *InventoryService) loadActor(ctx context.Context, userID string) (*entity.Actor, error) {
	return loadActor(ctx, s.repos, userID)
}
