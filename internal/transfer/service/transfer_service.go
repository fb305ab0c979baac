package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransferService 调拨工作流编排：每个操作一个事务，内部完成
// 重读单据 → 权限复查 → 状态迁移 → 台账副作用 → CAS 持久化。
type TransferService struct {
	db           *gorm.DB
	repos        *repository.Repositories
	perm         *PermissionEngine
	availability *AvailabilityService
	logger       *zap.Logger
}

func NewTransferService(db *gorm.DB, repos *repository.Repositories, perm *PermissionEngine, availability *AvailabilityService, logger *zap.Logger) *TransferService {
	return &TransferService{
		db:           db,
		repos:        repos,
		perm:         perm,
		availability: availability,
		logger:       logger,
	}
}

// TransferResult 操作结果：最新单据 + 调用者当前可用操作
type TransferResult struct {
	Request          *entity.TransferRequest `json:"request"`
	AvailableActions []entity.Action         `json:"availableActions"`
}

// Pagination 列表分页信息
type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	HasNext       bool  `json:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious"`
}

// CreateTransferReq 创建调拨单参数
type CreateTransferReq struct {
	ProductID        string `json:"productId" binding:"required"`
	FromLocationType string `json:"fromLocationType" binding:"required"`
	FromLocationID   string `json:"fromLocationId" binding:"required"`
	ToLocationType   string `json:"toLocationType" binding:"required"`
	ToLocationID     string `json:"toLocationId" binding:"required"`
	Quantity         int    `json:"quantity" binding:"required"`
	Priority         string `json:"priority"`
	Notes            string `json:"notes"`
}

// ApproveReq 审批参数
type ApproveReq struct {
	ApprovedQuantity int    `json:"approvedQuantity" binding:"required"`
	Notes            string `json:"notes"`
}

// RejectReq 驳回参数
type RejectReq struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelReq 撤销参数
type CancelReq struct {
	Reason string `json:"reason"`
}

// MarkReadyReq 备货完成参数
type MarkReadyReq struct {
	PackedBy string `json:"packedBy" binding:"required"`
	Notes    string `json:"notes"`
}

// PickupReq 取货参数
type PickupReq struct {
	CarrierName         string     `json:"carrierName" binding:"required"`
	CarrierPhone        string     `json:"carrierPhone"`
	CarrierVehicle      string     `json:"carrierVehicle"`
	TransportMethod     string     `json:"transportMethod"`
	EstimatedDeliveryAt *time.Time `json:"estimatedDeliveryAt"`
}

// DeliverReq 送达参数
type DeliverReq struct {
	ProofOfDeliveryURL string `json:"proofOfDeliveryUrl"`
	ConditionOnArrival string `json:"conditionOnArrival"`
	Notes              string `json:"notes"`
}

// ReceiveReq 收货参数
type ReceiveReq struct {
	ReceivedQuantity int    `json:"receivedQuantity"`
	DamagedQuantity  int    `json:"damagedQuantity"`
	ReceiverName     string `json:"receiverName" binding:"required"`
	ReceiptNotes     string `json:"receiptNotes"`
	DeliveryQRCode   string `json:"deliveryQRCode"`
}

// Create 创建调拨单，不产生预留
func (s *TransferService) Create(ctx context.Context, userID string, req CreateTransferReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Quantity <= 0 {
		return nil, newValidationError("quantity", "must be greater than zero")
	}
	if !entity.ValidLocationType(req.FromLocationType) {
		return nil, newValidationError("fromLocationType", "must be STORE or WAREHOUSE")
	}
	if !entity.ValidLocationType(req.ToLocationType) {
		return nil, newValidationError("toLocationType", "must be STORE or WAREHOUSE")
	}

	from := entity.LocationRef{Type: req.FromLocationType, ID: req.FromLocationID}
	to := entity.LocationRef{Type: req.ToLocationType, ID: req.ToLocationID}
	if from.Equal(to) {
		return nil, newValidationError("toLocation", "source and destination must differ")
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.TransferPriorityMedium
	}
	if !entity.ValidPriority(priority) {
		return nil, newValidationError("priority", "unknown priority")
	}

	// 两端位置必须属于调用者公司
	if _, err := s.repos.Location.FindByRef(ctx, actor.CompanyID, from); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newValidationError("fromLocation", "location not found in company")
		}
		return nil, err
	}
	if _, err := s.repos.Location.FindByRef(ctx, actor.CompanyID, to); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newValidationError("toLocation", "location not found in company")
		}
		return nil, err
	}

	product, err := s.repos.Product.FindByID(ctx, actor.CompanyID, req.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, req.ProductID)
		}
		return nil, err
	}

	// 路线配置：停用的路线拒绝下单（路线表由配置端维护，工作流只读）
	if route, err := s.repos.TransferLocation.FindRoute(ctx, actor.CompanyID, from, to); err == nil {
		if route.Status != "active" {
			return nil, newValidationError("route", "transfer route is disabled")
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	transfer := &entity.TransferRequest{
		ID:                uuid.New().String(),
		CompanyID:         actor.CompanyID,
		ProductID:         product.ID,
		ProductName:       product.Name,
		ProductSKU:        product.SKU,
		FromLocationType:  from.Type,
		FromLocationID:    from.ID,
		ToLocationType:    to.Type,
		ToLocationID:      to.ID,
		RequestedQuantity: req.Quantity,
		Status:            entity.TransferStatusPending,
		Priority:          priority,
		Notes:             req.Notes,
		RequestedByUserID: actor.UserID,
		RequestedByName:   actor.Name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repos.Transfer.Create(ctx, transfer); err != nil {
		return nil, fmt.Errorf("创建调拨单失败: %w", err)
	}

	s.logger.Info("transfer created",
		zap.String("transfer_id", transfer.ID),
		zap.String("company_id", transfer.CompanyID),
		zap.String("product_id", transfer.ProductID),
		zap.Int("quantity", transfer.RequestedQuantity),
	)
	return s.result(transfer, actor), nil
}

// Approve 审批：锁源台账行，事务内重算可调拨量，写入预留
func (s *TransferService) Approve(ctx context.Context, userID, id string, req ApproveReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.ApprovedQuantity <= 0 {
		return nil, newValidationError("approvedQuantity", "must be greater than zero")
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)

		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionApprove)
		if err != nil {
			return err
		}
		if req.ApprovedQuantity > t.RequestedQuantity {
			return newValidationError("approvedQuantity", "exceeds requested quantity")
		}

		// 源台账行加锁后重算，串行化同一 (location, product) 上的并发审批
		inv, err := repos.Inventory.FindForUpdate(ctx, t.CompanyID, t.From(), t.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return insufficientStock("no stock at source location")
			}
			return err
		}

		available, err := AvailableWith(ctx, repos, t.CompanyID, t.From(), t.ProductID)
		if err != nil {
			return err
		}
		if req.ApprovedQuantity > available {
			return insufficientStock("requested %d, available %d", req.ApprovedQuantity, available)
		}

		inv.ReservedForTransfers += req.ApprovedQuantity
		if err := repos.Inventory.UpdateWithVersion(ctx, inv); err != nil {
			return err
		}

		now := time.Now()
		t.Status = entity.TransferStatusApproved
		t.ApprovedQuantity = req.ApprovedQuantity
		t.ApprovedByUserID = actor.UserID
		t.ApprovedByName = actor.Name
		t.ApprovedAt = &now
		if req.Notes != "" {
			t.Notes = appendNote(t.Notes, req.Notes)
		}
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.availability.Invalidate(ctx, transfer.CompanyID, transfer.From(), transfer.ProductID)
	s.logger.Info("transfer approved",
		zap.String("transfer_id", transfer.ID),
		zap.Int("approved_quantity", transfer.ApprovedQuantity),
		zap.String("approved_by", actor.UserID),
	)
	return s.result(transfer, actor), nil
}

// Reject 驳回，无台账副作用
func (s *TransferService) Reject(ctx context.Context, userID, id string, req RejectReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, newValidationError("reason", "required")
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionReject)
		if err != nil {
			return err
		}

		now := time.Now()
		t.Status = entity.TransferStatusRejected
		t.Reason = req.Reason
		t.RejectedAt = &now
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.logger.Info("transfer rejected", zap.String("transfer_id", transfer.ID), zap.String("rejected_by", actor.UserID))
	return s.result(transfer, actor), nil
}

// Cancel 撤销，已有预留（APPROVED/READY）则原子释放
func (s *TransferService) Cancel(ctx context.Context, userID, id string, req CancelReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionCancel)
		if err != nil {
			return err
		}

		if t.HoldsReservation() {
			inv, err := repos.Inventory.FindForUpdate(ctx, t.CompanyID, t.From(), t.ProductID)
			if err != nil {
				return err
			}
			inv.ReservedForTransfers -= t.ApprovedQuantity
			if inv.ReservedForTransfers < 0 {
				s.logger.Warn("reservation ledger drift on cancel",
					zap.String("transfer_id", t.ID),
					zap.Int("reserved", inv.ReservedForTransfers))
				inv.ReservedForTransfers = 0
			}
			if err := repos.Inventory.UpdateWithVersion(ctx, inv); err != nil {
				return err
			}
		}

		now := time.Now()
		t.Status = entity.TransferStatusCancelled
		t.Reason = req.Reason
		t.CancelledAt = &now
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.availability.Invalidate(ctx, transfer.CompanyID, transfer.From(), transfer.ProductID)
	s.logger.Info("transfer cancelled", zap.String("transfer_id", transfer.ID), zap.String("cancelled_by", actor.UserID))
	return s.result(transfer, actor), nil
}

// MarkReady 备货完成，无台账副作用
func (s *TransferService) MarkReady(ctx context.Context, userID, id string, req MarkReadyReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PackedBy) == "" {
		return nil, newValidationError("packedBy", "required")
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionMarkReady)
		if err != nil {
			return err
		}
		if t.ApprovedQuantity <= 0 {
			return stateConflict("approved quantity not set")
		}

		now := time.Now()
		t.Status = entity.TransferStatusReady
		t.PackedBy = req.PackedBy
		t.ReadyAt = &now
		if req.Notes != "" {
			t.Notes = appendNote(t.Notes, req.Notes)
		}
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.logger.Info("transfer marked ready", zap.String("transfer_id", transfer.ID), zap.String("packed_by", req.PackedBy))
	return s.result(transfer, actor), nil
}

// PickupResult 取货结果，附送货校验二维码内容
type PickupResult struct {
	TransferResult
	DeliveryQRCode string `json:"deliveryQRCode"`
}

// Pickup 取货发运：物理扣减源库存，预留随之消耗，生成送货校验码
func (s *TransferService) Pickup(ctx context.Context, userID, id string, req PickupReq) (*PickupResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionPickup)
		if err != nil {
			return err
		}

		inv, err := repos.Inventory.FindForUpdate(ctx, t.CompanyID, t.From(), t.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return insufficientStock("no stock at source location")
			}
			return err
		}
		if inv.CurrentQuantity < t.ApprovedQuantity {
			return insufficientStock("physical stock %d below approved %d", inv.CurrentQuantity, t.ApprovedQuantity)
		}

		inv.CurrentQuantity -= t.ApprovedQuantity
		inv.ReservedForTransfers -= t.ApprovedQuantity
		if inv.ReservedForTransfers < 0 {
			s.logger.Warn("reservation ledger drift on pickup",
				zap.String("transfer_id", t.ID),
				zap.Int("reserved", inv.ReservedForTransfers))
			inv.ReservedForTransfers = 0
		}
		if err := repos.Inventory.UpdateWithVersion(ctx, inv); err != nil {
			return err
		}

		now := time.Now()
		t.Status = entity.TransferStatusInTransit
		t.CarrierName = req.CarrierName
		t.CarrierPhone = req.CarrierPhone
		t.CarrierVehicle = req.CarrierVehicle
		t.CarrierUserID = actor.UserID
		t.TransportMethod = req.TransportMethod
		t.EstimatedDeliveryAt = req.EstimatedDeliveryAt
		t.ShippedAt = &now
		t.DeliveryToken = generateDeliveryToken(t.ID, actor.UserID)
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.availability.Invalidate(ctx, transfer.CompanyID, transfer.From(), transfer.ProductID)
	s.logger.Info("transfer picked up",
		zap.String("transfer_id", transfer.ID),
		zap.String("carrier", transfer.CarrierName),
		zap.Int("quantity", transfer.ApprovedQuantity),
	)
	return &PickupResult{
		TransferResult: *s.result(transfer, actor),
		DeliveryQRCode: transfer.DeliveryToken,
	}, nil
}

// Deliver 送达：仅物理交接，不动库存
func (s *TransferService) Deliver(ctx context.Context, userID, id string, req DeliverReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionDeliver)
		if err != nil {
			return err
		}

		now := time.Now()
		t.Status = entity.TransferStatusDelivered
		if req.ProofOfDeliveryURL != "" {
			t.ProofOfDeliveryURL = req.ProofOfDeliveryURL
		}
		t.ConditionOnArrival = req.ConditionOnArrival
		t.DeliveredAt = &now
		if req.Notes != "" {
			t.Notes = appendNote(t.Notes, req.Notes)
		}
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.logger.Info("transfer delivered", zap.String("transfer_id", transfer.ID))
	return s.result(transfer, actor), nil
}

// Receive 收货完结：好品入目标台账，缺口记未对账数，不自动回冲源库存
func (s *TransferService) Receive(ctx context.Context, userID, id string, req ReceiveReq) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.ReceivedQuantity < 0 {
		return nil, newValidationError("receivedQuantity", "must not be negative")
	}
	if req.DamagedQuantity < 0 || req.DamagedQuantity > req.ReceivedQuantity {
		return nil, newValidationError("damagedQuantity", "must be between 0 and receivedQuantity")
	}
	if strings.TrimSpace(req.ReceiverName) == "" {
		return nil, newValidationError("receiverName", "required")
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := s.fetchForAction(ctx, repos, actor, id, entity.ActionReceive)
		if err != nil {
			return err
		}
		if req.ReceivedQuantity > t.ApprovedQuantity {
			return newValidationError("receivedQuantity", "exceeds approved quantity")
		}
		if req.DeliveryQRCode != "" && req.DeliveryQRCode != t.DeliveryToken {
			return newValidationError("deliveryQRCode", "invalid delivery verification code")
		}

		goodQty := req.ReceivedQuantity - req.DamagedQuantity
		if goodQty > 0 {
			inv, err := repos.Inventory.GetOrCreateForUpdate(ctx, t.CompanyID, t.To(), t.ProductID)
			if err != nil {
				return err
			}
			inv.CurrentQuantity += goodQty
			if err := repos.Inventory.UpdateWithVersion(ctx, inv); err != nil {
				return err
			}
		}

		now := time.Now()
		t.Status = entity.TransferStatusCompleted
		t.ReceivedQuantity = req.ReceivedQuantity
		t.DamagedQuantity = req.DamagedQuantity
		t.UnreconciledQuantity = t.ApprovedQuantity - req.ReceivedQuantity
		t.ReceiverUserID = actor.UserID
		t.ReceiverName = req.ReceiverName
		t.ReceivedAt = &now
		t.CompletedAt = &now
		t.ReceiptNotes = req.ReceiptNotes
		if t.UnreconciledQuantity > 0 {
			t.ReceiptNotes = appendNote(t.ReceiptNotes,
				fmt.Sprintf("unreconciled loss: %d of %d approved units never arrived", t.UnreconciledQuantity, t.ApprovedQuantity))
		}
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}

	s.availability.Invalidate(ctx, transfer.CompanyID, transfer.To(), transfer.ProductID)
	s.logger.Info("transfer received",
		zap.String("transfer_id", transfer.ID),
		zap.Int("received", transfer.ReceivedQuantity),
		zap.Int("damaged", transfer.DamagedQuantity),
		zap.Int("unreconciled", transfer.UnreconciledQuantity),
	)
	return s.result(transfer, actor), nil
}

// Get 查询单据，跨公司返回 not found
func (s *TransferService) Get(ctx context.Context, userID, id string) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	t, err := s.repos.Transfer.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transfer %s", ErrNotFound, id)
		}
		return nil, err
	}
	return s.result(t, actor), nil
}

// List 租户范围分页列表
func (s *TransferService) List(ctx context.Context, userID string, filter repository.ListFilter, page, pageSize int) ([]entity.TransferRequest, *Pagination, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, nil, newValidationError("status", "unknown status")
	}

	items, total, err := s.repos.Transfer.List(ctx, actor.CompanyID, filter, page, pageSize)
	if err != nil {
		return nil, nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return items, &Pagination{
		CurrentPage:   page,
		PageSize:      pageSize,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       page < totalPages,
		HasPrevious:   page > 1,
	}, nil
}

// PendingApproval 调用者可审批的待审批单，按优先级排序
func (s *TransferService) PendingApproval(ctx context.Context, userID string) ([]entity.TransferRequest, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repos.Transfer.PendingApproval(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	visible := make([]entity.TransferRequest, 0, len(items))
	for i := range items {
		if s.perm.CanPerform(&items[i], actor, entity.ActionApprove) {
			visible = append(visible, items[i])
		}
	}
	return visible, nil
}

// AttachProofOfDelivery 绑定送货凭证 URL（上传后由 handler 调用）
func (s *TransferService) AttachProofOfDelivery(ctx context.Context, userID, id, url string) (*TransferResult, error) {
	actor, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	var transfer *entity.TransferRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		t, err := repos.Transfer.FindByID(ctx, actor.CompanyID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: transfer %s", ErrNotFound, id)
			}
			return err
		}
		// 凭证只在在途/送达阶段有意义
		if t.Status != entity.TransferStatusInTransit && t.Status != entity.TransferStatusDelivered {
			return stateConflict("proof of delivery not accepted in status %s", t.Status)
		}
		t.ProofOfDeliveryURL = url
		if err := repos.Transfer.UpdateWithVersion(ctx, t); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	if err != nil {
		return nil, s.mapTxError(err)
	}
	return s.result(transfer, actor), nil
}

// fetchForAction 事务内重取单据并做状态/权限双重检查。
// 状态不允许 → 状态冲突（终态单据报 already resolved）；权限不足 → 拒绝。
func (s *TransferService) fetchForAction(ctx context.Context, repos *repository.Repositories, actor *entity.Actor, id string, action entity.Action) (*entity.TransferRequest, error) {
	t, err := repos.Transfer.FindByID(ctx, actor.CompanyID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transfer %s", ErrNotFound, id)
		}
		return nil, err
	}

	if !entity.StatusAllowsAction(t.Status, action) {
		if t.IsTerminal() {
			return nil, stateConflict("transfer already resolved as %s", t.Status)
		}
		return nil, stateConflict("action %s not allowed in status %s", action, t.Status)
	}
	if !s.perm.CanPerform(t, actor, action) {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, action)
	}
	return t, nil
}

func (s *TransferService) loadActor(ctx context.Context, userID string) (*entity.Actor, error) {
	return loadActor(ctx, s.repos, userID)
}

func (s *TransferService) result(t *entity.TransferRequest, actor *entity.Actor) *TransferResult {
	return &TransferResult{
		Request:          t,
		AvailableActions: s.perm.AvailableActions(t, actor),
	}
}

// mapTxError 版本竞争统一归入状态冲突：并发迁移中后到者失败
func (s *TransferService) mapTxError(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return stateConflict("concurrent modification, re-fetch and retry")
	}
	return err
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func validStatus(status string) bool {
	switch status {
	case entity.TransferStatusPending, entity.TransferStatusApproved, entity.TransferStatusRejected,
		entity.TransferStatusReady, entity.TransferStatusInTransit, entity.TransferStatusDelivered,
		entity.TransferStatusCompleted, entity.TransferStatusCancelled:
		return true
	}
	return false
}

// generateDeliveryToken 送货校验码：sha256(单据 + 承运人 + 时间戳)
func generateDeliveryToken(transferID, carrierUserID string) string {
	data := fmt.Sprintf("%s:%s:%d", transferID, carrierUserID, time.Now().UnixNano())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
