package entity

import (
	"time"
)

// 调拨单状态常量
const (
	TransferStatusPending   = "PENDING"
	TransferStatusApproved  = "APPROVED"
	TransferStatusRejected  = "REJECTED"
	TransferStatusReady     = "READY"
	TransferStatusInTransit = "IN_TRANSIT"
	TransferStatusDelivered = "DELIVERED"
	TransferStatusCompleted = "COMPLETED"
	TransferStatusCancelled = "CANCELLED"
)

// 优先级常量
const (
	TransferPriorityLow    = "LOW"
	TransferPriorityMedium = "MEDIUM"
	TransferPriorityHigh   = "HIGH"
	TransferPriorityUrgent = "URGENT"
)

// Action 调拨单操作
type Action string

const (
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionCancel    Action = "cancel"
	ActionMarkReady Action = "markReady"
	ActionPickup    Action = "pickup"
	ActionDeliver   Action = "deliver"
	ActionReceive   Action = "receive"
)

// TransferRequest 调拨申请单
type TransferRequest struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	CompanyID string `json:"companyId" gorm:"column:company_id;size:36;not null;index"`

	ProductID   string `json:"productId" gorm:"column:product_id;size:36;not null;index"`
	ProductName string `json:"productName" gorm:"column:product_name;size:200"`
	ProductSKU  string `json:"productSku" gorm:"column:product_sku;size:100"`

	FromLocationType string `json:"fromLocationType" gorm:"column:from_location_type;size:20;not null"`
	FromLocationID   string `json:"fromLocationId" gorm:"column:from_location_id;size:36;not null;index"`
	ToLocationType   string `json:"toLocationType" gorm:"column:to_location_type;size:20;not null"`
	ToLocationID     string `json:"toLocationId" gorm:"column:to_location_id;size:36;not null;index"`

	RequestedQuantity    int `json:"requestedQuantity" gorm:"column:requested_quantity;not null"`
	ApprovedQuantity     int `json:"approvedQuantity" gorm:"column:approved_quantity;not null;default:0"`
	ReceivedQuantity     int `json:"receivedQuantity" gorm:"column:received_quantity;not null;default:0"`
	DamagedQuantity      int `json:"damagedQuantity" gorm:"column:damaged_quantity;not null;default:0"`
	UnreconciledQuantity int `json:"unreconciledQuantity" gorm:"column:unreconciled_quantity;not null;default:0"`

	Status   string `json:"status" gorm:"size:20;not null;default:PENDING;index"`
	Priority string `json:"priority" gorm:"size:20;not null;default:MEDIUM"`

	Reason       string `json:"reason,omitempty" gorm:"type:text"`
	Notes        string `json:"notes,omitempty" gorm:"type:text"`
	ReceiptNotes string `json:"receiptNotes,omitempty" gorm:"column:receipt_notes;type:text"`

	RequestedByUserID string `json:"requestedByUserId" gorm:"column:requested_by_user_id;size:36;not null;index"`
	RequestedByName   string `json:"requestedByName" gorm:"column:requested_by_name;size:200"`
	ApprovedByUserID  string `json:"approvedByUserId,omitempty" gorm:"column:approved_by_user_id;size:36"`
	ApprovedByName    string `json:"approvedByName,omitempty" gorm:"column:approved_by_name;size:200"`
	PackedBy          string `json:"packedBy,omitempty" gorm:"column:packed_by;size:200"`

	CarrierName     string `json:"carrierName,omitempty" gorm:"column:carrier_name;size:200"`
	CarrierPhone    string `json:"carrierPhone,omitempty" gorm:"column:carrier_phone;size:20"`
	CarrierVehicle  string `json:"carrierVehicle,omitempty" gorm:"column:carrier_vehicle;size:100"`
	CarrierUserID   string `json:"carrierUserId,omitempty" gorm:"column:carrier_user_id;size:36"`
	TransportMethod string `json:"transportMethod,omitempty" gorm:"column:transport_method;size:50"`

	ReceiverUserID string `json:"receiverUserId,omitempty" gorm:"column:receiver_user_id;size:36"`
	ReceiverName   string `json:"receiverName,omitempty" gorm:"column:receiver_name;size:200"`

	// 取货时生成，收货时可选校验
	DeliveryToken      string `json:"-" gorm:"column:delivery_token;size:64"`
	ProofOfDeliveryURL string `json:"proofOfDeliveryUrl,omitempty" gorm:"column:proof_of_delivery_url;size:500"`
	ConditionOnArrival string `json:"conditionOnArrival,omitempty" gorm:"column:condition_on_arrival;size:50"`

	CreatedAt           time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	ApprovedAt          *time.Time `json:"approvedAt,omitempty"`
	ReadyAt             *time.Time `json:"readyAt,omitempty"`
	ShippedAt           *time.Time `json:"shippedAt,omitempty"`
	EstimatedDeliveryAt *time.Time `json:"estimatedDeliveryAt,omitempty"`
	DeliveredAt         *time.Time `json:"deliveredAt,omitempty"`
	ReceivedAt          *time.Time `json:"receivedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	RejectedAt          *time.Time `json:"rejectedAt,omitempty"`
	CancelledAt         *time.Time `json:"cancelledAt,omitempty"`

	// 乐观锁版本号，所有状态迁移 CAS 更新
	Version int `json:"version" gorm:"not null;default:0"`
}

func (TransferRequest) TableName() string {
	return "transfer_requests"
}

// IsTerminal 是否已终结（REJECTED / CANCELLED / COMPLETED）
func (t *TransferRequest) IsTerminal() bool {
	switch t.Status {
	case TransferStatusRejected, TransferStatusCancelled, TransferStatusCompleted:
		return true
	}
	return false
}

// HoldsReservation 当前状态下源库存是否持有预留
func (t *TransferRequest) HoldsReservation() bool {
	return t.Status == TransferStatusApproved || t.Status == TransferStatusReady
}

// From 源位置
func (t *TransferRequest) From() LocationRef {
	return LocationRef{Type: t.FromLocationType, ID: t.FromLocationID}
}

// To 目标位置
func (t *TransferRequest) To() LocationRef {
	return LocationRef{Type: t.ToLocationType, ID: t.ToLocationID}
}

// ActionsForStatus 返回某状态下合法的迁移操作（不含权限过滤）
func ActionsForStatus(status string) []Action {
	switch status {
	case TransferStatusPending:
		return []Action{ActionApprove, ActionReject, ActionCancel}
	case TransferStatusApproved:
		return []Action{ActionMarkReady, ActionCancel}
	case TransferStatusReady:
		return []Action{ActionPickup, ActionCancel}
	case TransferStatusInTransit:
		return []Action{ActionDeliver}
	case TransferStatusDelivered:
		return []Action{ActionReceive}
	}
	return nil
}

// StatusAllowsAction 状态是否允许该操作
func StatusAllowsAction(status string, action Action) bool {
	for _, a := range ActionsForStatus(status) {
		if a == action {
			return true
		}
	}
	return false
}

// ValidPriority 校验优先级取值
func ValidPriority(p string) bool {
	switch p {
	case TransferPriorityLow, TransferPriorityMedium, TransferPriorityHigh, TransferPriorityUrgent:
		return true
	}
	return false
}

// PriorityRank 优先级排序权重，URGENT 最前
func PriorityRank(p string) int {
	switch p {
	case TransferPriorityUrgent:
		return 0
	case TransferPriorityHigh:
		return 1
	case TransferPriorityMedium:
		return 2
	case TransferPriorityLow:
		return 3
	}
	return 4
}
