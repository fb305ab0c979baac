package entity

import "time"

// 位置类型常量
const (
	LocationTypeStore     = "STORE"
	LocationTypeWarehouse = "WAREHOUSE"
)

// LocationRef 位置引用（类型 + ID 的标签联合）
type LocationRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Equal 两个位置引用是否指向同一位置
func (r LocationRef) Equal(other LocationRef) bool {
	return r.Type == other.Type && r.ID == other.ID
}

// ValidLocationType 校验位置类型取值
func ValidLocationType(t string) bool {
	return t == LocationTypeStore || t == LocationTypeWarehouse
}

// Location 门店/仓库统一位置实体
type Location struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID string    `json:"companyId" gorm:"column:company_id;size:36;not null;index"`
	Type      string    `json:"type" gorm:"size:20;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Address   string    `json:"address,omitempty" gorm:"size:500"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Location) TableName() string {
	return "locations"
}

// Ref 转为位置引用
func (l *Location) Ref() LocationRef {
	return LocationRef{Type: l.Type, ID: l.ID}
}

// TransferLocation 调拨路线记录，按 (from, to) 维度配置审批策略。
// 工作流本身不修改该表，权限引擎可选查询。
type TransferLocation struct {
	ID               string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID        string    `json:"companyId" gorm:"column:company_id;size:36;not null;index"`
	FromLocationType string    `json:"fromLocationType" gorm:"column:from_location_type;size:20;not null;uniqueIndex:idx_transfer_route,priority:1"`
	FromLocationID   string    `json:"fromLocationId" gorm:"column:from_location_id;size:36;not null;uniqueIndex:idx_transfer_route,priority:2"`
	ToLocationType   string    `json:"toLocationType" gorm:"column:to_location_type;size:20;not null;uniqueIndex:idx_transfer_route,priority:3"`
	ToLocationID     string    `json:"toLocationId" gorm:"column:to_location_id;size:36;not null;uniqueIndex:idx_transfer_route,priority:4"`
	ApprovalPolicy   string    `json:"approvalPolicy" gorm:"column:approval_policy;size:32;not null;default:GM_PLUS"`
	Status           string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (TransferLocation) TableName() string {
	return "transfer_locations"
}
