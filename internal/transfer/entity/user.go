package entity

import "time"

// 公司角色层级：FOUNDER/CEO ≥ GENERAL_MANAGER > STORE_MANAGER > EMPLOYEE
const (
	RoleFounder        = "FOUNDER"
	RoleCEO            = "CEO"
	RoleGeneralManager = "GENERAL_MANAGER"
	RoleStoreManager   = "STORE_MANAGER"
	RoleEmployee       = "EMPLOYEE"
)

// 仓库独立授权，与公司角色正交
const (
	WarehouseGrantRead      = "READ"
	WarehouseGrantReadWrite = "READ_WRITE"
)

// User 用户实体
type User struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID string     `json:"companyId" gorm:"column:company_id;size:36;not null;index"`
	Username  string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:200;not null"`
	Email     string     `json:"email" gorm:"size:128;uniqueIndex"`
	Role      string     `json:"role" gorm:"size:32;not null;default:EMPLOYEE"`
	Status    string     `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// UserLocation 用户-位置归属（门店经理管理的门店、员工所属位置）
type UserLocation struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	UserID       string    `json:"userId" gorm:"column:user_id;size:36;not null;uniqueIndex:idx_user_location,priority:1"`
	LocationType string    `json:"locationType" gorm:"column:location_type;size:20;not null;uniqueIndex:idx_user_location,priority:2"`
	LocationID   string    `json:"locationId" gorm:"column:location_id;size:36;not null;uniqueIndex:idx_user_location,priority:3"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (UserLocation) TableName() string {
	return "user_locations"
}

// WarehouseGrant 用户-仓库授权
type WarehouseGrant struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"userId" gorm:"column:user_id;size:36;not null;uniqueIndex:idx_warehouse_grant,priority:1"`
	WarehouseID string    `json:"warehouseId" gorm:"column:warehouse_id;size:36;not null;uniqueIndex:idx_warehouse_grant,priority:2"`
	Permission  string    `json:"permission" gorm:"size:20;not null;default:READ"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (WarehouseGrant) TableName() string {
	return "warehouse_grants"
}

// Actor 调用者视图：角色 + 位置归属 + 仓库授权，权限引擎的输入。
// 由 service 在进入权限判定前从 users/user_locations/warehouse_grants 组装。
type Actor struct {
	UserID          string
	CompanyID       string
	Name            string
	Role            string
	Locations       []LocationRef
	WarehouseGrants map[string]string // warehouseID -> READ / READ_WRITE
}

// IsGMPlus FOUNDER/CEO/GENERAL_MANAGER 具有公司级审批权
func (a Actor) IsGMPlus() bool {
	switch a.Role {
	case RoleFounder, RoleCEO, RoleGeneralManager:
		return true
	}
	return false
}

// MemberOf 是否归属某位置
func (a Actor) MemberOf(ref LocationRef) bool {
	for _, l := range a.Locations {
		if l.Equal(ref) {
			return true
		}
	}
	return false
}

// CanWriteWarehouse 对仓库是否持有 READ_WRITE 授权
func (a Actor) CanWriteWarehouse(warehouseID string) bool {
	return a.WarehouseGrants[warehouseID] == WarehouseGrantReadWrite
}

// CanReadWarehouse 对仓库是否持有任一授权
func (a Actor) CanReadWarehouse(warehouseID string) bool {
	switch a.WarehouseGrants[warehouseID] {
	case WarehouseGrantRead, WarehouseGrantReadWrite:
		return true
	}
	return false
}
