package entity

import "time"

// InventoryRecord 位置级库存台账，(company, location, product) 一行。
// reserved_for_transfers 只由调拨工作流写入；零库存行保留不删除。
type InventoryRecord struct {
	ID           string `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string `json:"companyId" gorm:"column:company_id;size:36;not null;uniqueIndex:idx_inventory_loc_product,priority:1"`
	LocationType string `json:"locationType" gorm:"column:location_type;size:20;not null;uniqueIndex:idx_inventory_loc_product,priority:2"`
	LocationID   string `json:"locationId" gorm:"column:location_id;size:36;not null;uniqueIndex:idx_inventory_loc_product,priority:3"`
	ProductID    string `json:"productId" gorm:"column:product_id;size:36;not null;uniqueIndex:idx_inventory_loc_product,priority:4"`

	CurrentQuantity      int `json:"currentQuantity" gorm:"column:current_quantity;not null;default:0"`
	ReservedForSales     int `json:"reservedForSales" gorm:"column:reserved_for_sales;not null;default:0"`
	ReservedForTransfers int `json:"reservedForTransfers" gorm:"column:reserved_for_transfers;not null;default:0"`

	// 乐观锁版本号
	Version   int       `json:"version" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// Location 台账行所属位置引用
func (r *InventoryRecord) Location() LocationRef {
	return LocationRef{Type: r.LocationType, ID: r.LocationID}
}

// Product 商品快照，调拨单创建时取 name/sku 冗余到单据上
type Product struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID string    `json:"companyId" gorm:"column:company_id;size:36;not null;index"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	SKU       string    `json:"sku" gorm:"size:100;index"`
	Status    string    `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}
