package handler

import (
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 台账与可调拨量查询接口
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Availability 查询可调拨量
// GET /api/v1/inventory/availability?locationType=&locationId=&productId=
func (h *InventoryHandler) Availability(c *gin.Context) {
	locType := c.Query("locationType")
	locID := c.Query("locationId")
	productID := c.Query("productId")
	if !entity.ValidLocationType(locType) {
		BadRequest(c, "locationType 必须是 STORE 或 WAREHOUSE")
		return
	}
	if locID == "" || productID == "" {
		BadRequest(c, "locationId 和 productId 不能为空")
		return
	}

	view, err := h.svc.Availability(c.Request.Context(), GetUserID(c),
		entity.LocationRef{Type: locType, ID: locID}, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, view)
}

// ListLocation 某位置的全部台账行
// GET /api/v1/inventory/locations/:type/:id
func (h *InventoryHandler) ListLocation(c *gin.Context) {
	locType := c.Param("type")
	if !entity.ValidLocationType(locType) {
		BadRequest(c, "位置类型必须是 STORE 或 WAREHOUSE")
		return
	}

	items, err := h.svc.ListLocation(c.Request.Context(), GetUserID(c),
		entity.LocationRef{Type: locType, ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}
