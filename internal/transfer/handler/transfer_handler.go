package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/shared/objstore"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler 调拨工作流接口
type TransferHandler struct {
	svc    *service.TransferService
	export *service.ExportService
	store  *objstore.Store
}

func NewTransferHandler(svc *service.TransferService, export *service.ExportService, store *objstore.Store) *TransferHandler {
	return &TransferHandler{svc: svc, export: export, store: store}
}

// Create 创建调拨单
// POST /api/v1/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req service.CreateTransferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), GetUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, result)
}

// Get 查询调拨单详情（含调用者可用操作）
// GET /api/v1/transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// List 调拨单分页列表
// GET /api/v1/transfers?status=&storeId=&warehouseId=&page=&size=
func (h *TransferHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filter := repository.ListFilter{
		Status:      c.Query("status"),
		StoreID:     c.Query("storeId"),
		WarehouseID: c.Query("warehouseId"),
	}

	items, pagination, err := h.svc.List(c.Request.Context(), GetUserID(c), filter, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{
		"requests":   items,
		"pagination": pagination,
	})
}

// PendingApproval 调用者可审批的待审批单
// GET /api/v1/transfers/pending-approval
func (h *TransferHandler) PendingApproval(c *gin.Context) {
	items, err := h.svc.PendingApproval(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{
		"requests": items,
		"count":    len(items),
	})
}

// Approve 审批通过
// POST /api/v1/transfers/:id/approve
func (h *TransferHandler) Approve(c *gin.Context) {
	var req service.ApproveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Reject 驳回
// POST /api/v1/transfers/:id/reject
func (h *TransferHandler) Reject(c *gin.Context) {
	var req service.RejectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Cancel 撤销
// POST /api/v1/transfers/:id/cancel
func (h *TransferHandler) Cancel(c *gin.Context) {
	var req service.CancelReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Cancel(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// MarkReady 备货完成
// POST /api/v1/transfers/:id/ready
func (h *TransferHandler) MarkReady(c *gin.Context) {
	var req service.MarkReadyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.MarkReady(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Pickup 取货发运
// POST /api/v1/transfers/:id/pickup
func (h *TransferHandler) Pickup(c *gin.Context) {
	var req service.PickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Pickup(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Deliver 送达
// POST /api/v1/transfers/:id/deliver
func (h *TransferHandler) Deliver(c *gin.Context) {
	var req service.DeliverReq
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Deliver(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Receive 收货完结
// POST /api/v1/transfers/:id/receive
func (h *TransferHandler) Receive(c *gin.Context) {
	var req service.ReceiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Receive(c.Request.Context(), GetUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// UploadProofOfDelivery 上传送货凭证并绑定到单据
// POST /api/v1/transfers/:id/proof-of-delivery  (multipart: file)
func (h *TransferHandler) UploadProofOfDelivery(c *gin.Context) {
	if h.store == nil {
		Error(c, 50300, "对象存储未配置")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}
	defer file.Close()

	objectName := fmt.Sprintf("proof-of-delivery/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(header.Filename))
	url, err := h.store.Upload(c.Request.Context(), objectName, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		InternalError(c, "上传失败: "+err.Error())
		return
	}

	result, err := h.svc.AttachProofOfDelivery(c.Request.Context(), GetUserID(c), c.Param("id"), url)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// DownloadProofOfDelivery 获取送货凭证的限时下载链接
// GET /api/v1/transfers/:id/proof-of-delivery
func (h *TransferHandler) DownloadProofOfDelivery(c *gin.Context) {
	if h.store == nil {
		Error(c, 50300, "对象存储未配置")
		return
	}

	result, err := h.svc.Get(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Request.ProofOfDeliveryURL == "" {
		NotFound(c, "送货凭证不存在")
		return
	}

	url, err := h.store.PresignedURL(c.Request.Context(),
		h.store.ObjectName(result.Request.ProofOfDeliveryURL), 15*time.Minute)
	if err != nil {
		InternalError(c, "生成下载链接失败: "+err.Error())
		return
	}
	Success(c, gin.H{"url": url})
}

// Export 导出调拨单 XLSX
// GET /api/v1/transfers/export?status=
func (h *TransferHandler) Export(c *gin.Context) {
	data, filename, err := h.export.ExportTransfers(c.Request.Context(), GetUserID(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
