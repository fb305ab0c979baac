package handler

import (
	"errors"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/service"
	"github.com/gin-gonic/gin"
)

// respondError 统一错误映射：
// 校验错误 400，未找到 404，权限 403，状态冲突 409，库存不足 422，其余 500。
func respondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		Forbidden(c, err.Error())
	case errors.Is(err, service.ErrStateConflict):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrInsufficientStock):
		UnprocessableEntity(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}
