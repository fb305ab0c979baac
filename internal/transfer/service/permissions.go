package service

import (
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
)

// PermissionEngine 权限引擎：对单据的可用操作 = 状态机合法操作 ∩ 角色/位置授权。
// 矩阵集中在这里，是权限判定的唯一事实来源；endpoint 不做独立判断。
type PermissionEngine struct{}

func NewPermissionEngine() *PermissionEngine {
	return &PermissionEngine{}
}

// Visible 单据对调用者是否可见。跨公司不可见（租户隔离在查询边界生效，
// 上层对不可见单据统一报 not found）。
func (e *PermissionEngine) Visible(req *entity.TransferRequest, actor *entity.Actor) bool {
	if req == nil || actor == nil {
		return false
	}
	return req.CompanyID == actor.CompanyID
}

// AvailableActions 计算当前可执行的操作集合
func (e *PermissionEngine) AvailableActions(req *entity.TransferRequest, actor *entity.Actor) []entity.Action {
	if !e.Visible(req, actor) {
		return []entity.Action{}
	}

	actions := []entity.Action{}
	for _, a := range entity.ActionsForStatus(req.Status) {
		if e.allowed(req, actor, a) {
			actions = append(actions, a)
		}
	}
	return actions
}

// CanPerform 操作前的权限复查
func (e *PermissionEngine) CanPerform(req *entity.TransferRequest, actor *entity.Actor, action entity.Action) bool {
	if !e.Visible(req, actor) {
		return false
	}
	if !entity.StatusAllowsAction(req.Status, action) {
		return false
	}
	return e.allowed(req, actor, action)
}

// allowed 角色/位置授权矩阵，不含状态合法性（由调用方先过状态机）
func (e *PermissionEngine) allowed(req *entity.TransferRequest, actor *entity.Actor, action entity.Action) bool {
	switch action {
	case entity.ActionApprove, entity.ActionReject:
		// 审批/驳回：GM+ 全公司；门店经理限源位置
		return actor.IsGMPlus() ||
			(actor.Role == entity.RoleStoreManager && actor.MemberOf(req.From()))

	case entity.ActionCancel:
		if actor.IsGMPlus() {
			return true
		}
		if actor.Role == entity.RoleStoreManager &&
			(actor.MemberOf(req.From()) || actor.MemberOf(req.To())) {
			return true
		}
		// 申请人可撤销自己的未完结单据；员工仅限 PENDING
		if req.RequestedByUserID == actor.UserID {
			if actor.Role == entity.RoleEmployee {
				return req.Status == entity.TransferStatusPending
			}
			return true
		}
		return false

	case entity.ActionMarkReady, entity.ActionPickup:
		// 备货/取货发生在源位置
		return actor.IsGMPlus() ||
			(actor.Role == entity.RoleStoreManager && actor.MemberOf(req.From())) ||
			e.writeGrantOn(actor, req.From())

	case entity.ActionDeliver:
		// 送达：GM+、指定承运人、或目标位置的门店经理
		if actor.IsGMPlus() {
			return true
		}
		if req.CarrierUserID != "" && req.CarrierUserID == actor.UserID {
			return true
		}
		return actor.Role == entity.RoleStoreManager && actor.MemberOf(req.To())

	case entity.ActionReceive:
		// 收货发生在目标位置
		return actor.IsGMPlus() ||
			(actor.Role == entity.RoleStoreManager && actor.MemberOf(req.To())) ||
			e.writeGrantOn(actor, req.To())
	}
	return false
}

// writeGrantOn 对仓库位置是否持有 READ_WRITE 独立授权（与公司角色正交）
func (e *PermissionEngine) writeGrantOn(actor *entity.Actor, ref entity.LocationRef) bool {
	return ref.Type == entity.LocationTypeWarehouse && actor.CanWriteWarehouse(ref.ID)
}
