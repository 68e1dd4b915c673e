package engine

// RoleAdmin 管理员角色
// 管理员无条件通过所有权限检查,这是引擎内置规则,不查询 PermissionGate
const RoleAdmin = "ADMIN"

// 操作对应的权限名
// 权限名是与角色编辑器共享的契约,不可变更
const (
	PermCreateTask      = "perm_create_task"
	PermBtnFinish       = "perm_btn_finish"
	PermBtnFinishDirect = "perm_btn_finish_direct" // 允许跳过领取直接完成
	PermBtnSearch       = "perm_btn_search"
	PermBtnMissing      = "perm_btn_missing"
	PermBtnManualBlock  = "perm_btn_manual_block"
	PermBtnIncorrect    = "perm_btn_incorrect"
	PermBtnRelease      = "perm_btn_release"
	PermBtnNote         = "perm_btn_note"
	PermBtnAudit        = "perm_btn_audit"
	PermDeleteTask      = "perm_delete_task"
	PermManageRoles     = "perm_manage_roles"
	PermAckNotification = "perm_ack_notification"
)

// allowed 权限检查,含管理员旁路
func (e *Engine) allowed(actor Actor, permission string) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return e.gate.Can(actor.Role, permission)
}
