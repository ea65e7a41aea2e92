package model

// 角色
const (
	RoleAdmin         = "admin"
	RoleServiceRole   = "service_role"
	RoleAuthenticated = "authenticated"
)

// Principal 当前请求的调用者，由中间件从 token 中解析后显式传给各个 action
type Principal struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin 管理员不受行级权限限制
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleServiceRole
}

// OwnerScope 行级权限范围，空字符串表示不限制
func (p *Principal) OwnerScope() string {
	if p.IsAdmin() {
		return ""
	}
	return p.UserID
}
