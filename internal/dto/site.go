package dto

// ── 站点模块 DTO ──

// CreateSiteRequest 创建站点请求
type CreateSiteRequest struct {
	Name    string `json:"name"    binding:"required,min=2,max=100"`
	Address string `json:"address" binding:"omitempty,max=200"`
}

// UpdateSiteRequest 更新站点请求
type UpdateSiteRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=2,max=100"`
	Address  *string `json:"address"   binding:"omitempty,max=200"`
	IsActive *bool   `json:"is_active"`
}

// SiteListRequest 站点列表查询参数
type SiteListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// SiteResponse 站点信息响应
type SiteResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
