package dto

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 简要信息（嵌入其他响应） ──

// GuardBrief 保安简要信息
type GuardBrief struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	BadgeNumber string `json:"badge_number"`
}

// SiteBrief 站点简要信息
type SiteBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── 分页请求 ──

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PaginationRequest 通用分页参数，嵌入各列表请求
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func (p *PaginationRequest) GetPage() int {
	return max(p.Page, 1)
}

// GetPageSize 未传时取默认值；绕过 binding 直接构造时也不超过上限
func (p *PaginationRequest) GetPageSize() int {
	switch {
	case p.PageSize <= 0:
		return defaultPageSize
	case p.PageSize > maxPageSize:
		return maxPageSize
	}
	return p.PageSize
}

func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
