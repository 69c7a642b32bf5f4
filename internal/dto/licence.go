package dto

// ── 上岗证模块 DTO ──

// 证件状态
const (
	LicenceValid    = "valid"
	LicenceExpiring = "expiring"
	LicenceExpired  = "expired"
)

// CreateLicenceRequest 登记上岗证请求
type CreateLicenceRequest struct {
	GuardID       string `json:"guard_id"       binding:"required,uuid"`
	LicenceType   string `json:"licence_type"   binding:"required,max=50"`
	LicenceNumber string `json:"licence_number" binding:"required,max=50"`
	ExpiryDate    string `json:"expiry_date"    binding:"required"`
}

// LicenceListRequest 上岗证列表查询参数
type LicenceListRequest struct {
	GuardID string `form:"guard_id" binding:"omitempty,uuid"`
	PaginationRequest
}

// ExpiringLicenceRequest 即将到期查询参数，days 为空时取系统配置
type ExpiringLicenceRequest struct {
	Days *int `form:"days" binding:"omitempty,min=0,max=365"`
}

// LicenceResponse 上岗证响应
type LicenceResponse struct {
	ID            string      `json:"id"`
	GuardID       string      `json:"guard_id"`
	Guard         *GuardBrief `json:"guard,omitempty"`
	LicenceType   string      `json:"licence_type"`
	LicenceNumber string      `json:"licence_number"`
	ExpiryDate    string      `json:"expiry_date"`
	DaysRemaining int         `json:"days_remaining"`
	Status        string      `json:"status"`
}
