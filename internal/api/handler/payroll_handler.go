package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PayrollHandler 工资差异与已付工时
type PayrollHandler struct {
	payrollSvc service.PayrollService
}

// NewPayrollHandler 创建 PayrollHandler
func NewPayrollHandler(payrollSvc service.PayrollService) *PayrollHandler {
	return &PayrollHandler{payrollSvc: payrollSvc}
}

// ────────────────────── 差异计算 ──────────────────────

// Run 计算一个工资周期的差异，起止为空时取上一个完整周
// POST /api/v1/payroll/run
func (h *PayrollHandler) Run(c *gin.Context) {
	var req dto.PayrollRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.Calculate(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OK(c, result)
}

// ListVariances 差异列表
// GET /api/v1/payroll/variances
func (h *PayrollHandler) ListVariances(c *gin.Context) {
	var req dto.PayrollVarianceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, total, err := h.payrollSvc.ListVariances(c.Request.Context(), &req)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// GetVariance 差异详情
// GET /api/v1/payroll/variances/:id
func (h *PayrollHandler) GetVariance(c *gin.Context) {
	v, err := h.payrollSvc.GetVariance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OK(c, v)
}

// UpdateStatus 审核差异（pending → investigating → resolved）
// PUT /api/v1/payroll/variances/:id/status
func (h *PayrollHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateVarianceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	v, err := h.payrollSvc.UpdateStatus(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OK(c, v)
}

// ExportVariances 导出差异为 Excel
// GET /api/v1/payroll/variances/export?from=&to=&status=
func (h *PayrollHandler) ExportVariances(c *gin.Context) {
	var req dto.PayrollExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "from 与 to 不能为空")
		return
	}

	buf, filename, err := h.payrollSvc.ExportVariances(c.Request.Context(), &req)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.File(c, xlsxContentType, filename, buf.Bytes())
}

// ────────────────────── 已付工时 ──────────────────────

// UpsertInput 录入已付工时，同一保安同一周期重复录入即覆盖
// PUT /api/v1/payroll/inputs
func (h *PayrollHandler) UpsertInput(c *gin.Context) {
	var req dto.PayrollInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	input, err := h.payrollSvc.UpsertInput(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OK(c, input)
}

// ListInputs 已付工时列表
// GET /api/v1/payroll/inputs
func (h *PayrollHandler) ListInputs(c *gin.Context) {
	var req dto.PayrollInputListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	items, total, err := h.payrollSvc.ListInputs(c.Request.Context(), &req)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OKPage(c, items, total, req.GetPage(), req.GetPageSize())
}

// ImportInputs 上传 .xlsx / .xls 批量导入，字段名 file
// POST /api/v1/payroll/inputs/import
func (h *PayrollHandler) ImportInputs(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 file 字段")
		return
	}
	defer file.Close()

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.ImportInputs(c.Request.Context(), header.Filename, file, callerID)
	if err != nil {
		h.handlePayrollError(c, err)
		return
	}

	response.OK(c, result)
}

// handlePayrollError 统一处理工资模块业务错误
func (h *PayrollHandler) handlePayrollError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVarianceNotFound):
		response.NotFound(c, 17001, "工资差异记录不存在")
	case errors.Is(err, service.ErrVarianceStatusTransition):
		response.Conflict(c, 17002, "工资差异当前状态不允许该操作")
	case errors.Is(err, service.ErrGuardNotFound):
		response.NotFound(c, 14002, "保安不存在")
	case errors.Is(err, service.ErrImportUnreadable):
		response.BadRequest(c, 17003, "无法读取上传的表格，仅支持 .xlsx / .xls")
	case errors.Is(err, service.ErrImportMissingCols):
		response.ErrorWithDetails(c, http.StatusBadRequest, 17004, "表头缺少必需列", err.Error())
	case errors.Is(err, service.ErrInvalidPayPeriod),
		errors.Is(err, service.ErrInvalidDate):
		badParam(c, err)
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
