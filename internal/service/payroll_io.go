package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 导入导出错误 ──

var (
	ErrImportUnreadable   = errors.New("无法读取上传的表格")
	ErrImportMissingCols  = errors.New("表头缺少必需列")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// 导入表头（不区分大小写）
var importColumns = []string{"badge_number", "pay_period_start", "pay_period_end", "hours_paid"}

const maxImportRows = 100000

// ════════════════════════════════════════════════════════════
// ImportInputs：从表格导入已付工时
// ════════════════════════════════════════════════════════════
//
// 表格格式：首行为表头，至少包含 badge_number / pay_period_start /
// pay_period_end / hours_paid 四列，列顺序不限。
// 日期支持 YYYY-MM-DD、DD/MM/YYYY 与 Excel 序列号。

func (s *payrollService) ImportInputs(ctx context.Context, filename string, r io.Reader, actorID string) (*dto.PayrollImportResponse, error) {
	rows, err := readSpreadsheetRows(r, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportUnreadable, err)
	}

	idx := make(map[string]int, len(importColumns))
	for i, h := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range importColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrImportMissingCols, col)
		}
	}

	result := &dto.PayrollImportResponse{Errors: []dto.ImportRowError{}}
	guards := make(map[string]*model.User)

	for i, row := range rows[1:] {
		rowNum := i + 2
		badge := cellAt(row, idx["badge_number"])
		if badge == "" && cellAt(row, idx["hours_paid"]) == "" {
			continue // 空行
		}

		input, err := s.parseImportRow(ctx, row, idx, guards)
		if err != nil {
			result.Errors = append(result.Errors, dto.ImportRowError{Row: rowNum, Message: err.Error()})
			continue
		}
		input.Source = "import"
		input.CreatedBy = actorPtr(actorID)
		input.UpdatedBy = actorPtr(actorID)

		if _, err := s.repo.PayrollInput.Upsert(ctx, input); err != nil {
			s.logger.Error("导入已付工时写入失败", zap.Int("row", rowNum), zap.Error(err))
			result.Errors = append(result.Errors, dto.ImportRowError{Row: rowNum, Message: "写入失败"})
			continue
		}
		result.Imported++
	}

	s.logger.Info("已付工时导入完成",
		zap.String("file", filename),
		zap.Int("imported", result.Imported),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *payrollService) parseImportRow(ctx context.Context, row []string, idx map[string]int, guards map[string]*model.User) (*model.PayrollInput, error) {
	badge := cellAt(row, idx["badge_number"])
	if badge == "" {
		return nil, errors.New("badge_number 为空")
	}

	guard, ok := guards[badge]
	if !ok {
		u, err := s.repo.User.GetByBadgeNumber(ctx, badge)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("工牌号 %s 不存在", badge)
			}
			return nil, fmt.Errorf("查询工牌号 %s 失败", badge)
		}
		guards[badge] = u
		guard = u
	}

	start, err := parseSheetDate(cellAt(row, idx["pay_period_start"]))
	if err != nil {
		return nil, fmt.Errorf("pay_period_start 无效: %v", err)
	}
	end, err := parseSheetDate(cellAt(row, idx["pay_period_end"]))
	if err != nil {
		return nil, fmt.Errorf("pay_period_end 无效: %v", err)
	}
	if _, _, err := s.parsePeriod(formatDate(start), formatDate(end)); err != nil {
		return nil, err
	}

	hours, err := strconv.ParseFloat(cellAt(row, idx["hours_paid"]), 64)
	if err != nil || hours < 0 {
		return nil, fmt.Errorf("hours_paid 无效: %q", cellAt(row, idx["hours_paid"]))
	}

	return &model.PayrollInput{
		GuardID:        guard.UserID,
		PayPeriodStart: start,
		PayPeriodEnd:   end,
		HoursPaid:      round2(hours),
	}, nil
}

// readSpreadsheetRows .xls 走 extrame/xls，其余按 xlsx 读取首个工作表
func readSpreadsheetRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if wb.NumSheets() == 0 {
			return nil, errors.New("没有工作表")
		}
		rows := wb.ReadAllCells(maxImportRows)
		if len(rows) == 0 {
			return nil, errors.New("工作表为空")
		}
		return rows, nil
	default:
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()

		sheet := f.GetSheetName(0)
		if sheet == "" {
			return nil, errors.New("没有工作表")
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.New("工作表为空")
		}
		return rows, nil
	}
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseSheetDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("为空")
	}
	for _, layout := range []string{model.DateLayout, "02/01/2006", "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return model.DateOf(t), nil
	}
	return time.Time{}, fmt.Errorf("无法识别 %q", v)
}

// ════════════════════════════════════════════════════════════
// ExportVariances：导出工资差异为 Excel
// ════════════════════════════════════════════════════════════
//
// 单 Sheet「工资差异」：标题行 + 表头 + 每条差异一行，
// 差异为正（少付）标红，为负（多付）标绿。

func (s *payrollService) ExportVariances(ctx context.Context, req *dto.PayrollExportRequest) (*bytes.Buffer, string, error) {
	from, to, err := s.parsePeriodLoose(req.From, req.To)
	if err != nil {
		return nil, "", err
	}

	list, _, err := s.repo.PayrollVariance.List(ctx, repository.PayrollVarianceFilter{
		Status: req.Status,
		From:   &from,
		To:     &to,
	}, 0, 0)
	if err != nil {
		s.logger.Error("查询导出数据失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "工资差异"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"工牌号", "姓名", "周期开始", "周期结束", "排班工时", "实际工时", "已付工时", "差异", "状态", "审核备注"}
	widths := []float64{12, 16, 12, 12, 10, 10, 10, 10, 12, 30}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheet, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	underpaidStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#C00000"}, NumFmt: 2})
	overpaidStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "#00802B"}, NumFmt: 2})

	f.SetCellValue(sheet, "A1", fmt.Sprintf("工资差异 %s 至 %s", formatDate(from), formatDate(to)))
	f.MergeCell(sheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	row := 3
	for i := range list {
		v := &list[i]
		badge, name := "", ""
		if v.Guard != nil {
			badge, name = v.Guard.BadgeNumber, v.Guard.Name
		}
		values := []interface{}{
			badge, name, formatDate(v.VarianceDate), formatDate(v.PayPeriodEnd),
			v.ScheduledHours, v.ActualHours, v.PaidHours, v.VarianceHours,
			v.Status, v.ReviewNote,
		}
		for c, val := range values {
			f.SetCellValue(sheet, cell(colName(c), row), val)
		}
		varianceCell := cell(colName(7), row)
		if v.VarianceHours > 0 {
			f.SetCellStyle(sheet, varianceCell, varianceCell, underpaidStyle)
		} else {
			f.SetCellStyle(sheet, varianceCell, varianceCell, overpaidStyle)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("payroll_variances_%s_%s.xlsx", formatDate(from), formatDate(to))
	return buf, filename, nil
}

// parsePeriodLoose 导出只校验日期格式与先后，不限制跨度
func (s *payrollService) parsePeriodLoose(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := model.ParseDate(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	to, err := model.ParseDate(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 结束日期早于开始日期", ErrInvalidPayPeriod)
	}
	return from, to, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
