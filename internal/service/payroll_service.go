package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"guardian/backend/config"
	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// ── 工资差异模块业务错误 ──

var (
	ErrInvalidPayPeriod         = errors.New("工资周期无效")
	ErrVarianceNotFound         = errors.New("工资差异记录不存在")
	ErrVarianceStatusTransition = errors.New("工资差异当前状态不允许该操作")
	ErrGuardNotFound            = errors.New("保安不存在")
)

// 缺少已付工时记录时的处理策略
const (
	MissingInputSkip = "skip"
	MissingInputZero = "zero"
)

// 允许的审核流转
var varianceTransitions = map[string][]string{
	model.VariancePending:       {model.VarianceInvestigating, model.VarianceResolved},
	model.VarianceInvestigating: {model.VarianceResolved},
}

// PayrollService 工资差异业务接口
type PayrollService interface {
	// Calculate 计算一个周期的差异；起止为空时取上一个完整周
	Calculate(ctx context.Context, req *dto.PayrollRunRequest, actorID string) (*dto.PayrollRunResponse, error)
	ListVariances(ctx context.Context, req *dto.PayrollVarianceListRequest) ([]dto.PayrollVarianceResponse, int64, error)
	GetVariance(ctx context.Context, id string) (*dto.PayrollVarianceResponse, error)
	UpdateStatus(ctx context.Context, id string, req *dto.UpdateVarianceStatusRequest, actorID string) (*dto.PayrollVarianceResponse, error)

	UpsertInput(ctx context.Context, req *dto.PayrollInputRequest, actorID string) (*dto.PayrollInputResponse, error)
	ListInputs(ctx context.Context, req *dto.PayrollInputListRequest) ([]dto.PayrollInputResponse, int64, error)
	// ImportInputs 从 .xlsx / .xls 导入已付工时，坏行逐行报告，不影响其他行
	ImportInputs(ctx context.Context, filename string, r io.Reader, actorID string) (*dto.PayrollImportResponse, error)
	// ExportVariances 导出差异为 Excel
	ExportVariances(ctx context.Context, req *dto.PayrollExportRequest) (*bytes.Buffer, string, error)
}

type payrollService struct {
	cfg    *config.Config
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewPayrollService 创建 PayrollService 实例
func NewPayrollService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) PayrollService {
	return &payrollService{
		cfg:    cfg,
		repo:   repo,
		loc:    cfg.Server.Location(),
		now:    time.Now,
		logger: logger,
	}
}

// ════════════════════════════════════════════════════════════
// 周期
// ════════════════════════════════════════════════════════════

// resolvePeriod 解析显式周期（闭区间），或取 now 之前最近一个完整的周一至周日
func (s *payrollService) resolvePeriod(req *dto.PayrollRunRequest) (time.Time, time.Time, error) {
	if req.PeriodStart == "" && req.PeriodEnd == "" {
		start, end := lastCompleteWeek(s.now().In(s.loc))
		return start, end, nil
	}
	if req.PeriodStart == "" || req.PeriodEnd == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 起止日期需同时提供", ErrInvalidPayPeriod)
	}
	return s.parsePeriod(req.PeriodStart, req.PeriodEnd)
}

func (s *payrollService) parsePeriod(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := model.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period_start=%q", ErrInvalidPayPeriod, startStr)
	}
	end, err := model.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: period_end=%q", ErrInvalidPayPeriod, endStr)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 结束日期早于开始日期", ErrInvalidPayPeriod)
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if maxDays := s.cfg.Payroll.MaxPeriodDays; maxDays > 0 && days > maxDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 周期不能超过 %d 天", ErrInvalidPayPeriod, maxDays)
	}
	return start, end, nil
}

// lastCompleteWeek now 所在周的上一周（周一至周日）
func lastCompleteWeek(now time.Time) (time.Time, time.Time) {
	today := model.DateOf(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	thisMonday := today.AddDate(0, 0, -sinceMonday)
	start := thisMonday.AddDate(0, 0, -7)
	return start, start.AddDate(0, 0, 6)
}

// ════════════════════════════════════════════════════════════
// 计算
// ════════════════════════════════════════════════════════════

// guardHours 单个保安在周期内的排班工时
type guardHours struct {
	scheduled float64
	actual    float64
}

// Calculate 流程：
//  1. 拉取周期内的班次、已付工时、已有差异；任一失败则中止
//  2. 按保安独立计算，单个保安失败只记入 failed，不影响其他保安
//  3. |差异| 超过阈值才落库；已有记录仅在 pending 时覆盖
func (s *payrollService) Calculate(ctx context.Context, req *dto.PayrollRunRequest, actorID string) (*dto.PayrollRunResponse, error) {
	start, end, err := s.resolvePeriod(req)
	if err != nil {
		return nil, err
	}

	st, err := loadSettings(ctx, s.repo.SystemConfig, s.cfg)
	if err != nil {
		s.logger.Error("工资差异计算中止：读取配置失败", zap.Error(err))
		return nil, err
	}

	shifts, err := s.repo.Shift.ListByDateRange(ctx, start, end)
	if err != nil {
		s.logger.Error("工资差异计算中止：查询班次失败", zap.Error(err))
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}
	inputs, err := s.repo.PayrollInput.ListByPeriod(ctx, start, end)
	if err != nil {
		s.logger.Error("工资差异计算中止：查询已付工时失败", zap.Error(err))
		return nil, fmt.Errorf("查询已付工时失败: %w", err)
	}
	existingList, err := s.repo.PayrollVariance.ListByPeriod(ctx, start, end)
	if err != nil {
		s.logger.Error("工资差异计算中止：查询已有差异失败", zap.Error(err))
		return nil, fmt.Errorf("查询已有差异失败: %w", err)
	}

	paid := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		paid[in.GuardID] += in.HoursPaid
	}
	existing := make(map[string]*model.PayrollVariance, len(existingList))
	for i := range existingList {
		existing[existingList[i].GuardID] = &existingList[i]
	}

	shiftsByGuard := make(map[string][]*model.Shift)
	for i := range shifts {
		shiftsByGuard[shifts[i].GuardID] = append(shiftsByGuard[shifts[i].GuardID], &shifts[i])
	}

	// 有已付工时但没有排班的保安同样要比对
	guardSet := make(map[string]struct{}, len(shiftsByGuard)+len(paid))
	for id := range shiftsByGuard {
		guardSet[id] = struct{}{}
	}
	for id := range paid {
		guardSet[id] = struct{}{}
	}
	guardIDs := make([]string, 0, len(guardSet))
	for id := range guardSet {
		guardIDs = append(guardIDs, id)
	}
	sort.Strings(guardIDs)

	result := &dto.PayrollRunResponse{
		PeriodStart:    formatDate(start),
		PeriodEnd:      formatDate(end),
		ThresholdHours: st.VarianceThreshold,
		GuardsScanned:  len(guardIDs),
		Failed:         []dto.PayrollFailure{},
		Variances:      []dto.PayrollVarianceResponse{},
	}

	for _, guardID := range guardIDs {
		hours, err := s.sumHours(shiftsByGuard[guardID])
		if err != nil {
			s.logger.Warn("保安工时计算失败", zap.String("guard_id", guardID), zap.Error(err))
			result.Failed = append(result.Failed, dto.PayrollFailure{GuardID: guardID, Reason: err.Error()})
			continue
		}

		paidHours, ok := paid[guardID]
		if !ok {
			if s.cfg.Payroll.MissingInputPolicy != MissingInputZero {
				result.SkippedNoInput++
				s.logger.Info("缺少已付工时，跳过", zap.String("guard_id", guardID),
					zap.String("period_start", result.PeriodStart))
				continue
			}
			paidHours = 0
		}

		variance := round2(hours.actual - paidHours)
		if math.Abs(variance) <= st.VarianceThreshold {
			result.WithinThreshold++
			// 已付工时更正后差异消失，撤销尚未审核的旧记录；审核中的保持原样
			if old := existing[guardID]; old != nil && old.Status == model.VariancePending {
				cleared, err := s.repo.PayrollVariance.DeleteIfPending(ctx, old.VarianceID)
				if err != nil {
					s.logger.Error("撤销工资差异失败", zap.String("guard_id", guardID), zap.Error(err))
					result.Failed = append(result.Failed, dto.PayrollFailure{GuardID: guardID, Reason: "撤销旧差异失败"})
					continue
				}
				if cleared {
					result.Cleared++
				}
			}
			continue
		}

		v := &model.PayrollVariance{
			GuardID:        guardID,
			VarianceDate:   start,
			PayPeriodEnd:   end,
			ScheduledHours: hours.scheduled,
			ActualHours:    hours.actual,
			PaidHours:      round2(paidHours),
			VarianceHours:  variance,
			Status:         model.VariancePending,
		}
		v.CreatedBy = actorPtr(actorID)
		v.UpdatedBy = actorPtr(actorID)

		outcome, err := s.saveVariance(ctx, v, existing[guardID])
		if err != nil {
			s.logger.Error("保存工资差异失败", zap.String("guard_id", guardID), zap.Error(err))
			result.Failed = append(result.Failed, dto.PayrollFailure{GuardID: guardID, Reason: "保存失败"})
			continue
		}
		switch outcome {
		case saveCreated:
			result.Created++
		case saveUpdated:
			result.Updated++
		case saveLocked:
			result.Locked++
			continue
		}
		result.Variances = append(result.Variances, toVarianceResponse(v))
	}

	s.logger.Info("工资差异计算完成",
		zap.String("period_start", result.PeriodStart),
		zap.String("period_end", result.PeriodEnd),
		zap.Int("guards", result.GuardsScanned),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("locked", result.Locked),
		zap.Int("cleared", result.Cleared),
		zap.Int("skipped_no_input", result.SkippedNoInput),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *payrollService) sumHours(shifts []*model.Shift) (guardHours, error) {
	var h guardHours
	for _, shift := range shifts {
		span, err := buildShiftSpan(shift, s.loc)
		if err != nil {
			return guardHours{}, fmt.Errorf("班次 %s: %w", shift.ShiftID, err)
		}
		h.scheduled += span.hours()
		h.actual += span.hours() - span.unpaidBreakHours()
	}
	h.scheduled = round2(h.scheduled)
	h.actual = round2(h.actual)
	return h, nil
}

type saveOutcome int

const (
	saveCreated saveOutcome = iota
	saveUpdated
	saveLocked
)

// saveVariance 新建或覆盖 pending 记录；并发运行抢先插入时转为覆盖
func (s *payrollService) saveVariance(ctx context.Context, v, existing *model.PayrollVariance) (saveOutcome, error) {
	if existing == nil {
		created, err := s.repo.PayrollVariance.CreateIfAbsent(ctx, v)
		if err != nil {
			return 0, err
		}
		if created {
			return saveCreated, nil
		}
		existing, err = s.repo.PayrollVariance.GetByGuardAndPeriod(ctx, v.GuardID, v.VarianceDate, v.PayPeriodEnd)
		if err != nil {
			return 0, err
		}
	}

	if existing.Status != model.VariancePending {
		return saveLocked, nil
	}
	v.VarianceID = existing.VarianceID
	v.CreatedAt = existing.CreatedAt
	v.CreatedBy = existing.CreatedBy
	ok, err := s.repo.PayrollVariance.UpdateIfPending(ctx, v)
	if err != nil {
		return 0, err
	}
	if !ok {
		return saveLocked, nil
	}
	return saveUpdated, nil
}

// ════════════════════════════════════════════════════════════
// 查询与审核
// ════════════════════════════════════════════════════════════

func (s *payrollService) ListVariances(ctx context.Context, req *dto.PayrollVarianceListRequest) ([]dto.PayrollVarianceResponse, int64, error) {
	filter := repository.PayrollVarianceFilter{Status: req.Status, GuardID: req.GuardID}
	if req.From != "" {
		from, err := model.ParseDate(req.From)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := model.ParseDate(req.To)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.To = &to
	}

	list, total, err := s.repo.PayrollVariance.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询工资差异列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.PayrollVarianceResponse, 0, len(list))
	for i := range list {
		result = append(result, toVarianceResponse(&list[i]))
	}
	return result, total, nil
}

func (s *payrollService) GetVariance(ctx context.Context, id string) (*dto.PayrollVarianceResponse, error) {
	v, err := s.getVariance(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toVarianceResponse(v)
	return &resp, nil
}

// UpdateStatus pending → investigating → resolved（pending 可直接 resolved）
func (s *payrollService) UpdateStatus(ctx context.Context, id string, req *dto.UpdateVarianceStatusRequest, actorID string) (*dto.PayrollVarianceResponse, error) {
	v, err := s.getVariance(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(v.Status, req.Status) {
		return nil, ErrVarianceStatusTransition
	}

	from := v.Status
	now := s.now().UTC()
	v.Status = req.Status
	v.ReviewedBy = actorPtr(actorID)
	v.ReviewedAt = &now
	if req.Note != "" {
		v.ReviewNote = req.Note
	}
	v.UpdatedBy = actorPtr(actorID)

	ok, err := s.repo.PayrollVariance.UpdateReview(ctx, v, from)
	if err != nil {
		s.logger.Error("更新工资差异状态失败", zap.String("variance_id", id), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrVarianceStatusTransition
	}

	resp := toVarianceResponse(v)
	return &resp, nil
}

func canTransition(from, to string) bool {
	for _, allowed := range varianceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *payrollService) getVariance(ctx context.Context, id string) (*model.PayrollVariance, error) {
	v, err := s.repo.PayrollVariance.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVarianceNotFound
		}
		s.logger.Error("查询工资差异失败", zap.String("variance_id", id), zap.Error(err))
		return nil, err
	}
	return v, nil
}

// ════════════════════════════════════════════════════════════
// 已付工时
// ════════════════════════════════════════════════════════════

func (s *payrollService) UpsertInput(ctx context.Context, req *dto.PayrollInputRequest, actorID string) (*dto.PayrollInputResponse, error) {
	start, end, err := s.parsePeriod(req.PayPeriodStart, req.PayPeriodEnd)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.User.GetByID(ctx, req.GuardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardNotFound
		}
		s.logger.Error("查询保安失败", zap.String("guard_id", req.GuardID), zap.Error(err))
		return nil, err
	}

	input := &model.PayrollInput{
		GuardID:        req.GuardID,
		PayPeriodStart: start,
		PayPeriodEnd:   end,
		HoursPaid:      round2(*req.HoursPaid),
		Source:         "manual",
	}
	input.CreatedBy = actorPtr(actorID)
	input.UpdatedBy = actorPtr(actorID)

	saved, err := s.repo.PayrollInput.Upsert(ctx, input)
	if err != nil {
		s.logger.Error("保存已付工时失败", zap.String("guard_id", req.GuardID), zap.Error(err))
		return nil, err
	}
	resp := toInputResponse(saved)
	return &resp, nil
}

func (s *payrollService) ListInputs(ctx context.Context, req *dto.PayrollInputListRequest) ([]dto.PayrollInputResponse, int64, error) {
	filter := repository.PayrollInputFilter{GuardID: req.GuardID}
	if req.PeriodStart != "" {
		d, err := model.ParseDate(req.PeriodStart)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.PeriodStart = &d
	}
	if req.PeriodEnd != "" {
		d, err := model.ParseDate(req.PeriodEnd)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filter.PeriodEnd = &d
	}

	list, total, err := s.repo.PayrollInput.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询已付工时列表失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.PayrollInputResponse, 0, len(list))
	for i := range list {
		result = append(result, toInputResponse(&list[i]))
	}
	return result, total, nil
}
