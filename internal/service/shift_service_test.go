package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	pkgerrors "guardian/backend/pkg/errors"
)

func setupShift() (*shiftService, *mockRepos) {
	repo, m := newMockRepos()
	svc := NewShiftService(repo, london(), zap.NewNop()).(*shiftService)
	svc.now = fixedNow(at("2025-06-02", "08:00"))
	return svc, m
}

func shiftReq(guardID, date, start, end string) *dto.CreateShiftRequest {
	return &dto.CreateShiftRequest{GuardID: guardID, ShiftDate: date, StartTime: start, EndTime: end}
}

// ────────────────────── Create ──────────────────────

func TestShiftCreate_Success(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	m.site.sites["site-1"] = &model.Site{SiteID: "site-1", Name: "中心广场", IsActive: true}

	req := shiftReq("g1", "2025-06-02", "22:00", "06:00")
	siteID := "site-1"
	req.SiteID = &siteID
	req.Breaks = []dto.BreakWindow{{StartTime: "02:00", EndTime: "02:30"}}

	resp, err := svc.Create(context.Background(), req, "sup-1")
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}
	if resp.ShiftDate != "2025-06-02" || resp.EndTime != "06:00" || len(resp.Breaks) != 1 {
		t.Errorf("返回信息错误: %+v", resp)
	}
	if resp.Version != 1 {
		t.Errorf("新班次版本应为 1，实际=%d", resp.Version)
	}
}

func TestShiftCreate_Validation(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	addUser(m, "s1", "S001", model.RoleSupervisor)
	addShift(m, "g1", "2025-06-01", "22:00", "06:00")

	missingSite := "site-404"
	tests := []struct {
		name string
		req  *dto.CreateShiftRequest
		want error
	}{
		{"日期格式错误", shiftReq("g1", "02/06/2025", "09:00", "17:00"), ErrInvalidDate},
		{"时间格式错误", shiftReq("g1", "2025-06-02", "9:00", "17:00"), ErrInvalidShiftTimes},
		{"开始等于结束", shiftReq("g1", "2025-06-02", "09:00", "09:00"), ErrInvalidShiftTimes},
		{"保安不存在", shiftReq("nobody", "2025-06-02", "09:00", "17:00"), ErrGuardNotFound},
		{"非保安角色", shiftReq("s1", "2025-06-02", "09:00", "17:00"), ErrShiftGuardRole},
		{"与前一天夜班重叠", shiftReq("g1", "2025-06-02", "05:00", "13:00"), ErrOverlappingShifts},
		{"站点不存在", func() *dto.CreateShiftRequest {
			r := shiftReq("g1", "2025-06-03", "09:00", "17:00")
			r.SiteID = &missingSite
			return r
		}(), ErrSiteNotFound},
		{"休息超出班次", func() *dto.CreateShiftRequest {
			r := shiftReq("g1", "2025-06-03", "09:00", "17:00")
			r.Breaks = []dto.BreakWindow{{StartTime: "16:45", EndTime: "17:15"}}
			return r
		}(), ErrInvalidShiftTimes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.req, "sup-1"); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestShiftCreate_AdjacentAllowed(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	addShift(m, "g1", "2025-06-01", "22:00", "06:00")

	if _, err := svc.Create(context.Background(), shiftReq("g1", "2025-06-02", "06:00", "14:00"), "sup-1"); err != nil {
		t.Errorf("首尾相接不算重叠: %v", err)
	}
}

func TestShiftCreate_IgnoresMalformedNeighbour(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	addShift(m, "g1", "2025-06-02", "bad", "17:00")

	if _, err := svc.Create(context.Background(), shiftReq("g1", "2025-06-02", "09:00", "17:00"), "sup-1"); err != nil {
		t.Errorf("历史脏数据不应阻塞新排班: %v", err)
	}
}

// ────────────────────── Update / Delete ──────────────────────

func TestShiftUpdate(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	shift := addShift(m, "g1", "2025-06-02", "09:00", "17:00")

	end := "18:00"
	resp, err := svc.Update(context.Background(), shift.ShiftID, &dto.UpdateShiftRequest{EndTime: &end, Version: 1}, "sup-1")
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if resp.EndTime != "18:00" || resp.Version != 2 {
		t.Errorf("更新结果错误: end=%s version=%d", resp.EndTime, resp.Version)
	}

	if _, err := svc.Update(context.Background(), shift.ShiftID, &dto.UpdateShiftRequest{EndTime: &end, Version: 1}, "sup-1"); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本应报乐观锁冲突，实际: %v", err)
	}
}

func TestShiftUpdate_DoesNotOverlapItself(t *testing.T) {
	svc, m := setupShift()
	addGuard(m, "g1", "B001")
	shift := addShift(m, "g1", "2025-06-02", "09:00", "17:00")

	start := "10:00"
	if _, err := svc.Update(context.Background(), shift.ShiftID, &dto.UpdateShiftRequest{StartTime: &start, Version: 1}, "sup-1"); err != nil {
		t.Errorf("与自身旧时段不算重叠: %v", err)
	}
}

func TestShiftDelete(t *testing.T) {
	svc, m := setupShift()
	shift := addShift(m, "g1", "2025-06-02", "09:00", "17:00")

	if err := svc.Delete(context.Background(), shift.ShiftID, "sup-1"); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if err := svc.Delete(context.Background(), shift.ShiftID, "sup-1"); !errors.Is(err, ErrShiftNotFound) {
		t.Errorf("期望 ErrShiftNotFound，实际: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), shift.ShiftID); !errors.Is(err, ErrShiftNotFound) {
		t.Errorf("期望 ErrShiftNotFound，实际: %v", err)
	}
}

// ────────────────────── List ──────────────────────

func TestShiftList(t *testing.T) {
	svc, m := setupShift()
	addShift(m, "g1", "2025-06-01", "09:00", "17:00")
	addShift(m, "g1", "2025-06-02", "09:00", "17:00")
	addShift(m, "g2", "2025-06-02", "09:00", "17:00")

	list, total, err := svc.List(context.Background(), &dto.ShiftListRequest{GuardID: "g1", From: "2025-06-02"})
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].ShiftDate != "2025-06-02" {
		t.Errorf("过滤结果错误: total=%d list=%+v", total, list)
	}
}

func TestShiftListMine(t *testing.T) {
	svc, m := setupShift()
	addShift(m, "g1", "2025-06-01", "09:00", "17:00")
	addShift(m, "g1", "2025-06-02", "09:00", "17:00")
	addShift(m, "g1", "2025-06-15", "09:00", "17:00")
	addShift(m, "g1", "2025-06-16", "09:00", "17:00")

	list, err := svc.ListMine(context.Background(), "g1", &dto.MyShiftsRequest{})
	if err != nil {
		t.Fatalf("不应报错: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("默认应返回今天起 14 天内的 2 个班次，实际=%d", len(list))
	}

	if _, err := svc.ListMine(context.Background(), "g1", &dto.MyShiftsRequest{From: "2025-01-01", To: "2025-12-31"}); !errors.Is(err, ErrShiftRangeTooBig) {
		t.Errorf("期望 ErrShiftRangeTooBig，实际: %v", err)
	}
	if _, err := svc.ListMine(context.Background(), "g1", &dto.MyShiftsRequest{From: "2025-06-10", To: "2025-06-01"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}
