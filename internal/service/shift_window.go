package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"guardian/backend/internal/model"
)

// ── 时间计算公共错误 ──

var (
	ErrInvalidClockTime  = errors.New("时间格式无效，应为 HH:MM 或 HH:MM:SS")
	ErrInvalidDate       = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidShiftTimes = errors.New("班次时间无效")
)

// parseClock 解析 "HH:MM" / "HH:MM:SS"，返回距午夜的时长
func parseClock(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, ErrInvalidClockTime
	}

	limits := []int{23, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		if len(p) != 2 {
			return 0, ErrInvalidClockTime
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, ErrInvalidClockTime
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

// atClock 在 loc 时区下，取 date 所在日历日加 dayOffset 天后的 clock 时刻
// 按墙上时间构造，夏令时切换日也能得到正确的本地时刻
func atClock(date time.Time, dayOffset int, clock time.Duration, loc *time.Location) time.Time {
	h := int(clock / time.Hour)
	m := int(clock % time.Hour / time.Minute)
	sec := int(clock % time.Minute / time.Second)
	return time.Date(date.Year(), date.Month(), date.Day()+dayOffset, h, m, sec, 0, loc)
}

// breakSpan 已落到具体时刻的休息时段，区间 [start, end)
type breakSpan struct {
	window model.BreakWindow
	start  time.Time
	end    time.Time
}

func (b breakSpan) contains(t time.Time) bool {
	return !t.Before(b.start) && t.Before(b.end)
}

// shiftSpan 已落到具体时刻的班次，区间 [start, end)
type shiftSpan struct {
	shift  *model.Shift
	start  time.Time
	end    time.Time
	breaks []breakSpan
}

func (s shiftSpan) contains(t time.Time) bool {
	return !t.Before(s.start) && t.Before(s.end)
}

func (s shiftSpan) overlaps(o shiftSpan) bool {
	return s.start.Before(o.end) && o.start.Before(s.end)
}

// hours 班次总时长（小时）
func (s shiftSpan) hours() float64 {
	return s.end.Sub(s.start).Hours()
}

// unpaidBreakHours 不带薪休息总时长（小时）
func (s shiftSpan) unpaidBreakHours() float64 {
	var d time.Duration
	for _, b := range s.breaks {
		if !b.window.Paid {
			d += b.end.Sub(b.start)
		}
	}
	return d.Hours()
}

// buildShiftSpan 把班次的日期 + 墙上时间换算为绝对时刻
//   - 结束时间早于开始时间：跨午夜，结束落在次日
//   - 休息开始早于班次开始：休息落在次日
//   - 休息结束不晚于休息开始：休息跨午夜
func buildShiftSpan(shift *model.Shift, loc *time.Location) (shiftSpan, error) {
	startClock, err := parseClock(shift.StartTime)
	if err != nil {
		return shiftSpan{}, fmt.Errorf("%w: start_time=%q", ErrInvalidShiftTimes, shift.StartTime)
	}
	endClock, err := parseClock(shift.EndTime)
	if err != nil {
		return shiftSpan{}, fmt.Errorf("%w: end_time=%q", ErrInvalidShiftTimes, shift.EndTime)
	}
	if startClock == endClock {
		return shiftSpan{}, fmt.Errorf("%w: 开始与结束时间相同", ErrInvalidShiftTimes)
	}

	span := shiftSpan{
		shift: shift,
		start: atClock(shift.ShiftDate, 0, startClock, loc),
	}
	endOffset := 0
	if endClock < startClock {
		endOffset = 1
	}
	span.end = atClock(shift.ShiftDate, endOffset, endClock, loc)

	for _, b := range shift.Breaks {
		bs, err := parseClock(b.StartTime)
		if err != nil {
			return shiftSpan{}, fmt.Errorf("%w: break start_time=%q", ErrInvalidShiftTimes, b.StartTime)
		}
		be, err := parseClock(b.EndTime)
		if err != nil {
			return shiftSpan{}, fmt.Errorf("%w: break end_time=%q", ErrInvalidShiftTimes, b.EndTime)
		}

		startOffset := 0
		if bs < startClock {
			startOffset = 1
		}
		endOffset := startOffset
		if be <= bs {
			endOffset++
		}
		span.breaks = append(span.breaks, breakSpan{
			window: b,
			start:  atClock(shift.ShiftDate, startOffset, bs, loc),
			end:    atClock(shift.ShiftDate, endOffset, be, loc),
		})
	}

	return span, nil
}

// shiftStart 仅计算班次开始时刻
func shiftStart(shift *model.Shift, loc *time.Location) (time.Time, error) {
	clock, err := parseClock(shift.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_time=%q", ErrInvalidShiftTimes, shift.StartTime)
	}
	return atClock(shift.ShiftDate, 0, clock, loc), nil
}

// validateShiftSpan 新建 / 修改班次时的校验：休息必须落在班次内且互不重叠
func validateShiftSpan(span shiftSpan) error {
	for i, b := range span.breaks {
		if b.start.Before(span.start) || b.end.After(span.end) {
			return fmt.Errorf("%w: 休息 %s-%s 超出班次范围", ErrInvalidShiftTimes, b.window.StartTime, b.window.EndTime)
		}
		for _, o := range span.breaks[i+1:] {
			if b.start.Before(o.end) && o.start.Before(b.end) {
				return fmt.Errorf("%w: 休息时段重叠", ErrInvalidShiftTimes)
			}
		}
	}
	return nil
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
