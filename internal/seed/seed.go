// Package seed 从 YAML 文件导入演示 / 初始数据
// 重复导入是安全的：已存在的记录跳过，已付工时按周期覆盖
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
)

// File 种子文件结构
type File struct {
	Sites         []Site         `yaml:"sites"`
	Users         []User         `yaml:"users"`
	Shifts        []Shift        `yaml:"shifts"`
	PayrollInputs []PayrollInput `yaml:"payroll_inputs"`
	Licences      []Licence      `yaml:"licences"`
}

type Site struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type User struct {
	Name           string `yaml:"name"`
	BadgeNumber    string `yaml:"badge_number"`
	Email          string `yaml:"email"`
	Phone          string `yaml:"phone"`
	Password       string `yaml:"password"`
	Role           string `yaml:"role"`
	TelegramChatID *int64 `yaml:"telegram_chat_id"`
}

type Break struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Paid  bool   `yaml:"paid"`
}

// Shift 班次按工号与站点名引用
type Shift struct {
	Badge    string  `yaml:"badge"`
	Site     string  `yaml:"site"`
	Date     string  `yaml:"date"`
	Start    string  `yaml:"start"`
	End      string  `yaml:"end"`
	Position string  `yaml:"position"`
	Notes    string  `yaml:"notes"`
	Breaks   []Break `yaml:"breaks"`
}

type PayrollInput struct {
	Badge       string  `yaml:"badge"`
	PeriodStart string  `yaml:"period_start"`
	PeriodEnd   string  `yaml:"period_end"`
	HoursPaid   float64 `yaml:"hours_paid"`
}

type Licence struct {
	Badge  string `yaml:"badge"`
	Type   string `yaml:"type"`
	Number string `yaml:"number"`
	Expiry string `yaml:"expiry"`
}

// Result 导入统计
type Result struct {
	Sites         int `json:"sites"`
	Users         int `json:"users"`
	Shifts        int `json:"shifts"`
	PayrollInputs int `json:"payroll_inputs"`
	Licences      int `json:"licences"`
	Skipped       int `json:"skipped"`
}

// Decode 解析种子文件，未知字段视为错误
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}
	return &f, nil
}

// LoadFile 读取并解析种子文件
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开种子文件失败: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Seeder 在单个事务内导入种子数据
type Seeder struct {
	repo       *repository.Repository
	logger     *zap.Logger
	bcryptCost int
}

func NewSeeder(repo *repository.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{repo: repo, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// Apply 导入种子数据，任何一步失败整体回滚
func (s *Seeder) Apply(ctx context.Context, f *File) (*Result, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	res, err := s.apply(ctx, s.repo.WithTx(tx), f)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("种子数据导入完成",
		zap.Int("sites", res.Sites),
		zap.Int("users", res.Users),
		zap.Int("shifts", res.Shifts),
		zap.Int("payroll_inputs", res.PayrollInputs),
		zap.Int("licences", res.Licences),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Seeder) apply(ctx context.Context, repo *repository.Repository, f *File) (*Result, error) {
	res := &Result{}

	// ── 站点 ──
	existingSites, err := repo.Site.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("查询站点失败: %w", err)
	}
	sites := make(map[string]string, len(existingSites))
	for _, st := range existingSites {
		sites[st.Name] = st.SiteID
	}
	for _, in := range f.Sites {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, errors.New("站点名称不能为空")
		}
		if _, ok := sites[name]; ok {
			res.Skipped++
			continue
		}
		site := &model.Site{Name: name, Address: in.Address, IsActive: true}
		if err := repo.Site.Create(ctx, site); err != nil {
			return nil, fmt.Errorf("创建站点 %s 失败: %w", name, err)
		}
		sites[name] = site.SiteID
		res.Sites++
	}

	// ── 用户 ──
	users := make(map[string]string)
	for _, in := range f.Users {
		id, created, err := s.ensureUser(ctx, repo, in)
		if err != nil {
			return nil, err
		}
		users[in.BadgeNumber] = id
		if created {
			res.Users++
		} else {
			res.Skipped++
		}
	}
	guardID := func(badge string) (string, error) {
		if id, ok := users[badge]; ok {
			return id, nil
		}
		u, err := repo.User.GetByBadgeNumber(ctx, badge)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", fmt.Errorf("工号 %s 不存在", badge)
			}
			return "", err
		}
		users[badge] = u.UserID
		return u.UserID, nil
	}

	// ── 班次 ──
	for _, in := range f.Shifts {
		created, err := s.ensureShift(ctx, repo, in, sites, guardID)
		if err != nil {
			return nil, err
		}
		if created {
			res.Shifts++
		} else {
			res.Skipped++
		}
	}

	// ── 已付工时 ──
	for _, in := range f.PayrollInputs {
		id, err := guardID(in.Badge)
		if err != nil {
			return nil, err
		}
		start, err := model.ParseDate(in.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("工资周期开始日期无效: %q", in.PeriodStart)
		}
		end, err := model.ParseDate(in.PeriodEnd)
		if err != nil || end.Before(start) {
			return nil, fmt.Errorf("工资周期结束日期无效: %q", in.PeriodEnd)
		}
		if in.HoursPaid < 0 {
			return nil, fmt.Errorf("工号 %s 已付工时不能为负数", in.Badge)
		}
		if _, err := repo.PayrollInput.Upsert(ctx, &model.PayrollInput{
			GuardID:        id,
			PayPeriodStart: start,
			PayPeriodEnd:   end,
			HoursPaid:      in.HoursPaid,
			Source:         "import",
		}); err != nil {
			return nil, fmt.Errorf("写入已付工时失败: %w", err)
		}
		res.PayrollInputs++
	}

	// ── 上岗证 ──
	for _, in := range f.Licences {
		id, err := guardID(in.Badge)
		if err != nil {
			return nil, err
		}
		expiry, err := model.ParseDate(in.Expiry)
		if err != nil {
			return nil, fmt.Errorf("上岗证到期日无效: %q", in.Expiry)
		}
		existing, _, err := repo.Licence.List(ctx, id, 0, 1000)
		if err != nil {
			return nil, fmt.Errorf("查询上岗证失败: %w", err)
		}
		if hasLicence(existing, in.Number) {
			res.Skipped++
			continue
		}
		if err := repo.Licence.Create(ctx, &model.Licence{
			GuardID:       id,
			LicenceType:   in.Type,
			LicenceNumber: in.Number,
			ExpiryDate:    expiry,
		}); err != nil {
			return nil, fmt.Errorf("创建上岗证失败: %w", err)
		}
		res.Licences++
	}

	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, repo *repository.Repository, in User) (string, bool, error) {
	if in.BadgeNumber == "" || in.Name == "" {
		return "", false, errors.New("用户的姓名与工号不能为空")
	}
	existing, err := repo.User.GetByBadgeNumber(ctx, in.BadgeNumber)
	if err == nil {
		return existing.UserID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, fmt.Errorf("查询工号 %s 失败: %w", in.BadgeNumber, err)
	}

	role := in.Role
	if role == "" {
		role = model.RoleGuard
	}
	switch role {
	case model.RoleGuard, model.RoleSupervisor, model.RoleAdmin:
	default:
		return "", false, fmt.Errorf("工号 %s 角色无效: %s", in.BadgeNumber, role)
	}
	password := in.Password
	if password == "" {
		password = in.BadgeNumber
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", false, fmt.Errorf("密码加密失败: %w", err)
	}

	u := &model.User{
		Name:           in.Name,
		BadgeNumber:    in.BadgeNumber,
		Email:          in.Email,
		Phone:          in.Phone,
		PasswordHash:   string(hash),
		Role:           role,
		TelegramChatID: in.TelegramChatID,
		IsActive:       true,
	}
	if err := repo.User.Create(ctx, u); err != nil {
		return "", false, fmt.Errorf("创建用户 %s 失败: %w", in.BadgeNumber, err)
	}
	return u.UserID, true, nil
}

func (s *Seeder) ensureShift(
	ctx context.Context,
	repo *repository.Repository,
	in Shift,
	sites map[string]string,
	guardID func(string) (string, error),
) (bool, error) {
	gid, err := guardID(in.Badge)
	if err != nil {
		return false, err
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		return false, fmt.Errorf("班次日期无效: %q", in.Date)
	}

	var siteID *string
	if in.Site != "" {
		id, ok := sites[in.Site]
		if !ok {
			return false, fmt.Errorf("站点 %s 不存在", in.Site)
		}
		siteID = &id
	}

	existing, err := repo.Shift.ListByGuardAndDates(ctx, gid, date, date)
	if err != nil {
		return false, fmt.Errorf("查询班次失败: %w", err)
	}
	for _, sh := range existing {
		if sh.StartTime == in.Start {
			return false, nil
		}
	}

	breaks := make([]model.BreakWindow, 0, len(in.Breaks))
	for _, b := range in.Breaks {
		breaks = append(breaks, model.BreakWindow{StartTime: b.Start, EndTime: b.End, Paid: b.Paid})
	}
	shift := &model.Shift{
		GuardID:   gid,
		SiteID:    siteID,
		ShiftDate: date,
		StartTime: in.Start,
		EndTime:   in.End,
		Position:  in.Position,
		Notes:     in.Notes,
		Breaks:    breaks,
	}
	if err := repo.Shift.Create(ctx, shift); err != nil {
		return false, fmt.Errorf("创建班次失败: %w", err)
	}
	return true, nil
}

func hasLicence(list []model.Licence, number string) bool {
	for _, l := range list {
		if l.LicenceNumber == number {
			return true
		}
	}
	return false
}
