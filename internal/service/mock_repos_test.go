package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"guardian/backend/internal/model"
	"guardian/backend/internal/repository"
	pkgerrors "guardian/backend/pkg/errors"
)

// ── 聚合 ──

type mockRepos struct {
	user     *mockUserRepo
	site     *mockSiteRepo
	shift    *mockShiftRepo
	activity *mockActivityRepo
	alert    *mockAlertRepo
	input    *mockPayrollInputRepo
	variance *mockPayrollVarianceRepo
	licence  *mockLicenceRepo
	notif    *mockNotificationRepo
	push     *mockPushSubRepo
	sysCfg   *mockSystemConfigRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:     newMockUserRepo(),
		site:     newMockSiteRepo(),
		shift:    newMockShiftRepo(),
		activity: newMockActivityRepo(),
		alert:    newMockAlertRepo(),
		input:    newMockPayrollInputRepo(),
		variance: newMockPayrollVarianceRepo(),
		licence:  newMockLicenceRepo(),
		notif:    newMockNotificationRepo(),
		push:     newMockPushSubRepo(),
		sysCfg:   newMockSystemConfigRepo(),
	}
	repo := &repository.Repository{
		User:             m.user,
		Site:             m.site,
		Shift:            m.shift,
		Activity:         m.activity,
		NoShowAlert:      m.alert,
		PayrollInput:     m.input,
		PayrollVariance:  m.variance,
		Licence:          m.licence,
		Notification:     m.notif,
		PushSubscription: m.push,
		SystemConfig:     m.sysCfg,
	}
	return repo, m
}

func sameDate(a, b time.Time) bool {
	return model.DateOf(a).Equal(model.DateOf(b))
}

func inDates(d, from, to time.Time) bool {
	d = model.DateOf(d)
	return !d.Before(model.DateOf(from)) && !d.After(model.DateOf(to))
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	user.CreatedAt = time.Now()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByBadgeNumber(_ context.Context, badge string) (*model.User, error) {
	for _, u := range m.users {
		if u.BadgeNumber == badge {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.BadgeNumber, filter.Keyword) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BadgeNumber < result[j].BadgeNumber })
	total := int64(len(result))
	if offset >= len(result) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockUserRepo) ListActiveByRoles(_ context.Context, roles ...string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		for _, r := range roles {
			if u.Role == r {
				result = append(result, *u)
				break
			}
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock SiteRepository ──

type mockSiteRepo struct {
	sites map[string]*model.Site
	seq   int
}

func newMockSiteRepo() *mockSiteRepo {
	return &mockSiteRepo{sites: make(map[string]*model.Site)}
}

func (m *mockSiteRepo) Create(_ context.Context, site *model.Site) error {
	if site.SiteID == "" {
		m.seq++
		site.SiteID = fmt.Sprintf("site-%d", m.seq)
	}
	m.sites[site.SiteID] = site
	return nil
}

func (m *mockSiteRepo) GetByID(_ context.Context, id string) (*model.Site, error) {
	if s, ok := m.sites[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSiteRepo) List(_ context.Context, includeInactive bool) ([]model.Site, error) {
	var result []model.Site
	for _, s := range m.sites {
		if !includeInactive && !s.IsActive {
			continue
		}
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockSiteRepo) Update(_ context.Context, site *model.Site) error {
	m.sites[site.SiteID] = site
	return nil
}

func (m *mockSiteRepo) Delete(_ context.Context, id string, _ string) error {
	if _, ok := m.sites[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.sites, id)
	return nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	shifts  map[string]*model.Shift
	seq     int
	listErr error
}

func newMockShiftRepo() *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[string]*model.Shift)}
}

// add 直接写入测试数据
func (m *mockShiftRepo) add(s *model.Shift) *model.Shift {
	if s.ShiftID == "" {
		m.seq++
		s.ShiftID = fmt.Sprintf("shift-%d", m.seq)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	m.shifts[s.ShiftID] = s
	return s
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.add(shift)
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	if s, ok := m.shifts[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	cur, ok := m.shifts[shift.ShiftID]
	if !ok || cur.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	shift.Version++
	cp := *shift
	m.shifts[shift.ShiftID] = &cp
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string, _ string) error {
	if _, ok := m.shifts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.shifts, id)
	return nil
}

func (m *mockShiftRepo) sorted(keep func(*model.Shift) bool) []model.Shift {
	var result []model.Shift
	for _, s := range m.shifts {
		if keep(s) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ShiftDate.Equal(result[j].ShiftDate) {
			return result[i].ShiftDate.Before(result[j].ShiftDate)
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result
}

func (m *mockShiftRepo) List(_ context.Context, filter repository.ShiftFilter, offset, limit int) ([]model.Shift, int64, error) {
	result := m.sorted(func(s *model.Shift) bool {
		if filter.GuardID != "" && s.GuardID != filter.GuardID {
			return false
		}
		if filter.SiteID != "" && (s.SiteID == nil || *s.SiteID != filter.SiteID) {
			return false
		}
		if filter.From != nil && model.DateOf(s.ShiftDate).Before(model.DateOf(*filter.From)) {
			return false
		}
		if filter.To != nil && model.DateOf(s.ShiftDate).After(model.DateOf(*filter.To)) {
			return false
		}
		return true
	})
	total := int64(len(result))
	if offset >= len(result) {
		return []model.Shift{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockShiftRepo) ListByGuardAndDates(_ context.Context, guardID string, from, to time.Time) ([]model.Shift, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sorted(func(s *model.Shift) bool {
		return s.GuardID == guardID && inDates(s.ShiftDate, from, to)
	}), nil
}

func (m *mockShiftRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.Shift, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sorted(func(s *model.Shift) bool {
		return inDates(s.ShiftDate, from, to)
	}), nil
}

// ── Mock ShiftActivityRepository ──

type mockActivityRepo struct {
	activities []model.ShiftActivity
	listErr    error
}

func newMockActivityRepo() *mockActivityRepo {
	return &mockActivityRepo{}
}

func (m *mockActivityRepo) Create(_ context.Context, a *model.ShiftActivity) error {
	if a.ActivityID == "" {
		a.ActivityID = fmt.Sprintf("act-%d", len(m.activities)+1)
	}
	m.activities = append(m.activities, *a)
	return nil
}

func (m *mockActivityRepo) ListByShift(_ context.Context, shiftID string) ([]model.ShiftActivity, error) {
	var result []model.ShiftActivity
	for _, a := range m.activities {
		if a.ShiftID != nil && *a.ShiftID == shiftID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockActivityRepo) ListByTypesInRange(_ context.Context, types []string, from, to time.Time) ([]model.ShiftActivity, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.ShiftActivity
	for _, a := range m.activities {
		if a.Timestamp.Before(from) || a.Timestamp.After(to) {
			continue
		}
		for _, t := range types {
			if a.ActivityType == t {
				result = append(result, a)
				break
			}
		}
	}
	return result, nil
}

// ── Mock NoShowAlertRepository ──

type mockAlertRepo struct {
	alerts    map[string]*model.NoShowAlert // key: alert_id
	seq       int
	listErr   error
	createErr error
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{alerts: make(map[string]*model.NoShowAlert)}
}

func (m *mockAlertRepo) CreateBatchIfAbsent(_ context.Context, alerts []*model.NoShowAlert) ([]*model.NoShowAlert, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	var inserted []*model.NoShowAlert
	for _, a := range alerts {
		dup := false
		for _, ex := range m.alerts {
			if ex.Key() == a.Key() {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.seq++
		a.AlertID = fmt.Sprintf("alert-%d", m.seq)
		cp := *a
		m.alerts[a.AlertID] = &cp
		inserted = append(inserted, a)
	}
	return inserted, nil
}

func (m *mockAlertRepo) GetByID(_ context.Context, id string) (*model.NoShowAlert, error) {
	if a, ok := m.alerts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAlertRepo) ListByExpectedStartRange(_ context.Context, from, to time.Time) ([]model.NoShowAlert, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.NoShowAlert
	for _, a := range m.alerts {
		if a.ExpectedShiftStartTime.Before(from) || a.ExpectedShiftStartTime.After(to) {
			continue
		}
		result = append(result, *a)
	}
	return result, nil
}

func (m *mockAlertRepo) List(_ context.Context, filter repository.NoShowAlertFilter, _, _ int) ([]model.NoShowAlert, int64, error) {
	var result []model.NoShowAlert
	for _, a := range m.alerts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.GuardID != "" && a.GuardID != filter.GuardID {
			continue
		}
		result = append(result, *a)
	}
	return result, int64(len(result)), nil
}

func (m *mockAlertRepo) UpdateStatus(_ context.Context, alert *model.NoShowAlert, fromStatuses []string) (bool, error) {
	cur, ok := m.alerts[alert.AlertID]
	if !ok {
		return false, nil
	}
	for _, s := range fromStatuses {
		if cur.Status == s {
			cp := *alert
			m.alerts[alert.AlertID] = &cp
			return true, nil
		}
	}
	return false, nil
}

// ── Mock PayrollInputRepository ──

type mockPayrollInputRepo struct {
	inputs  []*model.PayrollInput
	listErr error
}

func newMockPayrollInputRepo() *mockPayrollInputRepo {
	return &mockPayrollInputRepo{}
}

func (m *mockPayrollInputRepo) Upsert(_ context.Context, input *model.PayrollInput) (*model.PayrollInput, error) {
	for _, ex := range m.inputs {
		if ex.GuardID == input.GuardID && sameDate(ex.PayPeriodStart, input.PayPeriodStart) && sameDate(ex.PayPeriodEnd, input.PayPeriodEnd) {
			ex.HoursPaid = input.HoursPaid
			ex.Source = input.Source
			return ex, nil
		}
	}
	if input.InputID == "" {
		input.InputID = fmt.Sprintf("input-%d", len(m.inputs)+1)
	}
	m.inputs = append(m.inputs, input)
	return input, nil
}

func (m *mockPayrollInputRepo) ListByPeriod(_ context.Context, start, end time.Time) ([]model.PayrollInput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.PayrollInput
	for _, in := range m.inputs {
		if sameDate(in.PayPeriodStart, start) && sameDate(in.PayPeriodEnd, end) {
			result = append(result, *in)
		}
	}
	return result, nil
}

func (m *mockPayrollInputRepo) List(_ context.Context, filter repository.PayrollInputFilter, _, _ int) ([]model.PayrollInput, int64, error) {
	var result []model.PayrollInput
	for _, in := range m.inputs {
		if filter.GuardID != "" && in.GuardID != filter.GuardID {
			continue
		}
		result = append(result, *in)
	}
	return result, int64(len(result)), nil
}

// ── Mock PayrollVarianceRepository ──

type mockPayrollVarianceRepo struct {
	variances map[string]*model.PayrollVariance // key: variance_id
	seq       int
	failGuard string // 对该保安的写入返回错误
}

func newMockPayrollVarianceRepo() *mockPayrollVarianceRepo {
	return &mockPayrollVarianceRepo{variances: make(map[string]*model.PayrollVariance)}
}

func (m *mockPayrollVarianceRepo) find(guardID string, start, end time.Time) *model.PayrollVariance {
	for _, v := range m.variances {
		if v.GuardID == guardID && sameDate(v.VarianceDate, start) && sameDate(v.PayPeriodEnd, end) {
			return v
		}
	}
	return nil
}

func (m *mockPayrollVarianceRepo) CreateIfAbsent(_ context.Context, v *model.PayrollVariance) (bool, error) {
	if v.GuardID == m.failGuard {
		return false, fmt.Errorf("写入失败")
	}
	if m.find(v.GuardID, v.VarianceDate, v.PayPeriodEnd) != nil {
		return false, nil
	}
	m.seq++
	v.VarianceID = fmt.Sprintf("var-%d", m.seq)
	cp := *v
	m.variances[v.VarianceID] = &cp
	return true, nil
}

func (m *mockPayrollVarianceRepo) UpdateIfPending(_ context.Context, v *model.PayrollVariance) (bool, error) {
	if v.GuardID == m.failGuard {
		return false, fmt.Errorf("写入失败")
	}
	cur, ok := m.variances[v.VarianceID]
	if !ok || cur.Status != model.VariancePending {
		return false, nil
	}
	cp := *v
	m.variances[v.VarianceID] = &cp
	return true, nil
}

func (m *mockPayrollVarianceRepo) DeleteIfPending(_ context.Context, id string) (bool, error) {
	cur, ok := m.variances[id]
	if !ok || cur.Status != model.VariancePending {
		return false, nil
	}
	if cur.GuardID == m.failGuard {
		return false, fmt.Errorf("删除失败")
	}
	delete(m.variances, id)
	return true, nil
}

func (m *mockPayrollVarianceRepo) GetByID(_ context.Context, id string) (*model.PayrollVariance, error) {
	if v, ok := m.variances[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPayrollVarianceRepo) GetByGuardAndPeriod(_ context.Context, guardID string, start, end time.Time) (*model.PayrollVariance, error) {
	if v := m.find(guardID, start, end); v != nil {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPayrollVarianceRepo) ListByPeriod(_ context.Context, start, end time.Time) ([]model.PayrollVariance, error) {
	var result []model.PayrollVariance
	for _, v := range m.variances {
		if sameDate(v.VarianceDate, start) && sameDate(v.PayPeriodEnd, end) {
			result = append(result, *v)
		}
	}
	return result, nil
}

func (m *mockPayrollVarianceRepo) List(_ context.Context, filter repository.PayrollVarianceFilter, _, _ int) ([]model.PayrollVariance, int64, error) {
	var result []model.PayrollVariance
	for _, v := range m.variances {
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.GuardID != "" && v.GuardID != filter.GuardID {
			continue
		}
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GuardID < result[j].GuardID })
	return result, int64(len(result)), nil
}

func (m *mockPayrollVarianceRepo) UpdateReview(_ context.Context, v *model.PayrollVariance, fromStatus string) (bool, error) {
	cur, ok := m.variances[v.VarianceID]
	if !ok || cur.Status != fromStatus {
		return false, nil
	}
	cp := *v
	m.variances[v.VarianceID] = &cp
	return true, nil
}

// ── Mock LicenceRepository ──

type mockLicenceRepo struct {
	licences map[string]*model.Licence
	seq      int
}

func newMockLicenceRepo() *mockLicenceRepo {
	return &mockLicenceRepo{licences: make(map[string]*model.Licence)}
}

func (m *mockLicenceRepo) Create(_ context.Context, l *model.Licence) error {
	if l.LicenceID == "" {
		m.seq++
		l.LicenceID = fmt.Sprintf("lic-%d", m.seq)
	}
	m.licences[l.LicenceID] = l
	return nil
}

func (m *mockLicenceRepo) GetByID(_ context.Context, id string) (*model.Licence, error) {
	if l, ok := m.licences[id]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLicenceRepo) List(_ context.Context, guardID string, _, _ int) ([]model.Licence, int64, error) {
	var result []model.Licence
	for _, l := range m.licences {
		if guardID != "" && l.GuardID != guardID {
			continue
		}
		result = append(result, *l)
	}
	return result, int64(len(result)), nil
}

func (m *mockLicenceRepo) ListExpiringBefore(_ context.Context, date time.Time) ([]model.Licence, error) {
	var result []model.Licence
	for _, l := range m.licences {
		if !model.DateOf(l.ExpiryDate).After(model.DateOf(date)) {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiryDate.Before(result[j].ExpiryDate) })
	return result, nil
}

func (m *mockLicenceRepo) Delete(_ context.Context, id string, _ string) error {
	if _, ok := m.licences[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.licences, id)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	list []model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) CreateBatch(_ context.Context, list []model.Notification) error {
	for i := range list {
		if list[i].NotificationID == "" {
			list[i].NotificationID = fmt.Sprintf("notif-%d", len(m.list)+1)
		}
		m.list = append(m.list, list[i])
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, _, _ int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.list {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, n)
	}
	return result, int64(len(result)), nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, item := range m.list {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	for i := range m.list {
		if m.list[i].NotificationID == id && m.list[i].UserID == userID {
			m.list[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for i := range m.list {
		if m.list[i].UserID == userID {
			m.list[i].IsRead = true
		}
	}
	return nil
}

// ── Mock PushSubscriptionRepository ──

type mockPushSubRepo struct {
	subs map[string]*model.PushSubscription
}

func newMockPushSubRepo() *mockPushSubRepo {
	return &mockPushSubRepo{subs: make(map[string]*model.PushSubscription)}
}

func (m *mockPushSubRepo) Upsert(_ context.Context, sub *model.PushSubscription) error {
	m.subs[sub.Endpoint] = sub
	return nil
}

func (m *mockPushSubRepo) ListByUserIDs(_ context.Context, userIDs []string) ([]model.PushSubscription, error) {
	var result []model.PushSubscription
	for _, s := range m.subs {
		for _, id := range userIDs {
			if s.UserID == id {
				result = append(result, *s)
				break
			}
		}
	}
	return result, nil
}

func (m *mockPushSubRepo) DeleteByEndpoint(_ context.Context, endpoint string) error {
	delete(m.subs, endpoint)
	return nil
}

// ── Mock SystemConfigRepository ──

type mockSystemConfigRepo struct {
	row    *model.SystemConfig
	getErr error
}

func newMockSystemConfigRepo() *mockSystemConfigRepo {
	return &mockSystemConfigRepo{}
}

func (m *mockSystemConfigRepo) Get(_ context.Context) (*model.SystemConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.row
	return &cp, nil
}

func (m *mockSystemConfigRepo) Upsert(_ context.Context, cfg *model.SystemConfig) error {
	cfg.UpdatedAt = time.Now()
	cp := *cfg
	m.row = &cp
	return nil
}
