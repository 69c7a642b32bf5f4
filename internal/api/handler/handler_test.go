package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"guardian/backend/internal/dto"
	"guardian/backend/internal/model"
	"guardian/backend/internal/service"
	"guardian/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testUserID  = "11111111-1111-4111-8111-111111111111"
	testGuardID = "22222222-2222-4222-8222-222222222222"
)

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	refreshGot    string
	logoutErr     error
	logoutJTI     string
	meResult      *dto.UserResponse
	meErr         error
	changePassErr error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshGot = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock BreakStatusService ──

type mockBreakStatusService struct {
	result    *dto.BreakStatusResponse
	err       error
	gotGuard  string
	gotDate   string
	gotClock  string
	gotAt     time.Time
	calledAt  bool
	calledDay bool
}

func (m *mockBreakStatusService) Evaluate(_ context.Context, guardID, date, clock string) (*dto.BreakStatusResponse, error) {
	m.calledDay = true
	m.gotGuard, m.gotDate, m.gotClock = guardID, date, clock
	return m.result, m.err
}
func (m *mockBreakStatusService) EvaluateAt(_ context.Context, guardID string, now time.Time) (*dto.BreakStatusResponse, error) {
	m.calledAt = true
	m.gotGuard, m.gotAt = guardID, now
	return m.result, m.err
}

// ── Mock RotaService ──

type mockRotaService struct {
	data     []byte
	err      error
	gotGuard string
}

func (m *mockRotaService) ICS(_ context.Context, guardID string, _ int) ([]byte, error) {
	m.gotGuard = guardID
	return m.data, m.err
}

// ── Mock NoShowService ──

type mockNoShowService struct {
	runResult  *dto.NoShowRunResponse
	runErr     error
	gotAt      time.Time
	detectedAt bool
	listResult []dto.NoShowAlertResponse
	listTotal  int64
	listErr    error
	alert      *dto.NoShowAlertResponse
	alertErr   error
	gotNote    string
}

func (m *mockNoShowService) Detect(_ context.Context) (*dto.NoShowRunResponse, error) {
	return m.runResult, m.runErr
}
func (m *mockNoShowService) DetectAt(_ context.Context, now time.Time) (*dto.NoShowRunResponse, error) {
	m.detectedAt = true
	m.gotAt = now
	return m.runResult, m.runErr
}
func (m *mockNoShowService) List(_ context.Context, _ *dto.NoShowAlertListRequest) ([]dto.NoShowAlertResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockNoShowService) Acknowledge(_ context.Context, _, _ string) (*dto.NoShowAlertResponse, error) {
	return m.alert, m.alertErr
}
func (m *mockNoShowService) Resolve(_ context.Context, _, _, note string) (*dto.NoShowAlertResponse, error) {
	m.gotNote = note
	return m.alert, m.alertErr
}

// ── Mock PayrollService ──

type mockPayrollService struct {
	runResult    *dto.PayrollRunResponse
	runErr       error
	gotRun       *dto.PayrollRunRequest
	variance     *dto.PayrollVarianceResponse
	varianceErr  error
	importResult *dto.PayrollImportResponse
	importErr    error
	gotFilename  string
	gotUpload    string
	exportBuf    *bytes.Buffer
	exportName   string
	exportErr    error
}

func (m *mockPayrollService) Calculate(_ context.Context, req *dto.PayrollRunRequest, _ string) (*dto.PayrollRunResponse, error) {
	m.gotRun = req
	return m.runResult, m.runErr
}
func (m *mockPayrollService) ListVariances(_ context.Context, _ *dto.PayrollVarianceListRequest) ([]dto.PayrollVarianceResponse, int64, error) {
	return nil, 0, nil
}
func (m *mockPayrollService) GetVariance(_ context.Context, _ string) (*dto.PayrollVarianceResponse, error) {
	return m.variance, m.varianceErr
}
func (m *mockPayrollService) UpdateStatus(_ context.Context, _ string, _ *dto.UpdateVarianceStatusRequest, _ string) (*dto.PayrollVarianceResponse, error) {
	return m.variance, m.varianceErr
}
func (m *mockPayrollService) UpsertInput(_ context.Context, _ *dto.PayrollInputRequest, _ string) (*dto.PayrollInputResponse, error) {
	return &dto.PayrollInputResponse{}, nil
}
func (m *mockPayrollService) ListInputs(_ context.Context, _ *dto.PayrollInputListRequest) ([]dto.PayrollInputResponse, int64, error) {
	return nil, 0, nil
}
func (m *mockPayrollService) ImportInputs(_ context.Context, filename string, r io.Reader, _ string) (*dto.PayrollImportResponse, error) {
	m.gotFilename = filename
	b, _ := io.ReadAll(r)
	m.gotUpload = string(b)
	return m.importResult, m.importErr
}
func (m *mockPayrollService) ExportVariances(_ context.Context, _ *dto.PayrollExportRequest) (*bytes.Buffer, string, error) {
	return m.exportBuf, m.exportName, m.exportErr
}

// ── Mock LicenceService ──

type mockLicenceService struct {
	created    *dto.LicenceResponse
	err        error
	gotList    *dto.LicenceListRequest
	gotDays    *int
	deleteErr  error
	expiring   []dto.LicenceResponse
	listResult []dto.LicenceResponse
}

func (m *mockLicenceService) Create(_ context.Context, _ *dto.CreateLicenceRequest, _ string) (*dto.LicenceResponse, error) {
	return m.created, m.err
}
func (m *mockLicenceService) List(_ context.Context, req *dto.LicenceListRequest) ([]dto.LicenceResponse, int64, error) {
	m.gotList = req
	return m.listResult, int64(len(m.listResult)), m.err
}
func (m *mockLicenceService) Expiring(_ context.Context, days *int) ([]dto.LicenceResponse, error) {
	m.gotDays = days
	return m.expiring, m.err
}
func (m *mockLicenceService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}
func (m *mockLicenceService) RemindExpiring(_ context.Context) (int, error) {
	return 0, nil
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	count        int64
	markErr      error
	subscribeErr error
	gotEndpoint  string
}

func (m *mockNotificationService) List(_ context.Context, _ string, _ *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	return []dto.NotificationResponse{}, 0, nil
}
func (m *mockNotificationService) UnreadCount(_ context.Context, _ string) (*dto.UnreadCountResponse, error) {
	return &dto.UnreadCountResponse{Count: m.count}, nil
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error {
	return m.markErr
}
func (m *mockNotificationService) MarkAllRead(_ context.Context, _ string) error {
	return nil
}
func (m *mockNotificationService) PushKey() *dto.PushKeyResponse {
	return &dto.PushKeyResponse{PublicKey: "pub", Enabled: true}
}
func (m *mockNotificationService) Subscribe(_ context.Context, _ string, req *dto.PushSubscribeRequest) error {
	m.gotEndpoint = req.Endpoint
	return m.subscribeErr
}
func (m *mockNotificationService) Unsubscribe(_ context.Context, endpoint string) error {
	m.gotEndpoint = endpoint
	return nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	setAuthAs(c, testUserID, model.RoleSupervisor)
}

func setAuthAs(c *gin.Context, userID, role string) {
	c.Set("user_id", userID)
	c.Set("role", role)
	c.Set("token_jti", "test-jti")
	c.Set("token_exp", time.Now().Add(15*time.Minute))
}

// serve 注册单个路由并执行请求；auth 为 nil 时不注入身份
func serve(method, route, target string, body io.Reader, auth func(*gin.Context), h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		if auth != nil {
			auth(c)
		}
		h(c)
	})
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected status %d, got %d (body=%s)", status, w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Code != code {
		t.Errorf("expected code %d, got %d", code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, nil)

	w := serve("POST", "/auth/login", "/auth/login", jsonBody(dto.LoginRequest{
		BadgeNumber: "G-001",
		Password:    "Test1234",
	}), nil, h.Login)

	expectStatus(t, w, http.StatusOK, 0)
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			found = true
			if c.Value != "test-refresh-token" {
				t.Errorf("expected cookie value test-refresh-token, got %s", c.Value)
			}
			if !c.HttpOnly {
				t.Error("refresh_token cookie 应为 HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	w := serve("POST", "/auth/login", "/auth/login", strings.NewReader("invalid json"), nil, h.Login)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestAuthHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidCredentials", service.ErrInvalidCredentials, 401, 11001},
		{"Inactive", service.ErrUserInactive, 403, 11002},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{loginErr: tt.err}, nil)

			w := serve("POST", "/auth/login", "/auth/login", jsonBody(dto.LoginRequest{
				BadgeNumber: "G-001",
				Password:    "wrong",
			}), nil, h.Login)

			expectStatus(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{refreshResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "rotated"}}
	h := NewAuthHandler(mock, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-token"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.refreshGot != "cookie-token" {
		t.Errorf("应使用 Cookie 中的 refresh_token，got %q", mock.refreshGot)
	}
}

func TestAuthHandler_RefreshToken_Missing(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	w := serve("POST", "/auth/refresh", "/auth/refresh", nil, nil, h.RefreshToken)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	w := serve("GET", "/auth/me", "/auth/me", nil, nil, h.GetCurrentUser)

	expectStatus(t, w, http.StatusUnauthorized, 10002)
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	w := serve("POST", "/auth/logout", "/auth/logout", nil, setAuth, h.Logout)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.logoutJTI != "test-jti" {
		t.Errorf("应拉黑当前 jti，got %q", mock.logoutJTI)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.MaxAge >= 0 {
			t.Error("expected refresh_token cookie to be cleared")
		}
	}
}

// ═══════════════════════════════════════════════════════════
// BreakStatusHandler Tests
// ═══════════════════════════════════════════════════════════

func newTestBreakStatusHandler(mock *mockBreakStatusService, now time.Time) *BreakStatusHandler {
	h := NewBreakStatusHandler(mock, time.UTC)
	h.now = func() time.Time { return now }
	return h
}

func TestBreakStatusHandler_NoParamsUsesNow(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	mock := &mockBreakStatusService{result: &dto.BreakStatusResponse{Status: dto.StatusOnBreak}}
	h := newTestBreakStatusHandler(mock, now)

	w := serve("GET", "/break-status", "/break-status", nil, setAuth, h.GetStatus)

	expectStatus(t, w, http.StatusOK, 0)
	if !mock.calledAt || !mock.gotAt.Equal(now) {
		t.Errorf("应以当前时刻调用 EvaluateAt，got called=%v at=%v", mock.calledAt, mock.gotAt)
	}
	if mock.gotGuard != testUserID {
		t.Errorf("未指定 guard_id 时应查询本人，got %s", mock.gotGuard)
	}
}

func TestBreakStatusHandler_FillsMissingDate(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	mock := &mockBreakStatusService{result: &dto.BreakStatusResponse{Status: dto.StatusOffShift}}
	h := newTestBreakStatusHandler(mock, now)

	w := serve("GET", "/break-status", "/break-status?guard_id="+testGuardID+"&time=12:15", nil, setAuth, h.GetStatus)

	expectStatus(t, w, http.StatusOK, 0)
	if !mock.calledDay || mock.gotDate != "2025-06-02" || mock.gotClock != "12:15" {
		t.Errorf("unexpected args: date=%s clock=%s", mock.gotDate, mock.gotClock)
	}
	if mock.gotGuard != testGuardID {
		t.Errorf("主管应可查询指定保安，got %s", mock.gotGuard)
	}
}

func TestBreakStatusHandler_GuardCannotQueryOthers(t *testing.T) {
	mock := &mockBreakStatusService{}
	h := newTestBreakStatusHandler(mock, time.Now())

	w := serve("GET", "/break-status", "/break-status?guard_id="+testGuardID, nil, func(c *gin.Context) {
		setAuthAs(c, testUserID, model.RoleGuard)
	}, h.GetStatus)

	expectStatus(t, w, http.StatusForbidden, 10003)
	if mock.calledAt || mock.calledDay {
		t.Error("越权请求不应调用 Service")
	}
}

func TestBreakStatusHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"Overlap", fmt.Errorf("%w: a / b", service.ErrOverlappingShifts), 409, 14004},
		{"BadClock", service.ErrInvalidClockTime, 400, 10001},
		{"BadDate", service.ErrInvalidDate, 400, 10001},
		{"InternalError", errors.New("db down"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestBreakStatusHandler(&mockBreakStatusService{err: tt.err}, time.Now())

			w := serve("GET", "/break-status", "/break-status?date=2025-06-02&time=25:00", nil, setAuth, h.GetStatus)

			expectStatus(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

// ═══════════════════════════════════════════════════════════
// RotaHandler Tests
// ═══════════════════════════════════════════════════════════

func TestRotaHandler_GetICS(t *testing.T) {
	mock := &mockRotaService{data: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")}
	h := NewRotaHandler(mock)

	w := serve("GET", "/rota/ics", "/rota/ics", nil, setAuth, h.GetICS)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type: %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if mock.gotGuard != testUserID {
		t.Errorf("默认应导出本人日历，got %s", mock.gotGuard)
	}
}

func TestRotaHandler_GuardNotFound(t *testing.T) {
	h := NewRotaHandler(&mockRotaService{err: service.ErrGuardNotFound})

	w := serve("GET", "/rota/ics", "/rota/ics?guard_id="+testGuardID, nil, setAuth, h.GetICS)

	expectStatus(t, w, http.StatusNotFound, 14002)
}

// ═══════════════════════════════════════════════════════════
// NoShowHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNoShowHandler_Run_Now(t *testing.T) {
	mock := &mockNoShowService{runResult: &dto.NoShowRunResponse{Scanned: 3}}
	h := NewNoShowHandler(mock)

	w := serve("POST", "/no-show/run", "/no-show/run", nil, setAuth, h.Run)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.detectedAt {
		t.Error("未传 at 时应调用 Detect")
	}
}

func TestNoShowHandler_Run_At(t *testing.T) {
	mock := &mockNoShowService{runResult: &dto.NoShowRunResponse{}}
	h := NewNoShowHandler(mock)

	w := serve("POST", "/no-show/run", "/no-show/run", jsonBody(dto.NoShowRunRequest{At: "2025-06-02T09:30:00Z"}), setAuth, h.Run)

	expectStatus(t, w, http.StatusOK, 0)
	want := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if !mock.detectedAt || !mock.gotAt.Equal(want) {
		t.Errorf("expected DetectAt(%v), got called=%v at=%v", want, mock.detectedAt, mock.gotAt)
	}
}

func TestNoShowHandler_Run_BadAt(t *testing.T) {
	h := NewNoShowHandler(&mockNoShowService{})

	w := serve("POST", "/no-show/run", "/no-show/run", jsonBody(dto.NoShowRunRequest{At: "09:30"}), setAuth, h.Run)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestNoShowHandler_Resolve(t *testing.T) {
	mock := &mockNoShowService{alert: &dto.NoShowAlertResponse{ID: "a1", Status: model.AlertResolved}}
	h := NewNoShowHandler(mock)

	w := serve("PUT", "/no-show/alerts/:id/resolve", "/no-show/alerts/a1/resolve",
		jsonBody(dto.ResolveAlertRequest{Note: "病假"}), setAuth, h.Resolve)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotNote != "病假" {
		t.Errorf("备注未传递，got %q", mock.gotNote)
	}
}

func TestNoShowHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrAlertNotFound, 404, 16001},
		{"Transition", service.ErrAlertStatusTransition, 409, 16002},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewNoShowHandler(&mockNoShowService{alertErr: tt.err})

			w := serve("PUT", "/no-show/alerts/:id/acknowledge", "/no-show/alerts/a1/acknowledge", nil, setAuth, h.Acknowledge)

			expectStatus(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestNoShowHandler_ListAlerts_Page(t *testing.T) {
	mock := &mockNoShowService{
		listResult: []dto.NoShowAlertResponse{{ID: "a1"}, {ID: "a2"}},
		listTotal:  2,
	}
	h := NewNoShowHandler(mock)

	w := serve("GET", "/no-show/alerts", "/no-show/alerts?status=pending", nil, setAuth, h.ListAlerts)

	expectStatus(t, w, http.StatusOK, 0)
	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Data.Pagination.Total)
	}
}

func TestNoShowHandler_ListAlerts_BadStatus(t *testing.T) {
	h := NewNoShowHandler(&mockNoShowService{})

	w := serve("GET", "/no-show/alerts", "/no-show/alerts?status=unknown", nil, setAuth, h.ListAlerts)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

// ═══════════════════════════════════════════════════════════
// PayrollHandler Tests
// ═══════════════════════════════════════════════════════════

func TestPayrollHandler_Run_EmptyBodyUsesDefaultPeriod(t *testing.T) {
	mock := &mockPayrollService{runResult: &dto.PayrollRunResponse{PeriodStart: "2025-05-26", PeriodEnd: "2025-06-01"}}
	h := NewPayrollHandler(mock)

	w := serve("POST", "/payroll/run", "/payroll/run", nil, setAuth, h.Run)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotRun == nil || mock.gotRun.PeriodStart != "" || mock.gotRun.PeriodEnd != "" {
		t.Errorf("空请求体应传入空周期，got %+v", mock.gotRun)
	}
}

func TestPayrollHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"BadPeriod", fmt.Errorf("%w: 结束早于开始", service.ErrInvalidPayPeriod), 400, 10001},
		{"GuardNotFound", service.ErrGuardNotFound, 404, 14002},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPayrollHandler(&mockPayrollService{runErr: tt.err})

			w := serve("POST", "/payroll/run", "/payroll/run",
				jsonBody(dto.PayrollRunRequest{PeriodStart: "2025-06-08", PeriodEnd: "2025-06-01"}), setAuth, h.Run)

			expectStatus(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestPayrollHandler_UpdateStatus_Transition(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{varianceErr: service.ErrVarianceStatusTransition})

	w := serve("PUT", "/payroll/variances/:id/status", "/payroll/variances/v1/status",
		jsonBody(dto.UpdateVarianceStatusRequest{Status: model.VarianceResolved}), setAuth, h.UpdateStatus)

	expectStatus(t, w, http.StatusConflict, 17002)
}

func TestPayrollHandler_UpdateStatus_InvalidStatus(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{})

	w := serve("PUT", "/payroll/variances/:id/status", "/payroll/variances/v1/status",
		jsonBody(map[string]string{"status": "pending"}), setAuth, h.UpdateStatus)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestPayrollHandler_GetVariance_NotFound(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{varianceErr: service.ErrVarianceNotFound})

	w := serve("GET", "/payroll/variances/:id", "/payroll/variances/v1", nil, setAuth, h.GetVariance)

	expectStatus(t, w, http.StatusNotFound, 17001)
}

func TestPayrollHandler_ImportInputs(t *testing.T) {
	mock := &mockPayrollService{importResult: &dto.PayrollImportResponse{Imported: 2}}
	h := NewPayrollHandler(mock)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "paid.xlsx")
	part.Write([]byte("fake-xlsx"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/payroll/inputs/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r := gin.New()
	r.POST("/payroll/inputs/import", func(c *gin.Context) {
		setAuth(c)
		h.ImportInputs(c)
	})
	r.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotFilename != "paid.xlsx" || mock.gotUpload != "fake-xlsx" {
		t.Errorf("上传内容未传递，got %s / %s", mock.gotFilename, mock.gotUpload)
	}
}

func TestPayrollHandler_ImportInputs_MissingFile(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{})

	w := serve("POST", "/payroll/inputs/import", "/payroll/inputs/import", nil, setAuth, h.ImportInputs)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestPayrollHandler_ImportInputs_Unreadable(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{importErr: service.ErrImportUnreadable})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "paid.csv")
	part.Write([]byte("a,b"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/payroll/inputs/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r := gin.New()
	r.POST("/payroll/inputs/import", func(c *gin.Context) {
		setAuth(c)
		h.ImportInputs(c)
	})
	r.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusBadRequest, 17003)
}

func TestPayrollHandler_ExportVariances(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{
		exportBuf:  bytes.NewBufferString("excel content"),
		exportName: "工资差异_2025-06-01_2025-06-30.xlsx",
	})

	w := serve("GET", "/payroll/variances/export", "/payroll/variances/export?from=2025-06-01&to=2025-06-30", nil, setAuth, h.ExportVariances)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
}

func TestPayrollHandler_ExportVariances_MissingRange(t *testing.T) {
	h := NewPayrollHandler(&mockPayrollService{})

	w := serve("GET", "/payroll/variances/export", "/payroll/variances/export", nil, setAuth, h.ExportVariances)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

// ═══════════════════════════════════════════════════════════
// LicenceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLicenceHandler_List_GuardSeesOwn(t *testing.T) {
	mock := &mockLicenceService{}
	h := NewLicenceHandler(mock)

	w := serve("GET", "/licences", "/licences", nil, func(c *gin.Context) {
		setAuthAs(c, testGuardID, model.RoleGuard)
	}, h.List)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotList == nil || mock.gotList.GuardID != testGuardID {
		t.Errorf("保安应只查询自己的证件，got %+v", mock.gotList)
	}
}

func TestLicenceHandler_List_SupervisorSeesAll(t *testing.T) {
	mock := &mockLicenceService{}
	h := NewLicenceHandler(mock)

	w := serve("GET", "/licences", "/licences", nil, setAuth, h.List)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotList == nil || mock.gotList.GuardID != "" {
		t.Errorf("主管不带 guard_id 时应查询全部，got %+v", mock.gotList)
	}
}

func TestLicenceHandler_Expiring_Days(t *testing.T) {
	mock := &mockLicenceService{expiring: []dto.LicenceResponse{{ID: "l1", Status: dto.LicenceExpiring}}}
	h := NewLicenceHandler(mock)

	w := serve("GET", "/licences/expiring", "/licences/expiring?days=14", nil, setAuth, h.Expiring)

	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotDays == nil || *mock.gotDays != 14 {
		t.Errorf("expected days=14, got %v", mock.gotDays)
	}

	w = serve("GET", "/licences/expiring", "/licences/expiring", nil, setAuth, h.Expiring)
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotDays != nil {
		t.Errorf("未传 days 时应为 nil，got %d", *mock.gotDays)
	}
}

func TestLicenceHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrLicenceNotFound, 404, 18001},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLicenceHandler(&mockLicenceService{deleteErr: tt.err})

			w := serve("DELETE", "/licences/:id", "/licences/l1", nil, setAuth, h.Delete)

			expectStatus(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestLicenceHandler_Create_BadDate(t *testing.T) {
	h := NewLicenceHandler(&mockLicenceService{err: service.ErrInvalidDate})

	w := serve("POST", "/licences", "/licences", jsonBody(dto.CreateLicenceRequest{
		GuardID:       testGuardID,
		LicenceType:   "SIA Door Supervisor",
		LicenceNumber: "1234",
		ExpiryDate:    "2025/13/01",
	}), setAuth, h.Create)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}

// ═══════════════════════════════════════════════════════════
// NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNotificationHandler_UnreadCount(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{count: 3})

	w := serve("GET", "/notifications/unread-count", "/notifications/unread-count", nil, setAuth, h.UnreadCount)

	expectStatus(t, w, http.StatusOK, 0)
	var body struct {
		Data dto.UnreadCountResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Count != 3 {
		t.Errorf("expected 3, got %d", body.Data.Count)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{markErr: service.ErrNotificationNotFound})

	w := serve("PUT", "/notifications/:id/read", "/notifications/n1/read", nil, setAuth, h.MarkRead)

	expectStatus(t, w, http.StatusNotFound, 19001)
}

func TestNotificationHandler_Subscribe(t *testing.T) {
	mock := &mockNotificationService{}
	h := NewNotificationHandler(mock)

	body := `{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"k","auth":"a"}}`
	w := serve("POST", "/notifications/push/subscribe", "/notifications/push/subscribe", strings.NewReader(body), setAuth, h.Subscribe)

	expectStatus(t, w, http.StatusCreated, 0)
	if mock.gotEndpoint != "https://push.example.com/abc" {
		t.Errorf("unexpected endpoint: %s", mock.gotEndpoint)
	}
}

func TestNotificationHandler_Subscribe_PushDisabled(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{subscribeErr: service.ErrPushDisabled})

	body := `{"endpoint":"https://push.example.com/abc","keys":{"p256dh":"k","auth":"a"}}`
	w := serve("POST", "/notifications/push/subscribe", "/notifications/push/subscribe", strings.NewReader(body), setAuth, h.Subscribe)

	expectStatus(t, w, http.StatusBadRequest, 19002)
}

func TestNotificationHandler_Subscribe_MissingKeys(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	body := `{"endpoint":"https://push.example.com/abc"}`
	w := serve("POST", "/notifications/push/subscribe", "/notifications/push/subscribe", strings.NewReader(body), setAuth, h.Subscribe)

	expectStatus(t, w, http.StatusBadRequest, 10001)
}
