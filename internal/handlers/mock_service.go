package handlers

import (
	"context"
	"net/http"
	"sync"

	"pv_informant/internal/decision"
	"pv_informant/internal/interval"
	"pv_informant/internal/models"
	"pv_informant/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockHistory struct {
	resp      []interval.Interval[decision.Verdict]
	err       error
	lastRange service.RangeParams
	calls     int
}

func (m *mockHistory) QueryExcessIntervals(_ context.Context, p service.RangeParams) ([]interval.Interval[decision.Verdict], error) {
	m.calls++
	m.lastRange = p
	return m.resp, m.err
}

type mockRegistry struct {
	activity    []interval.Interval[bool]
	activityErr error
	report      service.ReportResult
	reportErr   error
	worker      models.Worker
	registerErr error
	workers     []models.Worker

	lastAddress string
	lastStatus  bool
	lastRange   service.RangeParams
	reportCalls int
}

func (m *mockRegistry) Register(_ context.Context, address string) (models.Worker, error) {
	m.lastAddress = address
	return m.worker, m.registerErr
}
func (m *mockRegistry) Report(_ context.Context, address string, status bool) (service.ReportResult, error) {
	m.reportCalls++
	m.lastAddress = address
	m.lastStatus = status
	return m.report, m.reportErr
}
func (m *mockRegistry) QueryActivityIntervals(_ context.Context, address string, p service.RangeParams) ([]interval.Interval[bool], error) {
	m.lastAddress = address
	m.lastRange = p
	return m.activity, m.activityErr
}
func (m *mockRegistry) Workers() []models.Worker { return m.workers }

type mockStatus struct {
	mu   sync.Mutex
	snap *service.TickSnapshot
	ch   chan service.TickSnapshot
}

func newMockStatus(snap *service.TickSnapshot) *mockStatus {
	return &mockStatus{snap: snap, ch: make(chan service.TickSnapshot, 4)}
}

func (m *mockStatus) Snapshot() (service.TickSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return service.TickSnapshot{}, false
	}
	return *m.snap, true
}
func (m *mockStatus) Subscribe() (<-chan service.TickSnapshot, func()) {
	return m.ch, func() {}
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
