package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pvi "pv_informant"
	"pv_informant/internal/decision"
	"pv_informant/internal/models"
	"pv_informant/internal/repository"
	"pv_informant/internal/repository/db"
	"pv_informant/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) SendWake(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, address)
	return nil
}

type apiEnv struct {
	router *gin.Engine
	repos  *repository.Repository
	sched  *service.PollScheduler
	sender *recordingSender
}

func newAPIEnv(t *testing.T) apiEnv {
	t.Helper()
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	policy, err := decision.NewThresholdPolicy(12.0, 13.2, 0.5, 2.0)
	require.NoError(t, err)

	repos := repository.NewRepository(conn)
	sender := &recordingSender{}
	services, registry := service.NewService(repos, service.Deps{
		Policy: decision.NewPolicyHolder(policy),
		Sender: sender,
		Settings: service.Settings{
			MaxRange:   service.DefaultMaxRange,
			StaleAfter: service.DefaultStaleAfter,
			MinRepeat:  service.DefaultMinRepeat,
			Freshness:  service.DefaultFreshness,
			SigningKey: "api-test-key",
			TokenTTL:   time.Hour,
		},
	})
	require.NoError(t, registry.Restore(context.Background()))

	sched, ok := services.Status.(*service.PollScheduler)
	require.True(t, ok)

	return apiEnv{router: newTestRouter(services), repos: repos, sched: sched, sender: sender}
}

func (e apiEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e apiEnv) token(t *testing.T) string {
	t.Helper()
	creds := `{"username":"operator","password":"s3cret"}`
	w := e.do(t, postJSON("/auth/sign-up", creds, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, postJSON("/auth/sign-in", creds, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestAPI_ExcessHistoryFromStoredReadings(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	t0 := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

	for _, r := range []models.Reading{
		{Timestamp: t0, BatteryVoltage: 11.0, PVCurrent: 0.1},
		{Timestamp: t0.Add(10 * time.Minute), BatteryVoltage: 13.5, PVCurrent: 2.5},
		{Timestamp: t0.Add(20 * time.Minute), BatteryVoltage: 13.6, PVCurrent: 3.0},
		{Timestamp: t0.Add(40 * time.Minute), BatteryVoltage: 12.5, PVCurrent: 1.0},
	} {
		require.NoError(t, env.repos.Readings.Append(ctx, r))
	}

	w := env.do(t, httptest.NewRequest(http.MethodGet, "/pv?from=2025-08-01T10:00:00Z&to=2025-08-01T11:00:00Z", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got []pvi.ExcessInterval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	want := []pvi.ExcessInterval{
		{Start: t0, End: t0.Add(10 * time.Minute), Decision: decision.No},
		{Start: t0.Add(10 * time.Minute), End: t0.Add(40 * time.Minute), Decision: decision.Yes},
		{Start: t0.Add(40 * time.Minute), End: t0.Add(time.Hour), Decision: decision.Maybe},
	}
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Start.Equal(got[i].Start), "start %d", i)
		assert.True(t, want[i].End.Equal(got[i].End), "end %d", i)
		assert.Equal(t, want[i].Decision, got[i].Decision, "decision %d", i)
	}

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/pv?from=2025-07-01&to=2025-08-01", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code, "32 days exceeds the query cap")
}

func TestAPI_RegisterReportWake(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	const busy, idle = "00:11:22:33:44:55", "aa:bb:cc:dd:ee:ff"

	// unregistered workers cannot report
	w := env.do(t, postJSON("/worker/"+idle+"/report", `{"status":false}`, nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	tok := env.token(t)
	for _, a := range []string{busy, "AA:BB:CC:DD:EE:FF"} {
		w = env.do(t, postJSON("/worker/"+a, ``, authHeader(tok)))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = env.do(t, postJSON("/worker/"+busy+"/report", `{"status":true}`, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"woken":false}`, w.Body.String())

	// never-reported worker has no history yet
	w = env.do(t, httptest.NewRequest(http.MethodGet, "/worker/"+idle, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// surplus now: only the worker that has not reported gets a wake signal
	require.NoError(t, env.repos.Readings.Append(ctx, models.Reading{Timestamp: time.Now().UTC(), BatteryVoltage: 13.8, PVCurrent: 4}))
	snap, err := env.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, decision.Yes, snap.Verdict)
	assert.Equal(t, []string{idle}, snap.Candidates)
	assert.Equal(t, []string{idle}, env.sender.sent)

	w = env.do(t, postJSON("/worker/"+idle+"/report", `{"status":true}`, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"woken":true}`, w.Body.String())

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/worker/"+busy, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var activity []pvi.ActivityInterval
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &activity))
	require.Len(t, activity, 1)
	assert.True(t, activity[0].Status)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/workers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count   int             `json:"count"`
		Workers []models.Worker `json:"workers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, idle, list.Workers[1].Address)
	assert.NotNil(t, list.Workers[1].LastWakeTime)

	w = env.do(t, httptest.NewRequest(http.MethodGet, "/pv/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
