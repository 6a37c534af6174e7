package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/hvac-controller/internal/history"
	"github.com/sweeney/hvac-controller/internal/logic"
	"github.com/sweeney/hvac-controller/internal/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCommander struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCommander) Submit(_ context.Context, name string, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, fmt.Sprintf("%s=%d", name, value))
	return nil
}

type fakeHistory struct {
	records  []history.Record
	err      error
	from, to time.Time
	limit    int
}

func (f *fakeHistory) List(_ context.Context, from, to time.Time, limit int) ([]history.Record, error) {
	f.from, f.to, f.limit = from, to, limit
	return f.records, f.err
}

func runningStatus() logic.Status {
	return logic.Status{
		Enabled:     true,
		Mode:        logic.ModeHeat,
		HeatMode:    logic.HeatGas,
		HeatSource:  logic.HeatGas,
		Phase:       logic.PhaseRunning,
		State:       logic.StateGas,
		Running:     true,
		FanRunning:  true,
		Orientation: logic.OrientationHeat,
		Indoor:      684,
		IndoorKnown: true,
		Humidity:    38,
		Target:      700,
		Timers:      logic.Timers{Cycle: 95, RunTotal: 4000},
	}
}

type testEnv struct {
	srv     *Server
	tracker *status.Tracker
	cmd     *fakeCommander
	hist    *fakeHistory
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, status.Config{
		TickMs:      1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Prefix:      "hvac",
		HTTPAddr:    ":80",
	})
	env := testEnv{tracker: tr, cmd: &fakeCommander{}, hist: &fakeHistory{}}
	env.srv = New(":0", tr, Options{Commander: env.cmd, History: env.hist})
	return env
}

func (e testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func TestJSONEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Update(runningStatus(), logic.DefaultConfig())
	env.tracker.SetMQTTConnected(true)

	w := env.get("/index.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sj))
	assert.True(t, sj.Status.Ready)
	assert.Equal(t, "GAS", sj.Status.State)
	assert.Equal(t, "heat", sj.Status.Mode)
	assert.True(t, sj.Status.MQTT.Connected)
	assert.Equal(t, "tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	assert.Equal(t, int64(1000), sj.Status.Config.TickMs)
}

func TestJSONNotReadyBeforeFirstUpdate(t *testing.T) {
	env := newTestEnv(t)

	var sj status.StatusJSON
	require.NoError(t, json.Unmarshal(env.get("/index.json").Body.Bytes(), &sj))
	assert.False(t, sj.Status.Ready)
	assert.Nil(t, sj.Status.Indoor)
}

func TestSettingsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Update(runningStatus(), logic.DefaultConfig())

	w := env.get("/settings.json")
	require.Equal(t, http.StatusOK, w.Code)

	var sd status.SettingsData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sd))
	assert.Equal(t, 790, sd.CoolLow)
	assert.Equal(t, 120, sd.FanPostDelay)
}

func TestStateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Update(runningStatus(), logic.DefaultConfig())

	var pd status.PushData
	require.NoError(t, json.Unmarshal(env.get("/state.json").Body.Bytes(), &pd))
	assert.Equal(t, 1, pd.Running)
	assert.Equal(t, int(logic.StateGas), pd.State)
	assert.Equal(t, 684, pd.Indoor)
}

func TestHTMLEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Update(runningStatus(), logic.DefaultConfig())
	env.tracker.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	for _, path := range []string{"/", "/index.html"} {
		w := env.get(path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
		body := w.Body.String()
		assert.Contains(t, body, "GAS")
		assert.Contains(t, body, "68.4")
		assert.Contains(t, body, "192.168.1.42")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusNotFound, env.get("/nonexistent").Code)
}

func TestSetForm(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(url.Values{"name": {"cooltempl"}, "value": {"780"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"cooltempl=780"}, env.cmd.calls)
}

func TestSetJSON(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(`{"name":"fanmode","value":0}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"fanmode=0"}, env.cmd.calls)
}

func TestSetRejectsMalformed(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"name":"mode"}`, `{"value":1}`, `{"name":"mode","value":"cool"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, env.do(req).Code, body)
	}
	assert.Empty(t, env.cmd.calls)
}

func TestSetUnknownParameter(t *testing.T) {
	env := newTestEnv(t)
	env.cmd.err = fmt.Errorf("%w: %q", logic.ErrUnknownParameter, "turbo")

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(`{"name":"turbo","value":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := env.do(req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "turbo")
}

func TestSetCommandFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cmd.err = context.DeadlineExceeded

	req := httptest.NewRequest(http.MethodPost, "/set", strings.NewReader(`{"name":"mode","value":1}`))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusInternalServerError, env.do(req).Code)
}

func TestSetAndHistoryDisabled(t *testing.T) {
	srv := New(":0", status.NewTracker(time.Now(), status.Config{}), Options{})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/set", strings.NewReader("name=mode&value=1")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	env.hist.records = []history.Record{
		{ID: "b", Type: "CYCLE_STOP", Mode: "cool", Source: "heatpump", Reason: "threshold", DurationS: 788},
		{ID: "a", Type: "CYCLE_START", Mode: "cool", Source: "heatpump"},
	}

	w := env.get("/history?from=2026-07-01&to=2026-07-02&limit=10")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count  int              `json:"count"`
		Events []history.Record `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "b", body.Events[0].ID)

	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), env.hist.from)
	assert.Equal(t, time.Date(2026, 7, 2, 23, 59, 59, 0, time.UTC), env.hist.to)
	assert.Equal(t, 10, env.hist.limit)
}

func TestHistoryDefaultLimit(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.get("/history").Code)
	assert.Equal(t, history.DefaultLimit, env.hist.limit)
	assert.True(t, env.hist.from.IsZero())
}

func TestHistoryBadQuery(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{
		"?from=yesterday",
		"?to=07/02/2026",
		"?from=2026-07-03&to=2026-07-02",
		"?limit=0",
		"?limit=5000",
	} {
		assert.Equal(t, http.StatusBadRequest, env.get("/history"+q).Code, q)
	}
}

func TestHistoryListError(t *testing.T) {
	env := newTestEnv(t)
	env.hist.err = errors.New("disk I/O error")
	assert.Equal(t, http.StatusInternalServerError, env.get("/history").Code)
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		u    string
		want time.Duration
	}{
		{"/ws", time.Second},
		{"/ws?interval=200ms", 200 * time.Millisecond},
		{"/ws?interval_ms=150", 150 * time.Millisecond},
		{"/ws?interval=20s", time.Second},
		{"/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
		{"/ws?interval=2s&interval_ms=150", 2 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.u, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tc.u, nil)
			assert.Equal(t, tc.want, parseInterval(c))
		})
	}
}

func TestWebSocketStreamsPushData(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Update(runningStatus(), logic.DefaultConfig())

	ts := httptest.NewServer(env.srv.Handler())
	defer ts.Close()

	u, _ := url.Parse(ts.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = "interval=50ms"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first status.PushData
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 684, first.Indoor)

	st := runningStatus()
	st.Indoor = 701
	env.tracker.Update(st, logic.DefaultConfig())

	require.Eventually(t, func() bool {
		var next status.PushData
		if err := conn.ReadJSON(&next); err != nil {
			return false
		}
		return next.Indoor == 701
	}, 2*time.Second, 10*time.Millisecond)
}
