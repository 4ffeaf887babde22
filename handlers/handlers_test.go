package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"macroclock/bridge"
	"macroclock/host"
	"macroclock/metrics"
	"macroclock/service"
	"macroclock/settings"
	"macroclock/store"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	router *gin.Engine
	store  *store.MemoryStore
	link   *host.WatchLink
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	st := store.NewMemoryStore()
	webview := host.NewWebview(0, logger)
	link := host.NewWatchLink(2*time.Second, logger)
	mgr := metrics.NewManager()
	link.SetOnStateChange(mgr.SetWatchConnected)

	b, err := bridge.New(bridge.Options{
		Store:    st,
		Opener:   webview,
		Sender:   link,
		Layout:   settings.ClassicLayout(settings.DefaultHost),
		Logger:   logger,
		Recorder: mgr,
	})
	require.NoError(t, err)

	logs := service.NewLogBuffer(50, logrus.InfoLevel)
	logger.AddHook(logs)
	service.InitServices(b, st, webview, link, logs)

	t.Cleanup(func() {
		b.Close()
		_ = link.Close()
	})

	static := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html>macroclock</html>")},
	}
	router := NewRouter(RouterOptions{
		Static:      static,
		Metrics:     mgr.Handler(),
		WatchLink:   link,
		WaitTimeout: 5 * time.Second,
	})
	return &apiEnv{router: router, store: st, link: link}
}

func (e *apiEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "127.0.0.1:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var resp Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func dataMap(t *testing.T, resp Envelope) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

const scenarioPayload = `{"backgroundColor":"#000000","hourColor":"#FFFFFF","handColor":"#FF0000","dotColor":"#00FF00","handOutlineColor":"#0000FF"}`

func TestShowConfiguration(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/configuration", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, CodeOK, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "http://dustinhu.com/projects/library/MacroClock/Configuration.html", data["url"])
	assert.Equal(t, "classic", data["layout"])
}

func TestShowConfiguration_Redirect(t *testing.T) {
	env := newAPIEnv(t)
	require.NoError(t, env.store.Set(context.Background(), bridge.DefaultStorageKey, scenarioPayload))

	w := env.do(t, http.MethodGet, "/api/configuration?redirect=1", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://dustinhu.com/projects/library/MacroClock/Configuration.html"+
		"?&backgroundColor=%23000000&hourColor=%23FFFFFF&handColor=%23FF0000"+
		"&dotColor=%2300FF00&handOutlineColor=%230000FF", w.Header().Get("Location"))
}

func TestConfigurationQR(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/configuration/qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode(t, w).Code)

	env.do(t, http.MethodGet, "/api/configuration", nil)
	w = env.do(t, http.MethodGet, "/api/configuration/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestWebviewClosed_Post(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodPost, "/api/webview/closed", map[string]string{
		"response": settings.EncodeURIComponent(scenarioPayload),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, dataMap(t, decode(t, w))["saved"])

	stored, ok, err := env.store.Get(context.Background(), bridge.DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, scenarioPayload, stored)

	w = env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decode(t, w))
	assert.Equal(t, true, data["stored"])
	record := data["record"].(map[string]any)
	assert.Equal(t, "#0000FF", record["handOutlineColor"])
	assert.NotNil(t, data["last_delivery"])
}

func TestWebviewClosed_GetKeepsEncodedValue(t *testing.T) {
	env := newAPIEnv(t)
	payload := `{"label":"50% off & more"}`

	w := env.do(t, http.MethodGet, "/api/webview/closed?response="+settings.EncodeURIComponent(payload), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, _, err := env.store.Get(context.Background(), bridge.DefaultStorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, payload, stored)
}

func TestWebviewClosed_Malformed(t *testing.T) {
	env := newAPIEnv(t)
	require.NoError(t, env.store.Set(context.Background(), bridge.DefaultStorageKey, scenarioPayload))

	w := env.do(t, http.MethodPost, "/api/webview/closed", map[string]string{"response": "%7Bbroken"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeInvalidRequest, decode(t, w).Code)

	stored, _, err := env.store.Get(context.Background(), bridge.DefaultStorageKey)
	require.NoError(t, err)
	assert.Equal(t, scenarioPayload, stored)
}

func TestWebviewClosed_MissingResponse(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/webview/closed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/webview/closed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebviewClosed_WaitWithoutWatch(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodPost, "/api/webview/closed?wait=1", map[string]string{
		"response": settings.EncodeURIComponent(scenarioPayload),
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode(t, w)
	assert.Equal(t, CodeBadGateway, resp.Code)
	detail := dataMap(t, resp)["detail"].(map[string]any)
	assert.Equal(t, "watchface not connected", detail["reason"])
}

func TestWebviewClosed_WaitWithWatchAck(t *testing.T) {
	env := newAPIEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	watch, err := host.DialWatch(ctx, srv.URL)
	require.NoError(t, err)
	defer watch.Close()
	require.Eventually(t, env.link.Connected, 2*time.Second, 5*time.Millisecond)

	go func() {
		frame, err := watch.Receive(ctx)
		if err != nil {
			return
		}
		_ = watch.Ack(frame.TransactionID)
	}()

	body := `{"response":"` + settings.EncodeURIComponent(scenarioPayload) + `"}`
	resp, err := srv.Client().Post(srv.URL+"/api/webview/closed?wait=1", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env2 Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env2))
	delivery := env2.Data.(map[string]any)["delivery"].(map[string]any)
	assert.Equal(t, true, delivery["acked"])
	assert.Equal(t, true, delivery["completed"])

	metricsResp, err := srv.Client().Get(srv.URL + "/api/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	text, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `macroclock_messages_total{outcome="ack"} 1`)
	assert.Contains(t, string(text), "macroclock_watch_connected 1")
}

func TestHealthAndLogs(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, decode(t, w))
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, false, data["watch_connected"])

	env.do(t, http.MethodGet, "/api/configuration", nil)
	w = env.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries, ok := decode(t, w).Data.([]any)
	require.True(t, ok)
	assert.NotEmpty(t, entries)

	w = env.do(t, http.MethodDelete, "/api/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, service.GlobalServices.Logs.Entries())

	require.NoError(t, env.store.Close())
	w = env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStaticPages(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)

	w = env.do(t, http.MethodGet, "/web/index.html", nil)
	assert.Contains(t, []int{http.StatusOK, http.StatusMovedPermanently}, w.Code)
}

func TestShutdownCode(t *testing.T) {
	env := newAPIEnv(t)
	ch := make(chan bool, 1)
	SetShutdownChannel(ch)
	defer SetShutdownChannel(nil)

	w := env.do(t, http.MethodPost, "/api/shutdown/verify", map[string]string{"code": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/shutdown/generate-code", nil)
	require.Equal(t, http.StatusOK, w.Code)
	code := dataMap(t, decode(t, w))["code"].(string)

	w = env.do(t, http.MethodPost, "/api/shutdown/verify", map[string]string{"code": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/shutdown/verify", map[string]string{"code": code})
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown not signalled")
	}
}

func TestRawQueryValue(t *testing.T) {
	v, ok := rawQueryValue("a=1&response=%7B%22a%22%3A%22%2525%22%7D&b=2", "response")
	assert.True(t, ok)
	assert.Equal(t, "%7B%22a%22%3A%22%2525%22%7D", v)

	_, ok = rawQueryValue("a=1", "response")
	assert.False(t, ok)

	v, ok = rawQueryValue("response=", "response")
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestShutdown_RejectsRemoteCallers(t *testing.T) {
	env := newAPIEnv(t)

	for _, remote := range []string{"192.168.1.20:51000", "[2001:db8::1]:51000", "garbage"} {
		req := httptest.NewRequest(http.MethodPost, "/api/shutdown/generate-code", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", "127.0.0.1")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, remote)
		assert.Equal(t, CodeForbidden, decode(t, w).Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/shutdown/generate-code", nil)
	req.RemoteAddr = "[::1]:51000"
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestShutdownGuard_ExpiredCodeIsConsumed(t *testing.T) {
	g := &shutdownGuard{}
	code, _, err := g.issue()
	require.NoError(t, err)
	require.Len(t, code, 6)

	g.expiresAt = time.Now().Add(-time.Second)
	assert.Equal(t, "Shutdown code expired", g.verify(code))
	assert.Equal(t, "No shutdown code generated", g.verify(code))
}
