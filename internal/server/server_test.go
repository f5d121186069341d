package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/pinplan/pkg/board"
)

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	repo := board.NewMemoryRepository()
	require.NoError(t, repo.LoadDir(filepath.Join("..", "..", "testdata", "boards")))

	reg := prometheus.NewRegistry()
	s, err := New(DefaultConfig(), repo, WithRegistry(reg))
	require.NoError(t, err)
	return s, reg
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "requirements", name))
	require.NoError(t, err)
	return string(data)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestListAndGetBoards(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/boards", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Boards []boardSummary `json:"boards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Boards, 1)
	require.Equal(t, "devkit", list.Boards[0].Name)
	require.Equal(t, 17, list.Boards[0].Pins)

	rec = do(t, s, http.MethodGet, "/v1/boards/devkit", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"allocation": "port"`)

	rec = do(t, s, http.MethodGet, "/v1/boards/nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not found")
}

func TestOptimizeText(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "text/plain; charset=utf-8", readFixture(t, "devkit.pins"))
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Success  bool `json:"success"`
		Assigned []struct {
			Requirement struct {
				ID string `json:"id"`
			} `json:"requirement"`
		} `json:"assignedRequirements"`
		RemainingPins []string `json:"remainingPins"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Len(t, res.Assigned, 6)
	require.Equal(t, "status", res.Assigned[0].Requirement.ID)
	require.Equal(t, []string{"D5", "CANTX"}, res.RemainingPins)
}

func TestOptimizeStuckIsNotAnError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "text/plain", readFixture(t, "stuck.pins"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"success": false`)
}

func TestOptimizeJSON(t *testing.T) {
	s, _ := newTestServer(t)
	body := `{"requirements":[
		{"kind":"pin","id":"status","pin":"D2","capability":"pwm"},
		{"id":"bus","capability":"i2c","count":1}
	]}`

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "application/json", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Success  bool `json:"success"`
		Assigned []struct {
			Blocks []struct {
				Pins []string `json:"pins"`
				Port *int     `json:"port"`
			} `json:"assignedBlocks"`
		} `json:"assignedRequirements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Len(t, res.Assigned, 2)

	// Port 1 offers fewer other capabilities than port 0.
	bus := res.Assigned[1].Blocks[0]
	require.Equal(t, []string{"A2", "A3"}, bus.Pins)
	require.NotNil(t, bus.Port)
	require.Equal(t, 1, *bus.Port)
}

func TestOptimizeRejectsInvalid(t *testing.T) {
	s, reg := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "text/plain", readFixture(t, "conflict.pins"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var out validateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.Valid)
	require.Len(t, out.Errors, 4)
	require.Equal(t, "SINGLE_PIN_MISSING_PERIPHERAL", string(out.Errors[0].Type))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	require.Contains(t, names, "pinplan_validator_errors_total")
	require.Contains(t, names, "pinplan_planner_runs_total")
}

func TestValidateEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/validate", "text/plain", readFixture(t, "devkit.pins"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"valid": true`)

	rec = do(t, s, http.MethodPost, "/v1/boards/devkit/validate", "text/plain", "periph bus : spi x 2;")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "PORT_LIMIT_EXCEEDED")
}

func TestBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "text/plain", "periph : ;")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "application/json", `{"reqs":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/boards/missing/optimize", "application/json", `{"requirements":[]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/v1/boards/devkit/optimize", "text/plain", readFixture(t, "devkit.pins"))
	rec := do(t, s, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `pinplan_planner_runs_total{outcome="success"} 1`)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":8080", cfg.Addr)

	cfg = &Config{Addr: ":0"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.Equal(t, 10*time.Second, cfg.ReadHeaderTimeout)

	require.Error(t, (&Config{}).Validate())
	require.Error(t, (&Config{Addr: ":0", BoardsDir: "does-not-exist"}).Validate())

	path := filepath.Join(t.TempDir(), "pinplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: 127.0.0.1:9090\nshutdown_timeout: 2s\nmetrics_path: \"\"\n"), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", cfg.Addr)
	require.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	require.Empty(t, cfg.MetricsPath)
	require.Equal(t, 10*time.Second, cfg.ReadHeaderTimeout, "defaults kept")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
