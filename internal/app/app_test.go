package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts"
	"github.com/NU-Formula-Racing/daq-interface-25/pkg/contracts/events"
)

// testFrontendFS builds a minimal embedded dashboard for router tests.
func testFrontendFS() fs.FS {
	return fstest.MapFS{
		"index.html": &fstest.MapFile{
			Data: []byte(`<!DOCTYPE html><html><head><title>DAQ Interface</title></head><body>dashboard</body></html>`),
		},
		"static/app.js": &fstest.MapFile{
			Data: []byte(`console.log("daq");`),
		},
		"static/app.css": &fstest.MapFile{
			Data: []byte(`body { background: #111111; }`),
		},
		"favicon.ico": &fstest.MapFile{
			Data: []byte("icon-bytes"),
		},
	}
}

// newTestApp builds an application on the default configuration and tears
// down its background goroutines with the test.
func newTestApp(t *testing.T, frontendFS fs.FS) *Application {
	t.Helper()

	t.Setenv("DAQ_LOGGING_LEVEL", "error")

	app, err := NewApplication(frontendFS)
	require.NoError(t, err)
	t.Cleanup(app.WebSocketHub.Stop)

	return app
}

// multipartUpload builds a multipart/form-data body with one part per file.
func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func decodeEnvelope(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()

	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name          string
		frontendFS    fs.FS
		setupEnv      func(t *testing.T)
		wantErr       bool
		errorContains string
	}{
		{
			name:       "default configuration with frontend",
			frontendFS: testFrontendFS(),
		},
		{
			name:       "nil frontend runs API-only",
			frontendFS: nil,
		},
		{
			name:       "invalid port fails validation",
			frontendFS: testFrontendFS(),
			setupEnv: func(t *testing.T) {
				t.Setenv("DAQ_SERVER_PORT", "-1")
			},
			wantErr:       true,
			errorContains: "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DAQ_LOGGING_LEVEL", "error")
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}

			app, err := NewApplication(tt.frontendFS)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				assert.Nil(t, app)
				return
			}

			require.NoError(t, err)
			defer app.WebSocketHub.Stop()

			assert.NotNil(t, app.Config)
			assert.NotNil(t, app.Logger)
			assert.NotNil(t, app.Router)
			assert.NotNil(t, app.Server)
			assert.NotNil(t, app.WebSocketHub)
			assert.NotNil(t, app.SessionStore)
			assert.NotNil(t, app.SessionService)
			assert.NotNil(t, app.HealthService)
			assert.NotNil(t, app.OTelProviders)
			assert.Equal(t, tt.frontendFS, app.FrontendFS)
		})
	}
}

func TestApplication_RouterEndpoints(t *testing.T) {
	app := newTestApp(t, testFrontendFS())

	server := httptest.NewServer(app.Router)
	defer server.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantType   string
	}{
		{name: "health", path: "/api/health", wantStatus: http.StatusOK},
		{name: "readiness", path: "/api/health/ready", wantStatus: http.StatusOK},
		{name: "liveness", path: "/api/health/live", wantStatus: http.StatusOK},
		{name: "version", path: "/api/version", wantStatus: http.StatusOK},
		{name: "websocket stats", path: "/api/ws/stats", wantStatus: http.StatusOK},
		{name: "unknown session", path: "/api/sessions/nope", wantStatus: http.StatusNotFound},
		{name: "dashboard index", path: "/", wantStatus: http.StatusOK, wantType: "text/html; charset=utf-8"},
		{name: "stylesheet", path: "/static/app.css", wantStatus: http.StatusOK, wantType: "text/css"},
		{name: "script", path: "/static/app.js", wantStatus: http.StatusOK, wantType: "application/javascript"},
		{name: "missing asset", path: "/static/missing.css", wantStatus: http.StatusNotFound},
		{name: "favicon", path: "/favicon.ico", wantStatus: http.StatusOK, wantType: "image/x-icon"},
		{name: "websocket without upgrade", path: "/ws", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestApplication_WorkflowThroughRouter(t *testing.T) {
	app := newTestApp(t, testFrontendFS())

	server := httptest.NewServer(app.Router)
	defer server.Close()
	client := server.Client()

	body, contentType := multipartUpload(t, map[string]string{
		"a.csv": "t,v1,v2\n0,1.0,2.0\n1,1.5,2.5\n2,2.0,3.0\n",
		"b.csv": "t,v2,v3\n0,4.0,5.0\n1,4.5,5.5\n",
	})

	resp, err := client.Post(server.URL+"/api/sessions", contentType, body)
	require.NoError(t, err)
	envelope := decodeEnvelope(t, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := envelope["data"].(map[string]interface{})
	sessionID := data["id"].(string)
	require.NotEmpty(t, sessionID)
	assert.Len(t, data["slots"].([]interface{}), 2)

	base := server.URL + "/api/sessions/" + sessionID

	req, err := http.NewRequest(http.MethodPut, base+"/slots", strings.NewReader(`{"count":3}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPatch, base+"/slots/0", strings.NewReader(`{"field":"y_column","value":"v2"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = client.Do(req)
	require.NoError(t, err)
	envelope = decodeEnvelope(t, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slot := envelope["data"].(map[string]interface{})
	spec := slot["spec"].(map[string]interface{})
	assert.Equal(t, "a.csv - v2 vs t", spec["title"])

	resp, err = client.Post(base+"/render", "application/json", nil)
	require.NoError(t, err)
	envelope = decodeEnvelope(t, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	batch := envelope["data"].(map[string]interface{})
	assert.Len(t, batch["figures"].([]interface{}), 3)

	resp, err = client.Get(base + "/figures")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/datasets/b.csv/export?format=csv")
	require.NoError(t, err)
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `"b.csv"`)
	assert.Contains(t, string(exported), "t,v2,v3")

	req, err = http.NewRequest(http.MethodDelete, base, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplication_HandleWebSocket(t *testing.T) {
	app := newTestApp(t, testFrontendFS())

	server := httptest.NewServer(app.Router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg events.Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
}

func TestApplication_APIOnlyMode(t *testing.T) {
	app := newTestApp(t, nil)

	server := httptest.NewServer(app.Router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	envelope := decodeEnvelope(t, resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, contracts.Version, data["version"])

	resp, err = http.Get(server.URL + "/static/app.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApplication_ServeDashboard(t *testing.T) {
	app := newTestApp(t, testFrontendFS())
	handler := app.serveDashboard(app.FrontendFS)

	tests := []struct {
		name     string
		path     string
		wantType string
		wantBody string
	}{
		{name: "root serves index", path: "/", wantType: "text/html; charset=utf-8", wantBody: "dashboard"},
		{name: "unknown route falls back to index", path: "/sessions/abc", wantType: "text/html; charset=utf-8", wantBody: "dashboard"},
		{name: "exact file wins", path: "/static/app.js", wantType: "application/javascript", wantBody: "console.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			handler(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantType, w.Header().Get("Content-Type"))
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	t.Run("missing index reports unavailable", func(t *testing.T) {
		empty := app.serveDashboard(fstest.MapFS{})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		empty(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestApplication_GetCORSConfig(t *testing.T) {
	app := newTestApp(t, testFrontendFS())

	t.Run("production origins", func(t *testing.T) {
		cfg := app.getCORSConfig()

		assert.Contains(t, cfg.AllowedOrigins, fmt.Sprintf("http://localhost:%d", app.Config.Server.Port))
		assert.NotContains(t, cfg.AllowedOrigins, "http://localhost:5173")
		assert.Contains(t, cfg.AllowedMethods, http.MethodPatch)
		assert.Contains(t, cfg.ExposedHeaders, "Content-Disposition")
		assert.True(t, cfg.AllowCredentials)
		assert.Equal(t, 300, cfg.MaxAge)
	})

	t.Run("development adds the dev server", func(t *testing.T) {
		t.Setenv("DAQ_ENV", "development")

		cfg := app.getCORSConfig()
		assert.Contains(t, cfg.AllowedOrigins, "http://localhost:5173")
	})

	t.Run("configured origins are appended", func(t *testing.T) {
		app.Config.Security.AllowedOrigins = []string{"https://telemetry.example.com"}
		app.Config.Security.EnableCORS = true

		cfg := app.getCORSConfig()
		assert.Contains(t, cfg.AllowedOrigins, "https://telemetry.example.com")
	})
}

func TestApplication_IsDevelopmentMode(t *testing.T) {
	app := newTestApp(t, nil)

	t.Run("defaults to production", func(t *testing.T) {
		assert.False(t, app.isDevelopmentMode())
	})

	t.Run("DAQ_ENV development", func(t *testing.T) {
		t.Setenv("DAQ_ENV", "development")
		assert.True(t, app.isDevelopmentMode())
	})

	t.Run("GO_ENV development", func(t *testing.T) {
		t.Setenv("GO_ENV", "development")
		assert.True(t, app.isDevelopmentMode())
	})
}

func TestApplication_CreateServer(t *testing.T) {
	app := newTestApp(t, nil)

	assert.Equal(t, fmt.Sprintf(":%d", app.Config.Server.Port), app.Server.Addr)
	assert.Equal(t, app.Router, app.Server.Handler)
	assert.Equal(t, app.Config.Server.ReadTimeout, app.Server.ReadTimeout)
	assert.Equal(t, app.Config.Server.WriteTimeout, app.Server.WriteTimeout)
	assert.Equal(t, app.Config.Server.IdleTimeout, app.Server.IdleTimeout)
	assert.Equal(t, app.Config.Server.MaxHeaderBytes, app.Server.MaxHeaderBytes)
}

func TestApplication_StartAndStop(t *testing.T) {
	t.Setenv("DAQ_SERVER_PORT", "18423")

	app := newTestApp(t, testFrontendFS())

	ctx, cancel := testContext(t)
	require.NoError(t, app.Start(ctx, cancel))

	// The listener comes up asynchronously; poll the health endpoint
	// briefly, but shut down cleanly either way.
	healthy := false
	for i := 0; i < 20; i++ {
		resp, err := http.Get("http://localhost:18423/api/health")
		if err == nil {
			healthy = resp.StatusCode == http.StatusOK
			resp.Body.Close()
			if healthy {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	assert.True(t, healthy, "server never answered on /api/health")

	require.NoError(t, app.Stop(ctx))
}

func testContext(t *testing.T) (ctx context.Context, cancel context.CancelFunc) {
	t.Helper()
	ctx, cancel = context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, cancel
}
