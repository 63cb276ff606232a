package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clms-project/clms/internal/data"
)

func newTestApplication() *applicationDependencies {
	var settings serverConfig
	settings.environment = "testing"

	return &applicationDependencies{
		config: settings,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// okHandler is a stand-in for a protected endpoint.
func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Test_RequireAdmin(t *testing.T) {
	app := newTestApplication()

	tests := []struct {
		name       string
		principal  principal
		wantStatus int
	}{
		{"anonymous_gets_401", principal{}, http.StatusUnauthorized},
		{"client_gets_403", principal{Type: data.PrincipalClient, ID: 1}, http.StatusForbidden},
		{"admin_passes", principal{Type: data.PrincipalAdmin, ID: 1}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/books", nil)
			r = app.contextSetPrincipal(r, tt.principal)
			w := httptest.NewRecorder()

			app.requireAdmin(okHandler)(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func Test_RequireClient(t *testing.T) {
	app := newTestApplication()

	tests := []struct {
		name       string
		principal  principal
		wantStatus int
	}{
		{"anonymous_gets_401", principal{}, http.StatusUnauthorized},
		{"admin_gets_403", principal{Type: data.PrincipalAdmin, ID: 1}, http.StatusForbidden},
		{"client_passes", principal{Type: data.PrincipalClient, ID: 1}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/client/books", nil)
			r = app.contextSetPrincipal(r, tt.principal)
			w := httptest.NewRecorder()

			app.requireClient(okHandler)(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func Test_RecoverPanic_Returns500(t *testing.T) {
	app := newTestApplication()

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went badly wrong")
	})

	r := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	w := httptest.NewRecorder()

	app.recoverPanic(panicking).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "close", w.Header().Get("Connection"))
}

func Test_HealthcheckHandler(t *testing.T) {
	app := newTestApplication()

	r := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	w := httptest.NewRecorder()

	app.healthcheckHandler(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Status     string            `json:"status"`
		SystemInfo map[string]string `json:"system_info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "available", body.Status)
	assert.Equal(t, "testing", body.SystemInfo["environment"])
	assert.Equal(t, appVersion, body.SystemInfo["version"])
}
