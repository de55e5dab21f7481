package rest_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/interfaces/rest"
)

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sm, err := services.NewServiceManager(sqlx.NewDb(db, "mysql"), cfg, services.Dependencies{})
	require.NoError(t, err)
	return rest.NewRouter(sm, cfg), mock
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	router, mock := newTestRouter(t)

	t.Run("Health pings the database", func(t *testing.T) {
		mock.ExpectPing()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Catalog is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pricing/catalog", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "landing_page")
	})

	t.Run("Estimate is public", func(t *testing.T) {
		body := `{"project_type":"landing_page","complexity":"low","timeline":"normal"}`
		req := httptest.NewRequest(http.MethodPost, "/api/pricing/estimate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"estimate"`)
	})

	t.Run("Back office requires a token", func(t *testing.T) {
		for _, path := range []string{"/api/budgets", "/api/projects", "/api/payments", "/api/dashboard/summary"} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		}
	})

	t.Run("Webhook without processor", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader("{}")))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Requests carry an ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pricing/catalog", nil))

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}
