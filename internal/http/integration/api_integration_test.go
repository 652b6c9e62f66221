package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/sprintsync/internal/auth"
	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/db"
	apphttp "github.com/geocoder89/sprintsync/internal/http"
	"github.com/geocoder89/sprintsync/internal/repo/postgres"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	m, err := db.NewMigrator(pool)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if _, err := m.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := apphttp.NewRouter(apphttp.Deps{
		Log:      logger,
		Config:   config.Config{Env: "test"},
		Users:    postgres.NewUsersRepo(pool, nil),
		Projects: postgres.NewProjectsRepo(pool, nil),
		Tasks:    postgres.NewTasksRepo(pool, nil),
		JWT:      auth.NewManager("test-secret-key", time.Hour),
		Ping:     pool.Ping,
	})

	return router, pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if err := db.ResetData(context.Background(), pool); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type idResponse struct {
	ID           string  `json:"id"`
	OwnerID      *string `json:"owner_id"`
	Status       string  `json:"status"`
	TotalMinutes int     `json:"total_minutes"`
}

func signup(t *testing.T, router http.Handler, email string) (string, string) {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/auth/register", "",
		`{"email":"`+email+`","password":"password123","confirm_password":"password123"}`)
	mustStatus(t, w, http.StatusCreated)
	var u idResponse
	mustReadJSON(t, w, &u)

	w = doRequest(router, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"password123"}`)
	mustStatus(t, w, http.StatusOK)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	mustReadJSON(t, w, &tok)

	return u.ID, tok.AccessToken
}

func TestIntegration_ProjectRolesAndCascade(t *testing.T) {
	router, _ := setupTestRouter(t)

	aID, tokenA := signup(t, router, "a@example.com")
	bID, tokenB := signup(t, router, "b@example.com")

	w := doRequest(router, http.MethodPost, "/projects", tokenA, `{"name":"X"}`)
	mustStatus(t, w, http.StatusCreated)
	var p idResponse
	mustReadJSON(t, w, &p)

	mustStatus(t, doRequest(router, http.MethodPost, "/projects/"+p.ID+"/members", tokenA, `{"user_id":"`+bID+`"}`), http.StatusCreated)
	mustStatus(t, doRequest(router, http.MethodPost, "/projects/"+p.ID+"/members", tokenA, `{"user_id":"`+bID+`"}`), http.StatusBadRequest)

	w = doRequest(router, http.MethodPost, "/tasks", tokenA, `{"title":"Wire login","project_id":"`+p.ID+`"}`)
	mustStatus(t, w, http.StatusCreated)
	var tk idResponse
	mustReadJSON(t, w, &tk)
	if tk.OwnerID == nil || *tk.OwnerID != aID {
		t.Fatalf("owner_id = %v, want %s", tk.OwnerID, aID)
	}

	mustStatus(t, doRequest(router, http.MethodGet, "/tasks?project_id="+p.ID+"&sort_by=title", tokenB, ""), http.StatusOK)
	mustStatus(t, doRequest(router, http.MethodPatch, "/tasks/"+tk.ID, tokenB, `{"status":"done"}`), http.StatusForbidden)
	mustStatus(t, doRequest(router, http.MethodPatch, "/projects/"+p.ID+"/members/"+bID, tokenA, `{"role":"admin"}`), http.StatusOK)

	w = doRequest(router, http.MethodPatch, "/tasks/"+tk.ID, tokenB, `{"status":"done"}`)
	mustStatus(t, w, http.StatusOK)
	mustReadJSON(t, w, &tk)
	if tk.Status != "done" {
		t.Fatalf("status = %q, want done", tk.Status)
	}

	for _, m := range []string{"20", "0", "25"} {
		mustStatus(t, doRequest(router, http.MethodPost, "/tasks/"+tk.ID+"/time", tokenA, `{"minutes":`+m+`}`), http.StatusOK)
	}
	w = doRequest(router, http.MethodGet, "/tasks/"+tk.ID, tokenA, "")
	mustStatus(t, w, http.StatusOK)
	mustReadJSON(t, w, &tk)
	if tk.TotalMinutes != 45 {
		t.Fatalf("total_minutes = %d, want 45", tk.TotalMinutes)
	}

	mustStatus(t, doRequest(router, http.MethodDelete, "/projects/"+p.ID, tokenA, ""), http.StatusNoContent)
	mustStatus(t, doRequest(router, http.MethodGet, "/tasks/"+tk.ID, tokenA, ""), http.StatusNotFound)
	mustStatus(t, doRequest(router, http.MethodGet, "/projects/"+p.ID+"/members", tokenA, ""), http.StatusNotFound)
}

func TestIntegration_Readyz(t *testing.T) {
	router, _ := setupTestRouter(t)
	mustStatus(t, doRequest(router, http.MethodGet, "/readyz", "", ""), http.StatusOK)
}

func TestIntegration_BootstrapAdmin(t *testing.T) {
	router, pool := setupTestRouter(t)
	ctx := context.Background()

	// second call is a no-op on an existing admin
	for i := 0; i < 2; i++ {
		if err := db.EnsureAdminUser(ctx, pool, "root@example.com", "password123"); err != nil {
			t.Fatalf("EnsureAdminUser: %v", err)
		}
	}

	w := doRequest(router, http.MethodPost, "/auth/login", "", `{"email":"root@example.com","password":"password123"}`)
	mustStatus(t, w, http.StatusOK)
	var tok struct {
		AccessToken string `json:"access_token"`
	}
	mustReadJSON(t, w, &tok)

	mustStatus(t, doRequest(router, http.MethodGet, "/users/stats", tok.AccessToken, ""), http.StatusOK)

	_, regular := signup(t, router, "plain@example.com")
	mustStatus(t, doRequest(router, http.MethodGet, "/users/stats", regular, ""), http.StatusForbidden)
}
