package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventar-backend/internal/auth"
	"inventar-backend/internal/cache"
	"inventar-backend/internal/config"
	"inventar-backend/internal/database"
	"inventar-backend/internal/handlers"
	"inventar-backend/internal/health"
	"inventar-backend/internal/middleware"
	"inventar-backend/internal/models"
	"inventar-backend/internal/realtime"
	"inventar-backend/internal/repositories/sqlite"
	"inventar-backend/internal/services"
)

type testServer struct {
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(st.Close)
	if err := database.NewSQLiteMigrator(st.DB()).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Issuer = "inventar-test"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.CookieName = "inventar_session"
	cfg.Server.CorsAllowedOrigins = []string{"http://localhost:5173"}

	jwtManager := auth.NewJWTManager(cfg)
	c := cache.NewMemoryCache()
	hub := realtime.NewHub(cfg.Server.CorsAllowedOrigins)
	feed := services.NewChangeFeed(c, hub)
	entityHandlers := services.DefaultEntityHandlers()

	userService := services.NewUserService(st.Users(), jwtManager)
	itemService := services.NewItemService(st, c, time.Minute, feed)
	locationService := services.NewLocationService(st, feed)
	changelogService := services.NewChangelogService(st, 0, 0, entityHandlers...)
	undoService := services.NewUndoService(st, feed, entityHandlers...)

	router := NewRouter(
		handlers.NewAuthHandler(userService, cfg),
		handlers.NewUserHandler(userService),
		handlers.NewItemHandler(itemService, changelogService),
		handlers.NewLocationHandler(locationService, changelogService),
		handlers.NewChangelogHandler(changelogService, undoService, services.NewConflictDetector(st)),
		handlers.NewReportHandler(services.NewReportService(changelogService, 50)),
		handlers.NewStatsHandler(services.NewStatsService(st, c, time.Minute)),
		handlers.NewBackupHandler(services.NewBackupService(st, nil, "")),
		handlers.NewHealthHandler(health.NewHealthChecker(st, config.DriverSQLite, nil)),
		hub,
		middleware.NewAuthMiddleware(jwtManager, st.Users(), cfg.JWT.CookieName),
	)
	return &testServer{handler: Wrap(router, middleware.NewCORS(cfg))}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) signup(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/signup", models.SignupRequest{Name: "Admin", Email: "admin@example.org", Password: "geheim123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "inventar_session" {
			if !c.HttpOnly {
				t.Fatal("session cookie must be HttpOnly")
			}
			s.cookie = c
		}
	}
	if s.cookie == nil {
		t.Fatal("signup did not set a session cookie")
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/api/items", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestItemEditAndUndoFlow(t *testing.T) {
	s := newTestServer(t)
	s.signup(t)

	rec := s.do(t, http.MethodPost, "/api/items", models.CreateItemRequest{Name: "Bohrmaschine", Tags: []string{"Werkzeug"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	item := decode[models.Item](t, rec)

	for _, name := range []string{"Akkubohrer", "Schlagbohrer"} {
		rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/items/%d", item.ID), models.UpdateItemRequest{Name: name, Tags: item.Tags})
		if rec.Code != http.StatusOK {
			t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec = s.do(t, http.MethodGet, "/api/changelog?page=1&page_size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list changelog: %d", rec.Code)
	}
	page := decode[models.ChangelogPage](t, rec)
	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("unexpected page %+v", page)
	}
	latest, firstUpdate := page.Items[0], page.Items[1]
	if latest.UserName == nil || *latest.UserName != "Admin" {
		t.Fatalf("entry not attributed: %+v", latest)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/changelog/%d/conflict", firstUpdate.ID), nil)
	conflict := decode[handlers.ConflictResponse](t, rec)
	if !conflict.Conflicting || conflict.Conflict == nil || conflict.Conflict.ID != latest.ID {
		t.Fatalf("unexpected conflict response %+v", conflict)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/changelog/%d/undo", firstUpdate.ID), nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if result := decode[models.UndoResult](t, rec); result.ConflictID == nil || *result.ConflictID != latest.ID {
		t.Fatalf("unexpected conflict result %+v", result)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/changelog/%d/undo", latest.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/items/%d", item.ID), nil)
	if got := decode[models.Item](t, rec); got.Name != "Akkubohrer" {
		t.Fatalf("undo not applied: %q", got.Name)
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/items/%d/changelog", item.ID), nil)
	if history := decode[[]models.ChangelogView](t, rec); len(history) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(history))
	}

	if rec = s.do(t, http.MethodPost, "/api/changelog/9999/undo", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec = s.do(t, http.MethodGet, "/api/changelog/9999", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUndoDeleteRestoresItem(t *testing.T) {
	s := newTestServer(t)
	s.signup(t)

	rec := s.do(t, http.MethodPost, "/api/items", models.CreateItemRequest{Name: "Schere"})
	item := decode[models.Item](t, rec)
	s.do(t, http.MethodPut, fmt.Sprintf("/api/items/%d", item.ID), models.UpdateItemRequest{Name: "Blechschere"})
	if rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/items/%d", item.ID), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}

	page := decode[models.ChangelogPage](t, s.do(t, http.MethodGet, "/api/changelog", nil))
	deleted := page.Items[0]
	if deleted.ChangeType != models.ChangeDelete || deleted.EntityExists || deleted.EntityName != "Blechschere" {
		t.Fatalf("unexpected delete entry %+v", deleted)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/changelog/%d/undo", deleted.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo delete: %d %s", rec.Code, rec.Body.String())
	}
	if rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/items/%d", item.ID), nil); rec.Code != http.StatusOK {
		t.Fatalf("restored item: %d", rec.Code)
	}
}

func TestLocationRoutes(t *testing.T) {
	s := newTestServer(t)
	s.signup(t)

	room := decode[models.Location](t, s.do(t, http.MethodPost, "/api/locations", models.CreateLocationRequest{Name: "Werkstatt"}))
	shelf := decode[models.Location](t, s.do(t, http.MethodPost, "/api/locations", models.CreateLocationRequest{Name: "Regal", ParentID: &room.ID}))

	if rec := s.do(t, http.MethodDelete, fmt.Sprintf("/api/locations/%d", room.ID), nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for non-empty location, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPut, fmt.Sprintf("/api/locations/%d", room.ID), models.UpdateLocationRequest{Name: "Werkstatt", ParentID: &shelf.ID})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for cycle, got %d", rec.Code)
	}

	path := decode[[]models.Location](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/locations/%d/path", shelf.ID), nil))
	if len(path) != 2 || path[0].ID != room.ID {
		t.Fatalf("unexpected path %+v", path)
	}
	tree := decode[[]models.LocationNode](t, s.do(t, http.MethodGet, "/api/locations/tree", nil))
	if len(tree) != 1 || len(tree[0].Children) != 1 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if rec := s.do(t, http.MethodGet, "/api/locations/abc", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d", rec.Code)
	}
}

func TestReportAndBackupDownloads(t *testing.T) {
	s := newTestServer(t)
	s.signup(t)
	s.do(t, http.MethodPost, "/api/items", models.CreateItemRequest{Name: "Lötstation"})

	rec := s.do(t, http.MethodGet, "/api/changelog/report.pdf", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("report: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	rec = s.do(t, http.MethodGet, "/api/backup", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("backup: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec = s.do(t, http.MethodPost, "/api/backup/upload", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without bucket, got %d", rec.Code)
	}

	stats := decode[models.Stats](t, s.do(t, http.MethodGet, "/api/stats", nil))
	if stats.Items != 1 || stats.ChangelogTotal != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestSignupClosedAfterFirstUser(t *testing.T) {
	s := newTestServer(t)
	s.signup(t)
	rec := s.do(t, http.MethodPost, "/auth/signup", models.SignupRequest{Name: "Zweite", Email: "zwei@example.org", Password: "geheim123"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/users", models.CreateUserRequest{Name: "Zweite", Email: "zwei@example.org", Password: "geheim123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create user: %d %s", rec.Code, rec.Body.String())
	}

	s.cookie = nil
	rec = s.do(t, http.MethodPost, "/auth/login", models.LoginRequest{Email: "zwei@example.org", Password: "geheim123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	if rec = s.do(t, http.MethodPost, "/auth/login", models.LoginRequest{Email: "zwei@example.org", Password: "falsch"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
