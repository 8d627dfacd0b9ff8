package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/skincareplus/internal/auth"
	"github.com/geocoder89/skincareplus/internal/config"
	"github.com/geocoder89/skincareplus/internal/db"
	"github.com/geocoder89/skincareplus/internal/domain/user"
	apphttp "github.com/geocoder89/skincareplus/internal/http"
	"github.com/geocoder89/skincareplus/internal/observability"
	"github.com/geocoder89/skincareplus/internal/repo/memory"
	"github.com/geocoder89/skincareplus/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		StoreDriver:         "memory",
		JWTSecret:           "integration-secret-integration-secret",
		JWTIssuer:           "skincareplus-test",
		JWTAccessTTLMinutes: 60,
		AdminUsername:       "root",
		AdminEmail:          "root@skincare.test",
		AdminPassword:       "root-password",
		RateLimitAuthRPM:    1000,
		RateLimitAPIRPM:     1000,
	}
}

func setupRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	prom := observability.NewProm(prometheus.NewRegistry())

	users := memory.NewUsersRepo()
	analyses := memory.NewAnalysesRepo()
	hasher := security.NewHasher(bcrypt.MinCost)

	svc, err := auth.NewService(users, hasher, auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL()), auth.NewMemoryDenylist(), prom, logger)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	if err := db.EnsureAdminUser(context.Background(), users, hasher, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	return apphttp.NewRouter(logger, apphttp.Deps{
		Env:              cfg.Env,
		ServiceName:      "skincareplus-test",
		RateLimitAuthRPM: cfg.RateLimitAuthRPM,
		RateLimitAPIRPM:  cfg.RateLimitAPIRPM,
		Prom:             prom,
		Auth:             svc,
		Users:            users,
		Appointments:     memory.NewAppointmentsRepo(),
		Analyses:         analyses,
		Recommendations:  analyses.Recommendations(),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

type authData struct {
	Token    string `json:"token"`
	Type     string `json:"type"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, w.Body.String())
		}
	}
	return w, env
}

func register(t *testing.T, r http.Handler, username, email string) authData {
	t.Helper()

	w, env := do(t, r, http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username,
		"email":    email,
		"password": "secret1",
		"skinType": "OILY",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body=%s", username, w.Code, w.Body.String())
	}

	var a authData
	if err := json.Unmarshal(env.Data, &a); err != nil {
		t.Fatalf("decode auth data: %v", err)
	}
	return a
}

func TestAuthFlow_RegisterLoginProfileLogout(t *testing.T) {
	r := setupRouter(t, testConfig())

	reg := register(t, r, "jane", "jane@x.io")
	if reg.Type != "Bearer" || reg.Role != "USER" || reg.Token == "" {
		t.Fatalf("unexpected register payload: %+v", reg)
	}

	w, env := do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": "jane@x.io",
		"password":        "secret1",
	})
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("login: status %d body=%s", w.Code, w.Body.String())
	}

	var login authData
	_ = json.Unmarshal(env.Data, &login)

	w, env = do(t, r, http.MethodGet, "/api/auth/profile", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: status %d body=%s", w.Code, w.Body.String())
	}

	var profile map[string]any
	_ = json.Unmarshal(env.Data, &profile)
	if profile["username"] != "jane" || profile["skinType"] != "OILY" {
		t.Fatalf("unexpected profile: %v", profile)
	}
	if _, leaked := profile["passwordHash"]; leaked {
		t.Fatalf("profile leaks password hash")
	}

	w, _ = do(t, r, http.MethodPost, "/api/auth/logout", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}

	w, env = do(t, r, http.MethodGet, "/api/auth/profile", login.Token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout: status %d, want 401", w.Code)
	}
	if env.Error == nil || env.Error.RequestID == "" {
		t.Fatalf("error envelope should carry a request id: %s", w.Body.String())
	}

	// the registration token was not revoked
	w, _ = do(t, r, http.MethodGet, "/api/auth/profile", reg.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("other token after logout: status %d, want 200", w.Code)
	}
}

func TestAuthFlow_DuplicatesAndAvailability(t *testing.T) {
	r := setupRouter(t, testConfig())
	register(t, r, "jane", "jane@x.io")

	cases := []struct {
		name     string
		username string
		email    string
		code     string
	}{
		{"username taken", "jane", "other@x.io", "duplicate_username"},
		{"email taken", "janet", "jane@x.io", "duplicate_email"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
				"username": tc.username,
				"email":    tc.email,
				"password": "secret1",
			})
			if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}

	w, env := do(t, r, http.MethodGet, "/api/auth/check-username?username=jane", "", nil)
	if w.Code != http.StatusOK || string(env.Data) != `{"available":false}` {
		t.Fatalf("check-username: %d %s", w.Code, w.Body.String())
	}

	w, env = do(t, r, http.MethodGet, "/api/auth/check-email?email=new@x.io", "", nil)
	if w.Code != http.StatusOK || string(env.Data) != `{"available":true}` {
		t.Fatalf("check-email: %d %s", w.Code, w.Body.String())
	}

	// usernames match exactly: a padded name is a different, free name
	w, env = do(t, r, http.MethodGet, "/api/auth/check-username?username=%20jane%20", "", nil)
	if w.Code != http.StatusOK || string(env.Data) != `{"available":true}` {
		t.Fatalf("padded check-username: %d %s", w.Code, w.Body.String())
	}
	w, _ = do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": " jane ",
		"email":    "padded@x.io",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("padded register: %d %s", w.Code, w.Body.String())
	}
	w, env = do(t, r, http.MethodGet, "/api/auth/check-username?username=%20jane%20", "", nil)
	if w.Code != http.StatusOK || string(env.Data) != `{"available":false}` {
		t.Fatalf("padded check-username after register: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthFlow_MultibytePasswordOverByteLimit(t *testing.T) {
	r := setupRouter(t, testConfig())

	// 40 characters, 80 bytes
	w, env := do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "amelie",
		"email":    "amelie@x.io",
		"password": strings.Repeat("é", 40),
	})
	if w.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "invalid_request" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	// 36 characters, 72 bytes is still accepted
	w, _ = do(t, r, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "amelie",
		"email":    "amelie@x.io",
		"password": strings.Repeat("é", 36),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("72-byte password: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthFlow_LoginFailuresLookTheSame(t *testing.T) {
	r := setupRouter(t, testConfig())
	register(t, r, "jane", "jane@x.io")

	var bodies []string
	for _, creds := range []map[string]string{
		{"usernameOrEmail": "jane", "password": "wrong-password"},
		{"usernameOrEmail": "nobody", "password": "secret1"},
	} {
		w, env := do(t, r, http.MethodPost, "/api/auth/login", "", creds)
		if w.Code != http.StatusUnauthorized || env.Error == nil || env.Error.Code != "invalid_credentials" {
			t.Fatalf("got %d %s", w.Code, w.Body.String())
		}
		bodies = append(bodies, env.Message)
	}

	if bodies[0] != bodies[1] {
		t.Fatalf("login failures differ: %q vs %q", bodies[0], bodies[1])
	}
}

func TestAuthFlow_ForgedAndMissingTokens(t *testing.T) {
	r := setupRouter(t, testConfig())

	other := auth.NewManager("some-other-secret-some-other-secret", "skincareplus-test", time.Hour)
	reg := register(t, r, "jane", "jane@x.io")

	w, _ := do(t, r, http.MethodGet, "/api/auth/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/api/auth/profile", reg.Token+"x", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered token: got %d", w.Code)
	}

	forged, _, err := other.Issue(user.User{ID: reg.ID, Username: reg.Username, Role: user.RoleAdmin})
	if err != nil {
		t.Fatalf("issue forged token: %v", err)
	}
	w, _ = do(t, r, http.MethodGet, "/api/auth/profile", forged, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("token signed with another key: got %d", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/api/auth/profile", "not.a.jwt", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d", w.Code)
	}
}

func TestOwnershipAndAdminRoutes(t *testing.T) {
	r := setupRouter(t, testConfig())

	jane := register(t, r, "jane", "jane@x.io")
	john := register(t, r, "john", "john@x.io")

	w, env := do(t, r, http.MethodPost, "/api/appointments", jane.Token, map[string]any{
		"doctorName":      "Dr. Ade",
		"appointmentDate": "2099-04-01",
		"appointmentTime": "09:30",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create appointment: %d %s", w.Code, w.Body.String())
	}

	var appt struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(env.Data, &appt)
	if appt.Status != "SCHEDULED" {
		t.Fatalf("new appointment status = %q", appt.Status)
	}

	path := "/api/appointments/" + itoa(appt.ID)

	w, _ = do(t, r, http.MethodGet, path, john.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign appointment: got %d, want 403", w.Code)
	}

	w, _ = do(t, r, http.MethodGet, "/api/admin/users", jane.Token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("admin route as USER: got %d, want 403", w.Code)
	}

	w, env = do(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{
		"usernameOrEmail": "root",
		"password":        "root-password",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", w.Code, w.Body.String())
	}
	var admin authData
	_ = json.Unmarshal(env.Data, &admin)
	if admin.Role != "ADMIN" {
		t.Fatalf("seeded admin role = %q", admin.Role)
	}

	w, _ = do(t, r, http.MethodGet, path, admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin reading appointment: got %d", w.Code)
	}

	w, env = do(t, r, http.MethodGet, "/api/admin/users?role=USER", admin.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin users: %d %s", w.Code, w.Body.String())
	}

	var page struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &page)
	if page.Count != 2 {
		t.Fatalf("USER count = %d, want 2", page.Count)
	}
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitAuthRPM = 2
	r := setupRouter(t, cfg)

	creds := map[string]string{"usernameOrEmail": "nobody", "password": "whatever"}

	for i := 0; i < 2; i++ {
		w, _ := do(t, r, http.MethodPost, "/api/auth/login", "", creds)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d", i, w.Code)
		}
	}

	w, _ := do(t, r, http.MethodPost, "/api/auth/login", "", creds)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
