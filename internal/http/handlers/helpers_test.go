package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/skincareplus/internal/actorctx"
	"github.com/geocoder89/skincareplus/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

var (
	jane  = actorctx.Identity{UserID: 1, Username: "jane", Role: user.RoleUser}
	john  = actorctx.Identity{UserID: 2, Username: "john", Role: user.RoleUser}
	admin = actorctx.Identity{UserID: 99, Username: "root", Role: user.RoleAdmin}
)

// asCaller stands in for RequireAuth.
func asCaller(id *actorctx.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != nil {
			c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), *id))
		}
		c.Next()
	}
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func performRequest(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env testEnvelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response: %v body=%s", err, w.Body.String())
		}
	}

	return w, env
}

func errorCode(env testEnvelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func newRequestWithHeader(method, path, key, value string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(key, value)
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
