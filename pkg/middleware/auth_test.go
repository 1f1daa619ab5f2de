package middleware_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/yeisme/clipstudio/pkg/configs"
	ctxPkg "github.com/yeisme/clipstudio/pkg/context"
	"github.com/yeisme/clipstudio/pkg/middleware"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return s
}

// newAuthEngine 返回一个把用户 ID 写回响应体的测试路由.
func newAuthEngine(conf configs.AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.AuthMiddleware(conf))

	echo := func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetUserID(c.Request.Context()))
	}

	r.GET("/api/assets", echo)
	r.GET("/api/health/db", echo)

	return r
}

func doGet(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

// TestAuthMiddleware 测试 Bearer 令牌校验.
func TestAuthMiddleware(t *testing.T) {
	conf := configs.AuthConfig{
		Enabled:   true,
		JWTSecret: testSecret,
		Issuer:    "clipstudio",
		SkipPaths: []string{"/api/health"},
	}
	r := newAuthEngine(conf)

	valid := jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "clipstudio",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noSubject := valid
	noSubject.Subject = ""

	otherIssuer := valid
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), valid), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"wrong alg", "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), valid), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"other issuer", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), otherIssuer), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/api/assets", map[string]string{"Authorization": tt.header})

			if w.Code != tt.status {
				t.Fatalf("Expected status %d, got %d", tt.status, w.Code)
			}

			if w.Body.String() != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, w.Body.String())
			}
		})
	}
}

// TestAuthMiddleware_SkipPaths 测试跳过路径不校验令牌.
func TestAuthMiddleware_SkipPaths(t *testing.T) {
	r := newAuthEngine(configs.AuthConfig{Enabled: true, JWTSecret: testSecret, SkipPaths: []string{"/api/health"}})

	if w := doGet(r, "/api/health/db", nil); w.Code != http.StatusOK {
		t.Errorf("Expected skipped path to pass, got %d", w.Code)
	}
}

// TestAuthMiddleware_Disabled 测试关闭认证时使用调试请求头.
func TestAuthMiddleware_Disabled(t *testing.T) {
	r := newAuthEngine(configs.AuthConfig{Enabled: false})

	w := doGet(r, "/api/assets", map[string]string{middleware.DevUserHeader: " dev-user "})
	if w.Code != http.StatusOK || w.Body.String() != "dev-user" {
		t.Errorf("Expected dev user, got %d %q", w.Code, w.Body.String())
	}

	w = doGet(r, "/api/assets", nil)
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Errorf("Expected anonymous request to pass through, got %d %q", w.Code, w.Body.String())
	}
}

// TestParseSubject_NoSecret 测试未配置密钥时拒绝所有令牌.
func TestParseSubject_NoSecret(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "u"})

	if _, err := middleware.ParseSubject(configs.AuthConfig{Enabled: true}, token); err == nil {
		t.Error("Expected error without secret")
	}
}

// TestLogAuthMode 测试关闭认证时输出警告，开启时只记录信息.
func TestLogAuthMode(t *testing.T) {
	var buf bytes.Buffer

	middleware.LogAuthMode(zerolog.New(&buf), configs.AuthConfig{Enabled: false})

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, middleware.DevUserHeader) {
		t.Errorf("Expected warning naming %s, got %s", middleware.DevUserHeader, out)
	}

	buf.Reset()
	middleware.LogAuthMode(zerolog.New(&buf), configs.AuthConfig{Enabled: true, Issuer: "clipstudio"})

	if out := buf.String(); strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"level":"info"`) {
		t.Errorf("Expected info only when enabled, got %s", out)
	}
}
