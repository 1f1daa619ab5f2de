package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/yeisme/clipstudio/pkg/configs"
	ctxPkg "github.com/yeisme/clipstudio/pkg/context"
	"github.com/yeisme/clipstudio/pkg/log"
)

// DevUserHeader 关闭认证时用于指定调用者的请求头，仅供本地调试.
const DevUserHeader = "X-User-ID"

var errMissingSubject = errors.New("token has no subject")

// LogAuthMode 启动时记录认证模式. 关闭认证时任何调用者都能通过 DevUserHeader 冒充用户，记为警告.
func LogAuthMode(l zerolog.Logger, conf configs.AuthConfig) {
	if conf.Enabled {
		l.Info().Str("issuer", conf.Issuer).Msg("bearer authentication enabled")
		return
	}

	l.Warn().Str("header", DevUserHeader).Msg("authentication disabled, caller identity is taken from request header")
}

// AuthMiddleware 校验 Authorization: Bearer <jwt>.
//   - 令牌使用 HS256 签名，sub 声明作为用户 ID 写入请求上下文
//   - SkipPaths 中的路径前缀（如 /metrics, /api/health）不做校验
//   - 校验失败返回 401 {"error":"Unauthorized"}
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		if !conf.Enabled {
			if user := strings.TrimSpace(c.GetHeader(DevUserHeader)); user != "" {
				c.Request = c.Request.WithContext(ctxPkg.WithUserID(c.Request.Context(), user))
			}

			c.Next()

			return
		}

		userID, err := ParseSubject(conf, bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			l := log.Logger()
			l.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})

			return
		}

		c.Request = c.Request.WithContext(ctxPkg.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// ParseSubject 校验令牌并返回 sub 声明.
func ParseSubject(conf configs.AuthConfig, token string) (string, error) {
	if token == "" {
		return "", jwt.ErrTokenMalformed
	}

	if conf.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if conf.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(conf.Issuer))
	}

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(conf.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return "", errMissingSubject
	}

	return claims.Subject, nil
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
