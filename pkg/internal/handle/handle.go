// Package handle 提供 HTTP 请求处理器的实现.
//
// 处理器从请求上下文取出调用者 ID 与存储 Manager，组装服务后调用，
// 错误统一经 errs.From 映射为状态码与 {"error": message}.
package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/clipstudio/pkg/context"
	"github.com/yeisme/clipstudio/pkg/errs"
	"github.com/yeisme/clipstudio/pkg/internal/service"
	"github.com/yeisme/clipstudio/pkg/internal/types"
	"github.com/yeisme/clipstudio/pkg/log"
	"github.com/yeisme/clipstudio/pkg/rule"
)

// DefaultHandler 未实现的路由占位.
func DefaultHandler(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, types.ErrorResponse{Error: "Not Implemented"})
}

// currentUser 返回认证中间件写入的用户 ID，缺失时直接响应 401.
func currentUser(c *gin.Context) (string, bool) {
	userID := ctxPkg.GetUserID(c.Request.Context())
	if userID == "" {
		respondError(c, errs.New(errs.CodeUnauthorized, "Unauthorized"))
		return "", false
	}

	return userID, true
}

func deps(c *gin.Context) service.Deps {
	return service.FromContext(c.Request.Context())
}

// bindJSON 解析并校验请求体，失败时响应 400.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		err = rule.ValidateStruct(req)
	}

	if err != nil {
		l := log.Logger()
		l.Warn().Err(err).Str("path", c.FullPath()).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return false
	}

	return true
}

// respondError 把错误映射为响应. 5xx 返回底层错误信息.
func respondError(c *gin.Context, err error) {
	e := errs.From(err)
	status := e.HTTPStatus()
	msg := e.Message()

	if status >= http.StatusInternalServerError {
		if cause := e.Unwrap(); cause != nil {
			msg = cause.Error()
		}

		l := log.Logger()
		l.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: msg})
}
