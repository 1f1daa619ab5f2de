// Package middleware 提供 gin 中间件：认证、追踪、监控、限流、熔断、缓存与依赖注入.
package middleware
