package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RequestLogger(ctx *gin.Context) {
	start := time.Now()
	path := ctx.Request.URL.Path
	ctx.Next()

	status := ctx.Writer.Status()
	fields := []zap.Field{
		zap.String("method", ctx.Request.Method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("client_ip", ctx.ClientIP()),
	}
	if id := ctx.GetUint("id"); id != 0 {
		fields = append(fields, zap.Uint("user_id", id))
	}
	switch {
	case status >= 500:
		zap.L().Error("http_request", fields...)
	case status >= 400:
		zap.L().Warn("http_request", fields...)
	default:
		zap.L().Info("http_request", fields...)
	}
}
