package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gin-gonic/gin"

	"kluret.com/storefront/internal/session"
)

const cookieMaxAge = 365 * 24 * 60 * 60

type clientIDKey struct{}

// ContextWithClientID はブラウザのクライアントIDをctxに付けます
func ContextWithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, id)
}

// ClientIDFromContext はクッキーミドルウェアが設定したクライアントIDを返します
func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey{}).(string)
	return id, ok && id != ""
}

// clientCookie は署名付きクッキーでブラウザを識別します
// クッキーがないか検証に失敗した場合は新しく発行します
func clientCookie(codec *session.CookieCodec, secure bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if raw, err := c.Cookie(session.CookieName); err == nil {
			if id, err = codec.Decode(raw); err != nil {
				logger.Debug("replacing client cookie", "error", err)
				id = ""
			}
		}

		if id == "" {
			id = session.NewClientID()
			value, err := codec.Encode(id)
			if err != nil {
				logger.Error("failed to issue client cookie", "error", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(session.CookieName, value, cookieMaxAge, "/", "", secure, true)
		}

		c.Request = c.Request.WithContext(ContextWithClientID(c.Request.Context(), id))
		c.Next()
	}
}

// requestLogger はリクエストごとに1行ログを出します
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		id, _ := ClientIDFromContext(c.Request.Context())
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_id", id,
		)
	}
}

// recovery はpanicを500に変換してログに残します
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic serving request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// loggingInterceptor は失敗したunary呼び出しをconnectのコード付きでログに残します
func loggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("rpc failed",
					"procedure", req.Spec().Procedure,
					"code", connect.CodeOf(err).String(),
					"error", err,
				)
			}
			return resp, err
		}
	}
}
