package handler

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kluret.com/storefront/internal/session"
)

// RouterConfig は外側のHTTPルーターの設定です
type RouterConfig struct {
	AllowedOrigins []string
	SecureCookie   bool
	Cookies        *session.CookieCodec
	Logger         *slog.Logger
}

// NewRouter はCORS・リカバリー・リクエストログ・クライアントクッキーの
// ミドルウェアの後ろにストアフロントサービスをマウントします
func NewRouter(cfg RouterConfig, h *StorefrontHandler) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(recovery(logger), requestLogger(logger))
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms", "Connect-Accept-Encoding", "Connect-Content-Encoding"},
		ExposeHeaders:    []string{"Grpc-Status", "Grpc-Message", "Connect-Content-Encoding"},
		AllowCredentials: true,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		// 同一オリジンのみ
		corsCfg.AllowOriginFunc = func(string) bool { return false }
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	path, svc := NewStorefrontServiceHandler(h, connect.WithInterceptors(loggingInterceptor(logger)))
	api := r.Group("/", clientCookie(cfg.Cookies, cfg.SecureCookie, logger))
	api.POST(path+"*procedure", gin.WrapH(svc))

	return r
}
