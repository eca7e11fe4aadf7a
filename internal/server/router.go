package server

import (
	"net/http"
	"os"
	"strings"

	"chatterbox/internal/config"
	"chatterbox/internal/metrics"
	"chatterbox/internal/mw"
	"chatterbox/internal/service"
	"chatterbox/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Limits 是两类入口各自的令牌桶：REST 读取与 websocket 握手。
type Limits struct {
	API       *mw.Buckets
	Handshake *mw.Buckets
}

// SetupRouter 统一初始化 Gin 中间件、REST API、WebSocket 端点以及静态资源。
func SetupRouter(cfg config.Config, hub *ws.Hub, roomSvc *service.RoomService, limits Limits) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn().Err(err).Strs("proxies", cfg.TrustedProxies).Msg("invalid TRUSTED_PROXIES, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))

	h := NewHandler(cfg, roomSvc)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/config", h.ClientConfig)

	// 只限制 REST 接口；websocket 上的事件由每条连接自己的令牌桶限速。
	api := r.Group("/api/v1")
	api.Use(mw.RateLimit(limits.API, mw.ByClientRoute))
	api.GET("/stats", h.Stats)
	api.GET("/rooms", h.ListRooms)
	api.GET("/rooms/:id/messages", h.ListMessages)

	r.GET("/ws", mw.RateLimit(limits.Handshake, mw.ByClient), ws.Serve(hub, cfg))

	r.NoRoute(staticHandler(cfg.StaticDir))
	return r
}

func staticHandler(dir string) gin.HandlerFunc {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		log.Warn().Str("dir", dir).Msg("static dir not found, serving API only")
		return func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		}
	}
	files := http.FileServer(http.Dir(dir))
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
