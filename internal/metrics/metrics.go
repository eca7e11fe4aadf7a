package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatterbox_ws_connections",
		Help: "Current number of live websocket participants",
	})
	ChatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_chat_messages_total",
		Help: "Total number of chat messages broadcast",
	})
	WsEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterbox_ws_events_total",
		Help: "Inbound websocket events by type",
	}, []string{"type"})
	WsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatterbox_ws_rejected_total",
		Help: "Inbound websocket frames discarded before dispatch",
	}, []string{"reason"})
	WsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_ws_dropped_total",
		Help: "Outbound events dropped because a send queue was full",
	})
	SignalDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatterbox_signal_dropped_total",
		Help: "Signaling events addressed to a participant that is not connected",
	})
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		WsConnections, ChatMessagesTotal, WsEventsTotal, WsRejectedTotal,
		WsDroppedTotal, SignalDroppedTotal, HttpRequestsTotal, HttpRequestDuration,
	)
}

// GinMiddleware 统计基础请求指标。未命中路由的请求（静态文件）统一记为 "static"，避免标签膨胀。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "static"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
