package server

import (
	"errors"
	"net/http"
	"strconv"

	"chatterbox/internal/config"
	"chatterbox/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg     config.Config
	roomSvc *service.RoomService
}

func NewHandler(cfg config.Config, roomSvc *service.RoomService) *Handler {
	return &Handler{cfg: cfg, roomSvc: roomSvc}
}

// ClientConfig 告诉前端应该连接哪个聊天服务器；未配置时 chatServerHost 为 null。
func (h *Handler) ClientConfig(c *gin.Context) {
	var host *string
	if h.cfg.ChatServerHost != "" {
		host = &h.cfg.ChatServerHost
	}
	c.JSON(http.StatusOK, gin.H{"chatServerHost": host, "version": h.cfg.Version})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.roomSvc.Stats(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("stats")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListRooms 处理获取房间列表请求，不返回密码。
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.roomSvc.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("list rooms")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// ListMessages 处理获取房间消息列表请求。非 default 房间需要 X-Room-Password。
func (h *Handler) ListMessages(c *gin.Context) {
	roomID := c.Param("id")
	if roomID == "" || len(roomID) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var beforeID uint
	if bid := c.Query("before_id"); bid != "" {
		if v, err := strconv.Atoi(bid); err == nil && v > 0 {
			beforeID = uint(v)
		}
	}
	msgs, err := h.roomSvc.History(c.Request.Context(), roomID, c.GetHeader("X-Room-Password"), limit, beforeID)
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case errors.Is(err, service.ErrRoomLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "wrong room password"})
		return
	case err != nil:
		log.Error().Err(err).Str("room_id", roomID).Msg("list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
