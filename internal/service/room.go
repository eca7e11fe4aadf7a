package service

import (
	"context"

	"chatterbox/internal/auth"
	"chatterbox/internal/session"
)

// RoomQuerier 读取实时房间与在线状态，由 ws.Hub 实现。
type RoomQuerier interface {
	Rooms(ctx context.Context) ([]session.Room, error)
	// RoomSecret 返回房间密码的 bcrypt 哈希，空串表示公开房间。
	RoomSecret(ctx context.Context, roomID string) (hash string, exists bool, err error)
	Online(ctx context.Context) (int, error)
	RoomCount(ctx context.Context) (int, error)
}

// RoomService 组合实时状态与历史库，供 HTTP 接口使用。
type RoomService struct {
	hub  RoomQuerier
	msgs *MessageService
}

func NewRoomService(hub RoomQuerier, msgs *MessageService) *RoomService {
	return &RoomService{hub: hub, msgs: msgs}
}

type StatsDTO struct {
	Online   int   `json:"online"`
	Rooms    int   `json:"rooms"`
	Messages int64 `json:"messages"`
}

// List 返回 default 房间和所有已创建的房间，不含密码。
func (s *RoomService) List(ctx context.Context) ([]session.Room, error) {
	return s.hub.Rooms(ctx)
}

// History 校验房间密码后返回历史消息。
func (s *RoomService) History(ctx context.Context, roomID, password string, limit int, beforeID uint) ([]MessageDTO, error) {
	hash, exists, err := s.hub.RoomSecret(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}
	if hash != "" && !auth.VerifyPassword(hash, password) {
		return nil, ErrRoomLocked
	}
	return s.msgs.ListByRoom(roomID, limit, beforeID)
}

func (s *RoomService) Stats(ctx context.Context) (StatsDTO, error) {
	online, err := s.hub.Online(ctx)
	if err != nil {
		return StatsDTO{}, err
	}
	rooms, err := s.hub.RoomCount(ctx)
	if err != nil {
		return StatsDTO{}, err
	}
	msgs, err := s.msgs.Count()
	if err != nil {
		return StatsDTO{}, err
	}
	return StatsDTO{Online: online, Rooms: rooms, Messages: msgs}, nil
}
