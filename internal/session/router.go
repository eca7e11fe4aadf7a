package session

import (
	"encoding/json"
	"errors"
	"time"

	"chatterbox/internal/metrics"
	"chatterbox/internal/models"
	"chatterbox/internal/protocol"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// isoMillis 与浏览器 Date.toISOString() 的输出格式一致。
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// History 接收每条已广播的聊天消息。
type History interface {
	Append(msg *models.Message) error
}

// Router 持有全部共享状态（连接、显示名、房间、输入状态），并决定每个上行事件的去向。
//
// Router 没有任何锁：它必须只被一个 goroutine 驱动（见 ws.Hub）。
type Router struct {
	conns   *Registry
	names   *Names
	rooms   *Directory
	typing  *Typing
	history History
	now     func() time.Time
	newID   func() string
}

type Option func(*Router)

func WithHistory(h History) Option {
	return func(r *Router) { r.history = h }
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithIDGenerator 指定客户端未提供 chatboxId 时生成房间 id 的方式，默认 uuid。
func WithIDGenerator(fn func() string) Option {
	return func(r *Router) { r.newID = fn }
}

func NewRouter(rooms *Directory, opts ...Option) *Router {
	r := &Router{
		conns:  NewRegistry(),
		names:  NewNames(),
		rooms:  rooms,
		typing: NewTyping(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect 登记新连接：单播 participant-id，通知其他人有人加入，再向所有人广播在线人数。
func (r *Router) Connect(s Sender) int {
	id := r.conns.Accept(s)
	metrics.WsConnections.Set(float64(r.conns.Count()))
	log.Info().Int("participant_id", id).Int("online", r.conns.Count()).Msg("participant connected")

	r.unicast(id, protocol.ParticipantID(id))
	r.broadcastOthers(id, protocol.ParticipantJoined(id))
	r.broadcastAll(protocol.OnlineCount(r.conns.Count()))
	return id
}

// Disconnect 幂等。已命名的连接会先广播 user-left。
func (r *Router) Disconnect(id int) {
	if !r.conns.Remove(id) {
		return
	}
	metrics.WsConnections.Set(float64(r.conns.Count()))
	name, named := r.names.Release(id)
	if named {
		r.typing.Clear(name)
	}
	log.Info().Int("participant_id", id).Str("name", name).Int("online", r.conns.Count()).Msg("participant disconnected")

	if named {
		r.broadcastAll(protocol.UserLeft(name))
	}
	r.broadcastAll(protocol.ParticipantLeft(id))
	r.broadcastAll(protocol.OnlineCount(r.conns.Count()))
}

// Handle 解析并分发一帧原始数据。解析失败的帧被丢弃，连接保持打开。
func (r *Router) Handle(id int, data []byte) {
	if _, ok := r.conns.Lookup(id); !ok {
		return
	}
	ev, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			metrics.WsRejectedTotal.WithLabelValues("unknown").Inc()
			log.Debug().Err(err).Int("participant_id", id).Msg("ignore event")
			return
		}
		metrics.WsRejectedTotal.WithLabelValues("malformed").Inc()
		log.Warn().Err(err).Int("participant_id", id).Msg("discard event")
		return
	}
	metrics.WsEventsTotal.WithLabelValues(protocol.Kind(ev)).Inc()
	r.Dispatch(id, ev)
}

func (r *Router) Dispatch(id int, ev protocol.Inbound) {
	switch e := ev.(type) {
	case protocol.Identify:
		r.identify(id, e.Name)
	case protocol.CreateRoom:
		r.createRoom(id, e)
	case protocol.FindRoom:
		r.findRoom(id, e)
	case protocol.SwitchRoom:
		// 客户端自己维护当前房间。
	case protocol.Chat:
		r.chat(id, e)
	case protocol.Typing:
		if name, ok := r.names.Name(id); ok && r.typing.Start(name) {
			r.broadcastOthers(id, protocol.UserTyping(name))
		}
	case protocol.StoppedTyping:
		if name, ok := r.names.Name(id); ok && r.typing.Stop(name) {
			r.broadcastOthers(id, protocol.UserStoppedTyping(name))
		}
	case protocol.CameraStarted:
		f := e.Fields.Clone()
		if err := f.Set("participantId", id); err != nil {
			log.Error().Err(err).Msg("stamp camera-started")
			return
		}
		r.broadcastOthers(id, f)
	case protocol.Signal:
		r.routeTo(id, e.To, e.Kind, e.Fields.Clone())
	default:
		log.Error().Int("participant_id", id).Msgf("unhandled event %T", ev)
	}
}

func (r *Router) identify(id int, base string) (string, bool) {
	name, created, err := r.names.Assign(id, base)
	if err != nil {
		log.Warn().Err(err).Int("participant_id", id).Msg("assign name")
		return "", false
	}
	if created {
		log.Info().Int("participant_id", id).Str("name", name).Msg("name assigned")
		r.broadcastAll(protocol.UserJoined(name, id, r.rooms.RoomsCreatedBy(name)))
	}
	return name, true
}

func (r *Router) createRoom(id int, ev protocol.CreateRoom) {
	roomID := ev.RoomID
	creator, ok := r.names.Name(id)
	if !ok {
		r.unicast(id, protocol.ChatboxCreateFailed(roomID, "unidentified"))
		return
	}
	if roomID == "" {
		roomID = r.newID()
	}
	room, err := r.rooms.Create(roomID, ev.Name, ev.Password, creator)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, ErrRoomExists):
			reason = "exists"
		case errors.Is(err, ErrPasswordRequired):
			reason = "password-required"
		}
		log.Warn().Err(err).Int("participant_id", id).Str("room_id", roomID).Msg("create room")
		r.unicast(id, protocol.ChatboxCreateFailed(roomID, reason))
		return
	}
	log.Info().Int("participant_id", id).Str("room_id", room.ID).Str("creator", creator).Msg("room created")
	r.broadcastAll(protocol.ChatroomsUpdate(creator, r.rooms.RoomsCreatedBy(creator)))
}

func (r *Router) findRoom(id int, ev protocol.FindRoom) {
	room, ok := r.rooms.FindByPassword(ev.Password)
	if !ok {
		r.unicast(id, protocol.ChatboxNotFound())
		return
	}
	r.unicast(id, protocol.ChatboxFound(room.ID, room.Name))
}

// chat 在需要时先分配显示名，然后把 name 改写为分配名、写入历史并广播给包括发送者在内的所有人。
func (r *Router) chat(id int, ev protocol.Chat) {
	name, ok := r.names.Name(id)
	if !ok {
		if name, ok = r.identify(id, ev.Name); !ok {
			return
		}
	}
	f := ev.Fields.Clone()
	if err := f.Set("name", name); err != nil {
		log.Error().Err(err).Msg("rewrite chat name")
		return
	}
	if !f.Has("timestamp") {
		if err := f.Set("timestamp", r.now().UTC().Format(isoMillis)); err != nil {
			log.Error().Err(err).Msg("stamp chat timestamp")
			return
		}
	}
	roomID := ev.RoomID
	if roomID == "" {
		roomID = protocol.DefaultRoomID
	}

	if r.history != nil {
		msg := &models.Message{
			RoomID:     roomID,
			Author:     name,
			Text:       ev.Text,
			ProfilePic: stringField(f, "profilePic"),
			Timestamp:  stringField(f, "timestamp"),
		}
		if err := r.history.Append(msg); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("append history")
		}
	}
	metrics.ChatMessagesTotal.Inc()
	r.broadcastAll(f)
}

// stringField 取字符串字段；非字符串值（比如数字时间戳）按原始 JSON 文本返回。
func stringField(f protocol.Fields, key string) string {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}

func (r *Router) Online() int { return r.conns.Count() }

func (r *Router) Rooms() []Room { return r.rooms.List() }

func (r *Router) RoomCount() int { return r.rooms.Count() }

// RoomSecret 返回房间密码的哈希，供调用方在 hub goroutine 之外校验。
// 哈希为空表示房间公开。
func (r *Router) RoomSecret(roomID string) (hash string, exists bool) {
	return r.rooms.PasswordHash(roomID)
}
