package protocol

import "encoding/json"

// 事件类型标签，与浏览器端约定一致。
const (
	TypeFirstMessage  = "user-first-message"
	TypeCreateChatbox = "create-chatbox"
	TypeFindChatbox   = "find-chatbox"
	TypeSwitchChatbox = "switch-chatbox"
	TypeChat          = "chat"
	TypeTyping        = "typing"
	TypeStoppedTyping = "stopped-typing"
	TypeCameraStarted = "camera-started"
	TypeOffer         = "offer"
	TypeAnswer        = "answer"
	TypeICECandidate  = "ice-candidate"

	TypeParticipantID     = "participant-id"
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeOnlineCount       = "online-count"
	TypeUserJoined        = "user-joined"
	TypeUserLeft          = "user-left"
	TypeChatroomsUpdate   = "user-chatrooms-update"
	TypeChatboxFound      = "chatbox-found"
	TypeChatboxNotFound   = "chatbox-not-found"
	TypeChatboxCreateFail = "chatbox-create-failed"
	TypeUserTyping        = "user-typing"
	TypeUserStoppedTyping = "user-stopped-typing"
)

// default 房间隐式存在，不需要密码。
const (
	DefaultRoomID          = "default"
	DefaultRoomDisplayName = "Group Chat"
)

// Inbound 是客户端上行事件的封闭集合，只有本包内的类型实现它。
type Inbound interface {
	inbound()
}

// Identify 对应 user-first-message，申请一个显示名。
type Identify struct {
	Name string
}

// CreateRoom 对应 create-chatbox。
type CreateRoom struct {
	RoomID   string
	Name     string
	Password string
}

// FindRoom 对应 find-chatbox，SearchName 仅被解码，不参与匹配。
type FindRoom struct {
	Password   string
	SearchName string
}

// SwitchRoom 对应 switch-chatbox，服务端无需处理。
type SwitchRoom struct {
	RoomID string
}

// Chat 是聊天消息。Fields 保留原始字段，转发时除 name 外原样输出。
type Chat struct {
	Name   string
	Text   string
	RoomID string
	Fields Fields
}

type Typing struct{}

type StoppedTyping struct{}

// CameraStarted 会被打上发送者的 participantId 后转发给其他人。
type CameraStarted struct {
	Fields Fields
}

// Signal 是 offer / answer / ice-candidate，负载对服务端不透明。
type Signal struct {
	Kind   string
	To     int
	Fields Fields
}

func (Identify) inbound()      {}
func (CreateRoom) inbound()    {}
func (FindRoom) inbound()      {}
func (SwitchRoom) inbound()    {}
func (Chat) inbound()          {}
func (Typing) inbound()        {}
func (StoppedTyping) inbound() {}
func (CameraStarted) inbound() {}
func (Signal) inbound()        {}

// Fields 是一个事件的原始 JSON 字段集合，用于透传未知字段。
type Fields map[string]json.RawMessage

// Set 覆盖（或新增）一个字段。
func (f Fields) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f[key] = b
	return nil
}

// Has 判断字段是否存在且不为 null。
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && string(v) != "null"
}

// Clone 返回浅拷贝，RawMessage 本身不会被修改所以可以共享。
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// RoomRef 是房间列表中的一项。
type RoomRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ParticipantEvent struct {
	Type          string `json:"type"`
	ParticipantID int    `json:"participantId"`
}

type OnlineCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type UserJoinedEvent struct {
	Type          string    `json:"type"`
	UserName      string    `json:"userName"`
	ParticipantID int       `json:"participantId"`
	Chatrooms     []RoomRef `json:"chatrooms"`
}

// UserEvent 用于 user-left / user-typing / user-stopped-typing。
type UserEvent struct {
	Type     string `json:"type"`
	UserName string `json:"userName"`
}

type ChatroomsUpdateEvent struct {
	Type      string    `json:"type"`
	UserName  string    `json:"userName"`
	Chatrooms []RoomRef `json:"chatrooms"`
}

type ChatboxFoundEvent struct {
	Type      string `json:"type"`
	ChatboxID string `json:"chatboxId"`
	RoomName  string `json:"roomName"`
}

type ChatboxNotFoundEvent struct {
	Type string `json:"type"`
}

type ChatboxCreateFailedEvent struct {
	Type      string `json:"type"`
	ChatboxID string `json:"chatboxId"`
	Reason    string `json:"reason"`
}

func ParticipantID(id int) ParticipantEvent {
	return ParticipantEvent{Type: TypeParticipantID, ParticipantID: id}
}

func ParticipantJoined(id int) ParticipantEvent {
	return ParticipantEvent{Type: TypeParticipantJoined, ParticipantID: id}
}

func ParticipantLeft(id int) ParticipantEvent {
	return ParticipantEvent{Type: TypeParticipantLeft, ParticipantID: id}
}

func OnlineCount(n int) OnlineCountEvent {
	return OnlineCountEvent{Type: TypeOnlineCount, Count: n}
}

func UserJoined(name string, id int, rooms []RoomRef) UserJoinedEvent {
	if rooms == nil {
		rooms = []RoomRef{}
	}
	return UserJoinedEvent{Type: TypeUserJoined, UserName: name, ParticipantID: id, Chatrooms: rooms}
}

func UserLeft(name string) UserEvent {
	return UserEvent{Type: TypeUserLeft, UserName: name}
}

func UserTyping(name string) UserEvent {
	return UserEvent{Type: TypeUserTyping, UserName: name}
}

func UserStoppedTyping(name string) UserEvent {
	return UserEvent{Type: TypeUserStoppedTyping, UserName: name}
}

func ChatroomsUpdate(name string, rooms []RoomRef) ChatroomsUpdateEvent {
	if rooms == nil {
		rooms = []RoomRef{}
	}
	return ChatroomsUpdateEvent{Type: TypeChatroomsUpdate, UserName: name, Chatrooms: rooms}
}

func ChatboxFound(id, name string) ChatboxFoundEvent {
	return ChatboxFoundEvent{Type: TypeChatboxFound, ChatboxID: id, RoomName: name}
}

func ChatboxNotFound() ChatboxNotFoundEvent {
	return ChatboxNotFoundEvent{Type: TypeChatboxNotFound}
}

func ChatboxCreateFailed(id, reason string) ChatboxCreateFailedEvent {
	return ChatboxCreateFailedEvent{Type: TypeChatboxCreateFail, ChatboxID: id, Reason: reason}
}
