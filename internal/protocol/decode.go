package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed   = errors.New("malformed event")
	ErrUnknownType = errors.New("unknown event type")
)

// str 读取一个字符串字段。缺失或 null 视为空串，其他类型视为格式错误。
func (f Fields) str(key string) (string, error) {
	raw, ok := f[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformed, key)
	}
	return s, nil
}

// strs 依次读取多个字符串字段，遇到第一个错误即返回。
func (f Fields) strs(keys ...string) ([]string, error) {
	out := make([]string, len(keys))
	for i, k := range keys {
		v, err := f.str(k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Decode 把一帧 JSON 解析为具体的 Inbound 事件。
//
// 只校验事件本身要用到的字段，其余字段不看类型，原样保留在 Fields 里。
// 兼容旧客户端：没有 type 但带 name 的消息按聊天消息处理。这是唯一一处做推断的地方。
func Decode(data []byte) (Inbound, error) {
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformed)
	}
	typ, err := fields.str("type")
	if err != nil {
		return nil, err
	}

	switch typ {
	case "":
		name, err := fields.str("name")
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, fmt.Errorf("%w: missing type", ErrMalformed)
		}
		return decodeChat(fields)
	case TypeChat:
		return decodeChat(fields)
	case TypeFirstMessage:
		name, err := fields.str("name")
		if err != nil {
			return nil, err
		}
		return Identify{Name: name}, nil
	case TypeCreateChatbox:
		v, err := fields.strs("chatboxId", "name", "password")
		if err != nil {
			return nil, err
		}
		return CreateRoom{RoomID: v[0], Name: v[1], Password: v[2]}, nil
	case TypeFindChatbox:
		v, err := fields.strs("password", "searchName")
		if err != nil {
			return nil, err
		}
		return FindRoom{Password: v[0], SearchName: v[1]}, nil
	case TypeSwitchChatbox:
		id, err := fields.str("chatboxId")
		if err != nil {
			return nil, err
		}
		return SwitchRoom{RoomID: id}, nil
	case TypeTyping:
		return Typing{}, nil
	case TypeStoppedTyping:
		return StoppedTyping{}, nil
	case TypeCameraStarted:
		return CameraStarted{Fields: fields}, nil
	case TypeOffer, TypeAnswer, TypeICECandidate:
		if !fields.Has("to") {
			return nil, fmt.Errorf("%w: %s without target", ErrMalformed, typ)
		}
		var to int
		if err := json.Unmarshal(fields["to"], &to); err != nil {
			return nil, fmt.Errorf("%w: %s target is not a participant id", ErrMalformed, typ)
		}
		return Signal{Kind: typ, To: to, Fields: fields}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

func decodeChat(fields Fields) (Inbound, error) {
	v, err := fields.strs("name", "text", "chatboxId")
	if err != nil {
		return nil, err
	}
	return Chat{Name: v[0], Text: v[1], RoomID: v[2], Fields: fields}, nil
}

// Encode 序列化下行事件。
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Kind 返回事件的类型标签，旧格式聊天消息同样归为 chat。
func Kind(ev Inbound) string {
	switch e := ev.(type) {
	case Identify:
		return TypeFirstMessage
	case CreateRoom:
		return TypeCreateChatbox
	case FindRoom:
		return TypeFindChatbox
	case SwitchRoom:
		return TypeSwitchChatbox
	case Chat:
		return TypeChat
	case Typing:
		return TypeTyping
	case StoppedTyping:
		return TypeStoppedTyping
	case CameraStarted:
		return TypeCameraStarted
	case Signal:
		return e.Kind
	default:
		return "unknown"
	}
}
