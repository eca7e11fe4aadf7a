package session

import (
	"errors"
	"fmt"

	"chatterbox/internal/auth"
	"chatterbox/internal/protocol"
)

var (
	ErrRoomExists       = errors.New("room already exists")
	ErrPasswordRequired = errors.New("room password required")
)

// Room 是房间的公开元数据，密码只以哈希形式保存在 Directory 内部。
type Room struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"createdBy"`
}

type roomEntry struct {
	Room
	passwordHash string
}

// Directory 保存由连接显式创建的房间。房间不会被服务端删除。
// default 房间隐式存在，不出现在按密码查找的结果里。
//
// 按密码查找走指纹索引，不做 bcrypt 比对；bcrypt 哈希只供历史接口在 hub 之外校验。
type Directory struct {
	cost          int
	fp            *auth.Fingerprint
	rooms         map[string]*roomEntry
	order         []string
	byCreator     map[string][]string
	byFingerprint map[string][]string
}

func NewDirectory(cost int) *Directory {
	return &Directory{
		cost:          cost,
		fp:            auth.NewFingerprint(),
		rooms:         make(map[string]*roomEntry),
		byCreator:     make(map[string][]string),
		byFingerprint: make(map[string][]string),
	}
}

// Create 新建房间。重复的 id（包括 default）会被拒绝，已有房间的元数据保持不变。
func (d *Directory) Create(id, name, password, creator string) (Room, error) {
	if id == protocol.DefaultRoomID {
		return Room{}, fmt.Errorf("%w: %s is reserved", ErrRoomExists, id)
	}
	if _, ok := d.rooms[id]; ok {
		return Room{}, fmt.Errorf("%w: %s", ErrRoomExists, id)
	}
	if password == "" {
		return Room{}, ErrPasswordRequired
	}
	hash, err := auth.HashPassword(password, d.cost)
	if err != nil {
		return Room{}, fmt.Errorf("hash room password: %w", err)
	}
	if name == "" {
		name = id
	}
	e := &roomEntry{Room: Room{ID: id, Name: name, CreatedBy: creator}, passwordHash: hash}
	d.rooms[id] = e
	d.order = append(d.order, id)
	d.byCreator[creator] = append(d.byCreator[creator], id)
	fp := d.fp.Sum(password)
	d.byFingerprint[fp] = append(d.byFingerprint[fp], id)
	return e.Room, nil
}

// FindByPassword 返回使用该密码的房间中最早创建的一个。
func (d *Directory) FindByPassword(password string) (Room, bool) {
	if password == "" {
		return Room{}, false
	}
	ids := d.byFingerprint[d.fp.Sum(password)]
	if len(ids) == 0 {
		return Room{}, false
	}
	return d.rooms[ids[0]].Room, true
}

// RoomsCreatedBy 按创建顺序返回某个显示名创建的房间。
func (d *Directory) RoomsCreatedBy(name string) []protocol.RoomRef {
	ids := d.byCreator[name]
	out := make([]protocol.RoomRef, 0, len(ids))
	for _, id := range ids {
		out = append(out, protocol.RoomRef{ID: id, Name: d.rooms[id].Name})
	}
	return out
}

func (d *Directory) Get(id string) (Room, bool) {
	if id == protocol.DefaultRoomID {
		return Room{ID: protocol.DefaultRoomID, Name: protocol.DefaultRoomDisplayName}, true
	}
	e, ok := d.rooms[id]
	if !ok {
		return Room{}, false
	}
	return e.Room, true
}

// List 返回 default 房间以及所有已创建房间，按创建顺序。
func (d *Directory) List() []Room {
	out := make([]Room, 0, len(d.order)+1)
	out = append(out, Room{ID: protocol.DefaultRoomID, Name: protocol.DefaultRoomDisplayName})
	for _, id := range d.order {
		out = append(out, d.rooms[id].Room)
	}
	return out
}

// PasswordHash 返回房间密码的 bcrypt 哈希。default 房间不需要密码，返回空串。
func (d *Directory) PasswordHash(id string) (string, bool) {
	if id == protocol.DefaultRoomID {
		return "", true
	}
	e, ok := d.rooms[id]
	if !ok {
		return "", false
	}
	return e.passwordHash, true
}

// Count 返回显式创建的房间数，不含 default。
func (d *Directory) Count() int { return len(d.order) }
