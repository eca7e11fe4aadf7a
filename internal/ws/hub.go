package ws

import (
	"context"
	"errors"

	"chatterbox/internal/session"

	"github.com/rs/zerolog/log"
)

var ErrHubClosed = errors.New("hub closed")

type eventKind int

const (
	evConnect eventKind = iota
	evMessage
	evDisconnect
)

// 同一客户端的 connect / message / disconnect 走同一个 channel，保证按发送顺序处理。
// events 不带缓冲：hub 停止后投递一定落到 done 分支，不会有事件滞留在队列里。
type event struct {
	kind   eventKind
	client *Client
	data   []byte
}

// Hub 是唯一驱动 session.Router 的 goroutine。
// 读协程把事件投进 events，HTTP 接口通过 queries 在同一个 goroutine 内读取状态。
type Hub struct {
	router  *session.Router
	events  chan event
	queries chan func()
	done    chan struct{}
	stopped chan struct{}
	clients map[int]*Client
}

func NewHub(router *session.Router) *Hub {
	return &Hub{
		router:  router,
		events:  make(chan event),
		queries: make(chan func()),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		clients: make(map[int]*Client),
	}
}

// Run 阻塞直到 ctx 取消，退出前关闭所有客户端的发送队列。
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case ev := <-h.events:
			h.handle(ev)
		case q := <-h.queries:
			q()
		}
	}
}

// Wait 等待 Run 返回。
func (h *Hub) Wait() { <-h.stopped }

func (h *Hub) handle(ev event) {
	c := ev.client
	switch ev.kind {
	case evConnect:
		c.id = h.router.Connect(c)
		c.joined = true
		h.clients[c.id] = c
	case evMessage:
		if c.joined && !c.closed {
			h.router.Handle(c.id, ev.data)
		}
	case evDisconnect:
		if !c.joined || c.closed {
			return
		}
		h.router.Disconnect(c.id)
		delete(h.clients, c.id)
		c.closed = true
		close(c.send)
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	log.Info().Int("clients", len(h.clients)).Msg("hub shutting down")
	for id, c := range h.clients {
		c.closed = true
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) submit(ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// query 在 hub goroutine 内执行 fn。返回错误时 fn 可能仍在执行，调用方不能读取它写入的变量。
func (h *Hub) query(ctx context.Context, fn func(r *session.Router)) error {
	finished := make(chan struct{})
	q := func() {
		fn(h.router)
		close(finished)
	}
	select {
	case h.queries <- q:
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Online(ctx context.Context) (int, error) {
	var n int
	if err := h.query(ctx, func(r *session.Router) { n = r.Online() }); err != nil {
		return 0, err
	}
	return n, nil
}

func (h *Hub) RoomCount(ctx context.Context) (int, error) {
	var n int
	if err := h.query(ctx, func(r *session.Router) { n = r.RoomCount() }); err != nil {
		return 0, err
	}
	return n, nil
}

func (h *Hub) Rooms(ctx context.Context) ([]session.Room, error) {
	var rooms []session.Room
	if err := h.query(ctx, func(r *session.Router) { rooms = r.Rooms() }); err != nil {
		return nil, err
	}
	return rooms, nil
}

// RoomSecret 只取出哈希，bcrypt 比对由调用方在自己的 goroutine 里完成。
func (h *Hub) RoomSecret(ctx context.Context, roomID string) (string, bool, error) {
	var hash string
	var exists bool
	if err := h.query(ctx, func(r *session.Router) { hash, exists = r.RoomSecret(roomID) }); err != nil {
		return "", false, err
	}
	return hash, exists, nil
}
