package session

import "sort"

// Sender 是一条连接的发送端。Send 不允许阻塞：队列满或连接已关闭时直接返回 false。
type Sender interface {
	Send(data []byte) bool
}

// Peer 是某一时刻在线连接的快照项。
type Peer struct {
	ID     int
	Sender Sender
}

// Registry 持有所有在线连接，并按接入顺序分配 participant id。
// id 从 0 开始单调递增，进程存活期间不会复用。
type Registry struct {
	next  int
	conns map[int]Sender
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int]Sender)}
}

func (r *Registry) Accept(s Sender) int {
	id := r.next
	r.next++
	r.conns[id] = s
	return id
}

// Remove 幂等，第二次调用返回 false。
func (r *Registry) Remove(id int) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

func (r *Registry) Count() int { return len(r.conns) }

func (r *Registry) Lookup(id int) (Sender, bool) {
	s, ok := r.conns[id]
	return s, ok
}

// Snapshot 返回按 id 排序的在线连接副本，遍历期间注册表被修改也不受影响。
func (r *Registry) Snapshot() []Peer {
	out := make([]Peer, 0, len(r.conns))
	for id, s := range r.conns {
		out = append(out, Peer{ID: id, Sender: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
