package session

import (
	"chatterbox/internal/metrics"
	"chatterbox/internal/protocol"

	"github.com/rs/zerolog/log"
)

// 所有投递都是尽力而为、至多一次：Sender 队列满时该连接错过本条事件，不重试也不排队。

func (r *Router) encode(v any) ([]byte, bool) {
	b, err := protocol.Encode(v)
	if err != nil {
		log.Error().Err(err).Msg("encode outbound event")
		return nil, false
	}
	return b, true
}

func (r *Router) deliver(id int, s Sender, b []byte) {
	if !s.Send(b) {
		metrics.WsDroppedTotal.Inc()
		log.Debug().Int("participant_id", id).Msg("send queue full, event dropped")
	}
}

func (r *Router) broadcastAll(v any) {
	b, ok := r.encode(v)
	if !ok {
		return
	}
	for _, p := range r.conns.Snapshot() {
		r.deliver(p.ID, p.Sender, b)
	}
}

func (r *Router) broadcastOthers(sender int, v any) {
	b, ok := r.encode(v)
	if !ok {
		return
	}
	for _, p := range r.conns.Snapshot() {
		if p.ID == sender {
			continue
		}
		r.deliver(p.ID, p.Sender, b)
	}
}

func (r *Router) unicast(id int, v any) {
	s, ok := r.conns.Lookup(id)
	if !ok {
		return
	}
	if b, ok := r.encode(v); ok {
		r.deliver(id, s, b)
	}
}

// routeTo 把信令事件投递给唯一的目标连接。目标不在线时丢弃并记录日志，发送方不会收到任何回执。
func (r *Router) routeTo(from, to int, kind string, f protocol.Fields) {
	s, ok := r.conns.Lookup(to)
	if !ok {
		metrics.SignalDroppedTotal.Inc()
		log.Warn().Int("participant_id", from).Int("to", to).Str("type", kind).Msg("signal target not connected")
		return
	}
	if err := f.Set("from", from); err != nil {
		log.Error().Err(err).Msg("stamp signal sender")
		return
	}
	if b, ok := r.encode(f); ok {
		r.deliver(to, s, b)
	}
}
