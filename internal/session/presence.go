package session

// Typing 记录正在输入的显示名。只有状态真正变化时 Start/Stop 才返回 true，
// 调用方据此保证每次状态变化只广播一次。没有超时，断线时由 Clear 清理。
type Typing struct {
	names map[string]struct{}
}

func NewTyping() *Typing {
	return &Typing{names: make(map[string]struct{})}
}

func (t *Typing) Start(name string) bool {
	if _, ok := t.names[name]; ok {
		return false
	}
	t.names[name] = struct{}{}
	return true
}

func (t *Typing) Stop(name string) bool {
	if _, ok := t.names[name]; !ok {
		return false
	}
	delete(t.names, name)
	return true
}

func (t *Typing) Clear(name string) { delete(t.names, name) }

func (t *Typing) IsTyping(name string) bool {
	_, ok := t.names[name]
	return ok
}
