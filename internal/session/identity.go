package session

import (
	"errors"
	"strconv"
	"strings"
)

var ErrEmptyName = errors.New("empty display name")

type assignment struct {
	base string
	name string
}

// Names 把用户自选的基础名映射成在线用户之间唯一的显示名。
//
// 同一基础名按到达顺序编号：第一个不带后缀，第 N 个为 "base N"。
// 某个基础名的最后一个持有者离线后，计数器清零。
type Names struct {
	counters map[string]int
	holders  map[string]int
	byConn   map[int]assignment
	taken    map[string]int
}

func NewNames() *Names {
	return &Names{
		counters: make(map[string]int),
		holders:  make(map[string]int),
		byConn:   make(map[int]assignment),
		taken:    make(map[string]int),
	}
}

// Assign 为连接分配显示名。已分配过的连接直接返回原名，created 为 false。
func (n *Names) Assign(id int, base string) (name string, created bool, err error) {
	if a, ok := n.byConn[id]; ok {
		return a.name, false, nil
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return "", false, ErrEmptyName
	}

	count := n.counters[base]
	for {
		count++
		name = base
		if count > 1 {
			name = base + " " + strconv.Itoa(count)
		}
		// 有人直接用 "Alice 2" 作为基础名时会撞名，跳过即可。
		if _, used := n.taken[name]; !used {
			break
		}
	}
	n.counters[base] = count
	n.holders[base]++
	n.byConn[id] = assignment{base: base, name: name}
	n.taken[name] = id
	return name, true, nil
}

// Release 在连接断开时回收显示名。
func (n *Names) Release(id int) (string, bool) {
	a, ok := n.byConn[id]
	if !ok {
		return "", false
	}
	delete(n.byConn, id)
	delete(n.taken, a.name)
	n.holders[a.base]--
	if n.holders[a.base] <= 0 {
		delete(n.holders, a.base)
		delete(n.counters, a.base)
	}
	return a.name, true
}

func (n *Names) Name(id int) (string, bool) {
	a, ok := n.byConn[id]
	return a.name, ok
}
