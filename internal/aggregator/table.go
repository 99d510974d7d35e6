package aggregator

import (
	"sync"

	"github.com/nickproject/sniwatch/internal/packet"
)

// DefaultStallLimit 连续无流量超过该周期数的连接不再显示
const DefaultStallLimit = 10

// Table 连接状态表，由抓包 goroutine 与刷新 goroutine 共享
type Table struct {
	mu    sync.Mutex
	flows map[packet.Key]*Stat
}

// NewTable 创建连接状态表
func NewTable() *Table {
	return &Table{
		flows: make(map[packet.Key]*Stat),
	}
}

// Update 累加已知连接的字节数，连接不存在时返回 false
func (t *Table) Update(key packet.Key, dir packet.Direction, n int, closing bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.flows[key]
	if !ok {
		return false
	}
	st.incr(n, dir == packet.ToServer, closing)
	return true
}

// Insert 以 ClientHello 长度为初始上行字节数创建连接记录。
// 记录已存在时不做任何修改并返回 false。
func (t *Table) Insert(key packet.Key, hostname string, helloLen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.flows[key]; ok {
		return false
	}
	t.flows[key] = newStat(hostname, helloLen)
	return true
}

// Rotate 结束一个统计周期：
// 先复制 StallCount < stallLimit 的记录作为快照，
// 再对全部记录更新 StallCount、清零周期计数并删除已关闭的连接。
func (t *Table) Rotate(stallLimit int) []Stat {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]Stat, 0, len(t.flows))
	for _, st := range t.flows {
		if st.StallCount < stallLimit {
			snapshot = append(snapshot, *st)
		}
	}

	for key, st := range t.flows {
		if st.Sent == 0 && st.Received == 0 {
			st.StallCount++
		} else {
			st.StallCount = 0
		}
		st.Sent = 0
		st.Received = 0
		if st.Closing {
			delete(t.flows, key)
		}
	}
	return snapshot
}

// Get 返回连接记录的副本
func (t *Table) Get(key packet.Key) (Stat, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.flows[key]
	if !ok {
		return Stat{}, false
	}
	return *st, true
}

// Len 返回连接数
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flows)
}
