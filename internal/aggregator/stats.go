package aggregator

import (
	"sort"
)

// Summarize 按域名聚合快照，结果按当前周期下行字节数降序排列，
// 相同下行量时按域名排序。
func Summarize(snapshot []Stat) []Group {
	byHost := make(map[string]*Group, len(snapshot))
	for _, st := range snapshot {
		g, ok := byHost[st.Hostname]
		if !ok {
			g = &Group{Hostname: st.Hostname}
			byHost[st.Hostname] = g
		}
		g.add(st)
	}

	groups := make([]Group, 0, len(byHost))
	for _, g := range byHost {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Hostname < groups[j].Hostname
	})
	sort.SliceStable(groups, func(i, j int) bool {
		return SortByReceived.Less(groups[i], groups[j])
	})
	return groups
}

// Totals 汇总所有分组
func Totals(groups []Group) Group {
	var total Group
	for _, g := range groups {
		total.Conns += g.Conns
		total.Sent += g.Sent
		total.Received += g.Received
		total.TotalSent += g.TotalSent
		total.TotalReceived += g.TotalReceived
	}
	return total
}

// SortMode 排序模式
type SortMode int

const (
	SortByReceived SortMode = iota
	SortBySent
	SortByTotal
	SortByConns
)

func (m SortMode) String() string {
	switch m {
	case SortByReceived:
		return "Down"
	case SortBySent:
		return "Up"
	case SortByTotal:
		return "Total"
	case SortByConns:
		return "Conns"
	default:
		return "?"
	}
}

// Less 按排序模式比较两个分组，a 应排在 b 前面时返回 true
func (m SortMode) Less(a, b Group) bool {
	switch m {
	case SortBySent:
		return a.Sent > b.Sent
	case SortByTotal:
		return a.TotalSent+a.TotalReceived > b.TotalSent+b.TotalReceived
	case SortByConns:
		return a.Conns > b.Conns
	default:
		return a.Received > b.Received
	}
}
