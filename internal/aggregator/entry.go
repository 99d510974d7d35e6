package aggregator

// Stat 单个 TLS 连接的流量统计
type Stat struct {
	Hostname      string
	Sent          uint64 // 当前周期上行字节
	Received      uint64 // 当前周期下行字节
	TotalSent     uint64
	TotalReceived uint64
	Closing       bool // 已观察到 FIN 或 RST
	StallCount    int  // 连续无流量的周期数
}

func newStat(hostname string, helloLen int) *Stat {
	return &Stat{
		Hostname:  hostname,
		Sent:      uint64(helloLen),
		TotalSent: uint64(helloLen),
	}
}

func (s *Stat) incr(n int, sent, closing bool) {
	if sent {
		s.Sent += uint64(n)
		s.TotalSent += uint64(n)
	} else {
		s.Received += uint64(n)
		s.TotalReceived += uint64(n)
	}
	s.Closing = s.Closing || closing
}

// Group 按域名聚合后的统计
type Group struct {
	Hostname      string `json:"hostname"`
	Conns         int    `json:"connections"`
	Sent          uint64 `json:"sent_bytes"`
	Received      uint64 `json:"received_bytes"`
	TotalSent     uint64 `json:"total_sent_bytes"`
	TotalReceived uint64 `json:"total_received_bytes"`
}

func (g *Group) add(s Stat) {
	g.Conns++
	g.Sent += s.Sent
	g.Received += s.Received
	g.TotalSent += s.TotalSent
	g.TotalReceived += s.TotalReceived
}
