package monitor

import (
	"sync/atomic"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/logger"
	"github.com/nickproject/sniwatch/internal/packet"
	"github.com/nickproject/sniwatch/internal/parser"
)

// Processor 解析数据帧并更新连接状态表，只能由一个 goroutine 使用
type Processor struct {
	demux *packet.Demuxer
	table *aggregator.Table

	frames    atomic.Uint64
	malformed atomic.Uint64
	hellos    atomic.Uint64
	misses    atomic.Uint64
}

// ProcessorStats 处理计数
type ProcessorStats struct {
	Frames    uint64 `json:"frames"`
	Malformed uint64 `json:"malformed"`
	Hellos    uint64 `json:"hellos"`
	SNIMisses uint64 `json:"sni_misses"`
}

// NewProcessor 按链路类型创建处理器
func NewProcessor(lt packet.LinkType, table *aggregator.Table) (*Processor, error) {
	demux, err := packet.NewDemuxer(lt)
	if err != nil {
		return nil, err
	}
	return &Processor{demux: demux, table: table}, nil
}

// Process 处理一个数据帧
func (p *Processor) Process(frame []byte) {
	p.frames.Add(1)

	key, dir, seg, err := p.demux.Decode(frame)
	if err != nil {
		p.malformed.Add(1)
		logger.Debug("丢弃数据帧", "len", len(frame), "error", err)
		return
	}

	if p.table.Update(key, dir, len(seg.Payload), seg.Closing()) {
		return
	}
	if dir != packet.ToServer || len(seg.Payload) == 0 {
		return
	}

	// 解析不持有表锁
	hostname, ok := parser.ExtractSNI(seg.Payload)
	if !ok {
		p.misses.Add(1)
		logger.Debug("未识别到 SNI", "flow", key.String(), "len", len(seg.Payload))
		return
	}
	if p.table.Insert(key, hostname, len(seg.Payload)) {
		p.hellos.Add(1)
		logger.Debug("新连接", "flow", key.String(), "sni", hostname)
	}
}

// Stats 返回处理计数
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Frames:    p.frames.Load(),
		Malformed: p.malformed.Load(),
		Hellos:    p.hellos.Load(),
		SNIMisses: p.misses.Load(),
	}
}
