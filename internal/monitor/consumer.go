package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/filter"
	"github.com/nickproject/sniwatch/internal/logger"
	"github.com/nickproject/sniwatch/internal/tui"
)

// DefaultInterval 默认刷新周期
const DefaultInterval = time.Second

// Sink 展示输出，Present 不能阻塞
type Sink interface {
	Columns() int
	Present(tui.Frame) bool
}

// ConsumerConfig 刷新配置
type ConsumerConfig struct {
	Interval   time.Duration
	StallLimit int
	Filter     *filter.Filter
}

// Consumer 按固定周期汇总连接状态表并输出
type Consumer struct {
	table *aggregator.Table
	sink  Sink
	cfg   ConsumerConfig

	mu      sync.Mutex
	last    []aggregator.Group
	dropped atomic.Uint64
}

// NewConsumer 创建消费者
func NewConsumer(table *aggregator.Table, sink Sink, cfg ConsumerConfig) *Consumer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StallLimit <= 0 {
		cfg.StallLimit = aggregator.DefaultStallLimit
	}
	return &Consumer{table: table, sink: sink, cfg: cfg}
}

// Run 按绝对时间点周期性调用 Tick，直到 ctx 取消
func (c *Consumer) Run(ctx context.Context) error {
	next := time.Now().Add(c.cfg.Interval)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		c.Tick()

		next = next.Add(c.cfg.Interval)
		// 落后时立即触发一次，不补发错过的周期
		if now := time.Now(); next.Before(now) {
			next = now
		}
		timer.Reset(time.Until(next))
	}
}

// Tick 结束当前统计周期并输出一帧
func (c *Consumer) Tick() tui.Frame {
	snapshot := c.table.Rotate(c.cfg.StallLimit)
	groups := c.cfg.Filter.Apply(aggregator.Summarize(snapshot))

	c.mu.Lock()
	c.last = groups
	c.mu.Unlock()

	frame := tui.Frame{
		At:    time.Now(),
		Rows:  tui.RenderRows(groups, c.sink.Columns()),
		Total: aggregator.Totals(groups),
		Flows: c.table.Len(),
	}
	if !c.sink.Present(frame) {
		n := c.dropped.Add(1)
		logger.Debug("输出繁忙，丢弃本周期", "dropped", n)
	}
	return frame
}

// LastGroups 返回最近一个周期的分组
func (c *Consumer) LastGroups() []aggregator.Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Dropped 返回被丢弃的帧数
func (c *Consumer) Dropped() uint64 {
	return c.dropped.Load()
}
