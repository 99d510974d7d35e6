package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/nickproject/sniwatch/internal/aggregator"
	"github.com/nickproject/sniwatch/internal/capture"
	"github.com/nickproject/sniwatch/internal/logger"
)

// Producer 从抓包来源读取数据帧并交给 Processor
type Producer struct {
	src  capture.Source
	proc *Processor
}

// NewProducer 创建生产者，链路类型不受支持时返回错误
func NewProducer(src capture.Source, table *aggregator.Table) (*Producer, error) {
	proc, err := NewProcessor(src.LinkType(), table)
	if err != nil {
		return nil, err
	}
	return &Producer{src: src, proc: proc}, nil
}

// Run 循环读取直到 ctx 取消；读取出错时返回错误
func (p *Producer) Run(ctx context.Context) error {
	logger.Info("开始抓包", "linktype", p.src.LinkType().String())
	for {
		if ctx.Err() != nil {
			logger.Info("抓包结束", "stats", p.proc.Stats())
			return nil
		}

		frame, err := p.src.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrTimeout) {
				continue
			}
			return fmt.Errorf("读取数据帧失败: %w", err)
		}
		p.proc.Process(frame)
	}
}

// Stats 返回处理计数
func (p *Producer) Stats() ProcessorStats {
	return p.proc.Stats()
}
