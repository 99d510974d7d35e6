package capture

import (
	"errors"
	"time"

	"github.com/nickproject/sniwatch/internal/packet"
)

// 抓包后端名称
const (
	BackendPcap     = "pcap"
	BackendAFPacket = "afpacket"
)

// AnyDevice 表示在所有网卡上抓包
const AnyDevice = "any"

// DefaultBPFFilter 默认抓包过滤表达式
const DefaultBPFFilter = "tcp port 443"

var (
	// ErrTimeout 读超时，调用方应重试
	ErrTimeout = errors.New("抓包读取超时")
	// ErrUnsupportedBackend 未知或当前平台不支持的后端
	ErrUnsupportedBackend = errors.New("不支持的抓包后端")
)

// Source 数据帧来源
type Source interface {
	// LinkType 返回帧的数据链路类型
	LinkType() packet.LinkType
	// ReadFrame 读取一帧，返回的数据在下次调用前有效；空闲时返回 ErrTimeout
	ReadFrame() ([]byte, error)
	// Close 释放抓包资源
	Close() error
}

// Config 抓包配置
type Config struct {
	Device    string
	Backend   string
	BPFFilter string
	SnapLen   int
	Timeout   time.Duration // 单次读取的最长等待
	Promisc   bool
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = AnyDevice
	}
	if c.Backend == "" {
		c.Backend = BackendPcap
	}
	if c.SnapLen <= 0 {
		c.SnapLen = 65535
	}
	if c.Timeout <= 0 {
		c.Timeout = 100 * time.Millisecond
	}
	return c
}
