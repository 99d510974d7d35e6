//go:build linux

package capture

import (
	"errors"
	"fmt"
	"os"

	"github.com/cilium/ebpf"
	"github.com/gopacket/gopacket/afpacket"
	"go.uber.org/multierr"

	"github.com/nickproject/sniwatch/internal/packet"
)

const (
	afpFrameSize = 1 << 16
	afpNumBlocks = 64
)

type afpacketSource struct {
	tp     *afpacket.TPacket
	filter *ebpf.Program
}

func openAFPacket(cfg Config) (*afpacketSource, error) {
	opts := []interface{}{
		afpacket.OptFrameSize(afpFrameSize),
		afpacket.OptBlockSize(afpFrameSize * 2),
		afpacket.OptNumBlocks(afpNumBlocks),
		afpacket.OptPollTimeout(cfg.Timeout),
	}
	// 不指定网卡即绑定所有网卡
	if cfg.Device != AnyDevice {
		opts = append(opts, afpacket.OptInterface(cfg.Device))
	}

	tp, err := afpacket.NewTPacket(opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 AF_PACKET 抓包失败: %w", err)
	}

	prog, err := LoadSocketFilter()
	if err != nil {
		tp.Close()
		return nil, err
	}
	if err := tp.SetEBPF(int32(prog.FD())); err != nil {
		tp.Close()
		return nil, multierr.Append(fmt.Errorf("挂载 eBPF 过滤器失败: %w", err), prog.Close())
	}

	return &afpacketSource{tp: tp, filter: prog}, nil
}

func (s *afpacketSource) LinkType() packet.LinkType {
	return packet.LinkTypeEthernet
}

func (s *afpacketSource) ReadFrame() ([]byte, error) {
	data, _, err := s.tp.ZeroCopyReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return data, nil
}

func (s *afpacketSource) Close() error {
	s.tp.Close()
	return s.filter.Close()
}
