package capture

import (
	"errors"
	"fmt"

	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"

	"github.com/nickproject/sniwatch/internal/packet"
)

type pcapSource struct {
	handle   *pcap.Handle
	linkType packet.LinkType
}

func openPcap(cfg Config) (*pcapSource, error) {
	inactive, err := pcap.NewInactiveHandle(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("打开网卡 %s 失败: %w", cfg.Device, err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(cfg.SnapLen); err != nil {
		return nil, fmt.Errorf("设置 snaplen 失败: %w", err)
	}
	if err := inactive.SetPromisc(cfg.Promisc); err != nil {
		return nil, fmt.Errorf("设置混杂模式失败: %w", err)
	}
	if err := inactive.SetTimeout(cfg.Timeout); err != nil {
		return nil, fmt.Errorf("设置读超时失败: %w", err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("设置 immediate 模式失败: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("激活抓包失败 (%s): %w", cfg.Device, err)
	}

	// any 伪网卡默认是 LINUX_SLL，切换到 SLL2 以获得协议字段
	if cfg.Device == AnyDevice {
		dlt := uint16(packet.LinkTypeLinuxSLL2)
		if err := handle.SetLinkType(layers.LinkType(dlt)); err != nil {
			handle.Close()
			return nil, fmt.Errorf("切换到 %s 失败: %w", packet.LinkTypeLinuxSLL2, err)
		}
	}

	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("设置 BPF 过滤器 %q 失败: %w", cfg.BPFFilter, err)
		}
	}

	lt := packet.LinkType(handle.LinkType())
	if _, err := packet.NewDemuxer(lt); err != nil {
		handle.Close()
		return nil, err
	}

	return &pcapSource{handle: handle, linkType: lt}, nil
}

func (s *pcapSource) LinkType() packet.LinkType {
	return s.linkType
}

func (s *pcapSource) ReadFrame() ([]byte, error) {
	data, _, err := s.handle.ZeroCopyReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	return data, nil
}

func (s *pcapSource) Close() error {
	s.handle.Close()
	return nil
}

// PcapVersion 返回 libpcap 版本信息
func PcapVersion() string {
	return pcap.Version()
}
