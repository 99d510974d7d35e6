package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// HTTPSPort 服务端端口，用于判断方向
const HTTPSPort = 443

// LinkType 抓包数据链路类型 (DLT_* 编号)
type LinkType uint16

const (
	LinkTypeEthernet  LinkType = 1
	LinkTypeLinuxSLL2 LinkType = 276
)

func (t LinkType) String() string {
	switch t {
	case LinkTypeEthernet:
		return "EN10MB"
	case LinkTypeLinuxSLL2:
		return "LINUX_SLL2"
	default:
		return fmt.Sprintf("DLT(%d)", uint16(t))
	}
}

const sll2HeaderLen = 20

var (
	ErrUnsupportedLinkType = errors.New("不支持的数据链路类型")
	ErrTruncated           = errors.New("数据帧被截断")
	ErrNotIP               = errors.New("不是 IPv4/IPv6 数据包")
	ErrNotTCP              = errors.New("不是 TCP 数据包")
)

// Direction 单个数据包的传输方向
type Direction uint8

const (
	ToServer Direction = iota // 客户端 -> 443，计入 sent
	ToClient                  // 443 -> 客户端，计入 received
)

func (d Direction) String() string {
	switch d {
	case ToServer:
		return "sent"
	case ToClient:
		return "received"
	default:
		return "unknown"
	}
}

// Key 双向 TCP 连接标识，两个方向的数据包得到同一个 Key
type Key struct {
	Client netip.AddrPort
	Server netip.AddrPort
}

func (k Key) String() string {
	return k.Client.String() + "->" + k.Server.String()
}

// Segment TCP 报文视图，Payload 指向原始数据帧，只在当前帧处理期间有效
type Segment struct {
	SrcPort uint16
	DstPort uint16
	SYN     bool
	FIN     bool
	RST     bool
	Payload []byte
}

// Closing 报文是否携带 FIN 或 RST
func (s Segment) Closing() bool {
	return s.FIN || s.RST
}

// Demuxer 将一个数据帧拆解为 Key 与 TCP 报文视图。
// 内部复用解码层，不能在多个 goroutine 间共享。
type Demuxer struct {
	linkType LinkType
	eth      layers.Ethernet
	ip4      layers.IPv4
	ip6      layers.IPv6
	tcp      layers.TCP
}

// NewDemuxer 创建解复用器，链路类型不受支持时返回 ErrUnsupportedLinkType
func NewDemuxer(lt LinkType) (*Demuxer, error) {
	switch lt {
	case LinkTypeEthernet, LinkTypeLinuxSLL2:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLinkType, lt)
	}
	return &Demuxer{linkType: lt}, nil
}

// LinkType 返回解复用器使用的链路类型
func (d *Demuxer) LinkType() LinkType {
	return d.linkType
}

// Decode 解析一个数据帧
func (d *Demuxer) Decode(frame []byte) (Key, Direction, Segment, error) {
	proto, network, err := d.stripLink(frame)
	if err != nil {
		return Key{}, 0, Segment{}, err
	}

	var src, dst netip.Addr
	var transport []byte
	switch proto {
	case layers.EthernetTypeIPv4:
		if err := d.ip4.DecodeFromBytes(network, gopacket.NilDecodeFeedback); err != nil {
			return Key{}, 0, Segment{}, fmt.Errorf("解析 IPv4 失败: %w", err)
		}
		if d.ip4.Protocol != layers.IPProtocolTCP {
			return Key{}, 0, Segment{}, ErrNotTCP
		}
		src, _ = netip.AddrFromSlice(d.ip4.SrcIP.To4())
		dst, _ = netip.AddrFromSlice(d.ip4.DstIP.To4())
		transport = d.ip4.Payload
	case layers.EthernetTypeIPv6:
		if err := d.ip6.DecodeFromBytes(network, gopacket.NilDecodeFeedback); err != nil {
			return Key{}, 0, Segment{}, fmt.Errorf("解析 IPv6 失败: %w", err)
		}
		if d.ip6.NextHeader != layers.IPProtocolTCP {
			return Key{}, 0, Segment{}, ErrNotTCP
		}
		src, _ = netip.AddrFromSlice(d.ip6.SrcIP.To16())
		dst, _ = netip.AddrFromSlice(d.ip6.DstIP.To16())
		transport = d.ip6.Payload
	default:
		return Key{}, 0, Segment{}, fmt.Errorf("%w: ethertype %s", ErrNotIP, proto)
	}

	if err := d.tcp.DecodeFromBytes(transport, gopacket.NilDecodeFeedback); err != nil {
		return Key{}, 0, Segment{}, fmt.Errorf("解析 TCP 失败: %w", err)
	}

	seg := Segment{
		SrcPort: uint16(d.tcp.SrcPort),
		DstPort: uint16(d.tcp.DstPort),
		SYN:     d.tcp.SYN,
		FIN:     d.tcp.FIN,
		RST:     d.tcp.RST,
		Payload: d.tcp.Payload,
	}
	srcAddr := netip.AddrPortFrom(src, seg.SrcPort)
	dstAddr := netip.AddrPortFrom(dst, seg.DstPort)

	if seg.DstPort == HTTPSPort {
		return Key{Client: srcAddr, Server: dstAddr}, ToServer, seg, nil
	}
	return Key{Client: dstAddr, Server: srcAddr}, ToClient, seg, nil
}

// stripLink 去掉链路层头部，返回网络层协议与数据
func (d *Demuxer) stripLink(frame []byte) (layers.EthernetType, []byte, error) {
	switch d.linkType {
	case LinkTypeEthernet:
		if err := d.eth.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		return d.eth.EthernetType, d.eth.Payload, nil
	case LinkTypeLinuxSLL2:
		// SLL2 头部固定 20 字节，前 2 字节为网络层协议
		if len(frame) < sll2HeaderLen {
			return 0, nil, ErrTruncated
		}
		proto := layers.EthernetType(binary.BigEndian.Uint16(frame[0:2]))
		return proto, frame[sll2HeaderLen:], nil
	default:
		return 0, nil, ErrUnsupportedLinkType
	}
}
