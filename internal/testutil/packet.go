package testutil

import (
	"encoding/binary"
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// Segment 构造数据帧所需的 TCP 参数
type Segment struct {
	SrcIP   string
	DstIP   string
	SrcPort uint16
	DstPort uint16
	SYN     bool
	FIN     bool
	RST     bool
	ACK     bool
	Payload []byte
}

// Reverse 返回反方向的报文（不含 payload 和标志位）
func (s Segment) Reverse() Segment {
	return Segment{
		SrcIP:   s.DstIP,
		DstIP:   s.SrcIP,
		SrcPort: s.DstPort,
		DstPort: s.SrcPort,
		ACK:     true,
	}
}

func (s Segment) networkLayers() (gopacket.SerializableLayer, *layers.TCP, layers.EthernetType) {
	src := net.ParseIP(s.SrcIP)
	dst := net.ParseIP(s.DstIP)
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(s.SrcPort),
		DstPort: layers.TCPPort(s.DstPort),
		Seq:     1000,
		SYN:     s.SYN,
		FIN:     s.FIN,
		RST:     s.RST,
		ACK:     s.ACK,
		Window:  65535,
	}
	if v4 := src.To4(); v4 != nil {
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Flags:    layers.IPv4DontFragment,
			SrcIP:    v4,
			DstIP:    dst.To4(),
			Protocol: layers.IPProtocolTCP,
		}
		_ = tcp.SetNetworkLayerForChecksum(ip)
		return ip, tcp, layers.EthernetTypeIPv4
	}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolTCP,
		SrcIP:      src.To16(),
		DstIP:      dst.To16(),
	}
	_ = tcp.SetNetworkLayerForChecksum(ip)
	return ip, tcp, layers.EthernetTypeIPv6
}

var serializeOpts = gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

// EthernetFrame 构造以太网帧
func EthernetFrame(s Segment) []byte {
	ip, tcp, etherType := s.networkLayers()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: etherType,
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, eth, ip, tcp, gopacket.Payload(s.Payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SLL2Frame 构造 Linux cooked capture v2 帧
func SLL2Frame(s Segment) []byte {
	ip, tcp, etherType := s.networkLayers()
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, ip, tcp, gopacket.Payload(s.Payload)); err != nil {
		panic(err)
	}
	hdr := make([]byte, 20)
	binary.BigEndian.PutUint16(hdr[0:2], uint16(etherType))
	binary.BigEndian.PutUint32(hdr[4:8], 2) // ifindex
	binary.BigEndian.PutUint16(hdr[8:10], 1)
	hdr[11] = 6
	return append(hdr, buf.Bytes()...)
}
